package kit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/legacydoc/idgen"
)

func callRaw(t *testing.T, h mcp.ToolHandler, args string) *mcp.CallToolResult {
	t.Helper()
	res, err := h(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(args)},
	})
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content = %v", res.Content)
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T", res.Content[0])
	}
	return tc.Text
}

type nameReq struct {
	Name string `json:"name"`
}

func decodeName(args json.RawMessage) (any, error) {
	var r nameReq
	if err := json.Unmarshal(args, &r); err != nil {
		return nil, err
	}
	if r.Name == "" {
		return nil, errors.New("name is required")
	}
	return &r, nil
}

func TestMCPHandler_Success(t *testing.T) {
	var gotTransport, gotID string
	h := mcpHandler(decodeName, func(ctx context.Context, req any) (any, error) {
		gotTransport, gotID = GetTransport(ctx), GetRequestID(ctx)
		return map[string]string{"hello": req.(*nameReq).Name}, nil
	})

	res := callRaw(t, h, `{"name":"memo.doc"}`)
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if got := resultText(t, res); got != `{"hello":"memo.doc"}` {
		t.Errorf("text = %s", got)
	}
	if gotTransport != "mcp" {
		t.Errorf("transport = %q, want mcp", gotTransport)
	}
	if _, err := idgen.ParseRequestID(gotID); err != nil {
		t.Errorf("request id %q: %v", gotID, err)
	}
}

func TestMCPHandler_Errors(t *testing.T) {
	h := mcpHandler(decodeName, func(context.Context, any) (any, error) {
		return nil, errors.New("decode failed")
	})

	res := callRaw(t, h, `{}`)
	if !res.IsError || !strings.Contains(resultText(t, res), "invalid arguments") {
		t.Errorf("bad args: IsError=%v", res.IsError)
	}
	res = callRaw(t, h, `{"name":"x"}`)
	if !res.IsError || !strings.Contains(resultText(t, res), "decode failed") {
		t.Errorf("endpoint error: IsError=%v", res.IsError)
	}
}

func TestMCPHandler_NoArgs(t *testing.T) {
	h := mcpHandler(NoArgs, func(_ context.Context, req any) (any, error) {
		if req != nil {
			t.Errorf("req = %v, want nil", req)
		}
		return []string{"doc", "rtf"}, nil
	})
	if got := resultText(t, callRaw(t, h, ``)); got != `["doc","rtf"]` {
		t.Errorf("text = %s", got)
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := WithRequestID(WithTransport(context.Background(), "mcp"), "req_x")

	ok := Logging(logger)(func(context.Context, any) (any, error) { return "ok", nil })
	if _, err := ok(ctx, nil); err != nil {
		t.Fatal(err)
	}
	fail := Logging(logger)(func(context.Context, any) (any, error) { return nil, errors.New("boom") })
	if _, err := fail(ctx, nil); err == nil {
		t.Fatal("error swallowed")
	}

	out := buf.String()
	for _, want := range []string{"endpoint done", "endpoint failed", "request_id=req_x", "transport=mcp", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}
