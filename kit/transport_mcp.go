package kit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/legacydoc/idgen"
)

// Decoder turns raw tool arguments into the request an Endpoint expects.
type Decoder func(args json.RawMessage) (any, error)

// NoArgs is the Decoder for tools that take no arguments.
func NoArgs(json.RawMessage) (any, error) { return nil, nil }

// MCPTool binds a tool definition to the endpoint serving it.
type MCPTool struct {
	Tool     *mcp.Tool
	Decode   Decoder
	Endpoint Endpoint
}

// RegisterMCPTools adds every tool to srv. mws wrap each endpoint, first
// one outermost.
func RegisterMCPTools(srv *mcp.Server, tools []MCPTool, mws ...Middleware) {
	wrap := Chain(mws...)
	for _, t := range tools {
		srv.AddTool(t.Tool, mcpHandler(t.Decode, wrap(t.Endpoint)))
	}
}

// mcpHandler runs one call: decode, tag the context, call the endpoint and
// return its response as a single JSON text content. Failures come back as
// tool errors so the client sees the message.
func mcpHandler(decode Decoder, endpoint Endpoint) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req.Params != nil {
			args = req.Params.Arguments
		}
		in, err := decode(args)
		if err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
		}

		ctx = WithTransport(ctx, "mcp")
		if GetRequestID(ctx) == "" {
			ctx = WithRequestID(ctx, idgen.RequestID())
		}
		out, err := endpoint(ctx, in)
		if err != nil {
			return toolError(errors.New(err.Error())), nil
		}

		data, err := json.Marshal(out)
		if err != nil {
			return toolError(fmt.Errorf("marshal: %w", err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	}
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}
