package docpipe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/hazyhaar/legacydoc/connectivity"
)

func TestConn_Detect(t *testing.T) {
	pipe := New(Config{})
	router := connectivity.New()
	pipe.RegisterConnectivity(router)

	tests := []struct {
		path   string
		format string
	}{
		{"a.doc", "doc"},
		{"a.rtf", "rtf"},
		{"a.htm", "html"},
	}
	for _, tt := range tests {
		payload, _ := json.Marshal(map[string]any{"path": tt.path})
		resp, err := router.Call(context.Background(), "legacydoc_detect", payload)
		if err != nil {
			t.Fatalf("Call(%s): %v", tt.path, err)
		}
		var result struct {
			Format string `json:"format"`
		}
		json.Unmarshal(resp, &result)
		if result.Format != tt.format {
			t.Errorf("Detect(%q) = %q, want %q", tt.path, result.Format, tt.format)
		}
	}
}

func TestConn_Extract(t *testing.T) {
	pipe := New(Config{})
	router := connectivity.New()
	pipe.RegisterConnectivity(router)

	payload, _ := json.Marshal(map[string]any{
		"path":           "memo.doc",
		"content_base64": base64.StdEncoding.EncodeToString([]byte(memoRTF)),
	})
	resp, err := router.Call(context.Background(), "legacydoc_extract", payload)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(resp, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Format != FormatRTF || doc.Title != "Memo" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestConn_BadPayload(t *testing.T) {
	pipe := New(Config{})
	router := connectivity.New()
	pipe.RegisterConnectivity(router)

	if _, err := router.Call(context.Background(), "legacydoc_extract", []byte("{")); err == nil {
		t.Error("expected decode error")
	}
}
