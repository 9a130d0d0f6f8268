package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/legacydoc/connectivity"
	"github.com/hazyhaar/legacydoc/docpipe"
	"github.com/hazyhaar/legacydoc/idgen"
)

const memoRTF = `{\rtf1\ansi{\info{\title Memo}{\author Jo Bloggs}}Hello\par World\par}`

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func writeMemo(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(memoRTF), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCmd(t *testing.T, cmd string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LEGACYDOC_CONFIG", "")
	var out bytes.Buffer
	err := run(context.Background(), discard(), cmd, args, &out)
	return out.String(), err
}

func TestRun_Extract(t *testing.T) {
	out, err := runCmd(t, "extract", writeMemo(t, "memo.rtf"))
	if err != nil {
		t.Fatal(err)
	}
	if out != "Hello\nWorld\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRun_HTML(t *testing.T) {
	out, err := runCmd(t, "html", writeMemo(t, "memo.rtf"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "<style>\n") || !strings.Contains(out, "Hello") {
		t.Errorf("output = %q", out)
	}
}

func TestRun_Meta(t *testing.T) {
	out, err := runCmd(t, "meta", writeMemo(t, "memo.rtf"))
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Format   string `json:"format"`
		Title    string `json:"title"`
		Metadata struct {
			Author string `json:"author"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Format != "rtf" || got.Title != "Memo" || got.Metadata.Author != "Jo Bloggs" {
		t.Errorf("meta = %+v", got)
	}
}

func TestRun_Sniff(t *testing.T) {
	// The content is RTF whatever the extension says.
	out, err := runCmd(t, "sniff", writeMemo(t, "memo.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if out != "rtf\n" {
		t.Errorf("output = %q", out)
	}

	path := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(path, []byte("plain words"), 0o644)
	if out, _ = runCmd(t, "sniff", path); out != "txt\n" {
		t.Errorf("extension fallback = %q", out)
	}
}

func TestRun_Usage(t *testing.T) {
	for _, args := range [][]string{{"bogus"}, {"extract"}, {"meta", "a", "b"}} {
		if _, err := runCmd(t, args[0], args[1:]...); !errors.Is(err, errUsage) {
			t.Errorf("%v: err = %v, want usage", args, err)
		}
	}
}

func TestRun_ConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("style_prefix: \"1bad\"\n"), 0o644)
	t.Setenv("LEGACYDOC_CONFIG", path)
	if err := run(context.Background(), discard(), "extract", []string{"x.rtf"}, io.Discard); err == nil {
		t.Fatal("expected config error")
	}
}

func newTestServer(t *testing.T, maxBody int64) *httptest.Server {
	t.Helper()
	cfg := docpipe.DefaultConfig()
	cfg.Logger = discard()
	pipe := docpipe.New(cfg)
	t.Cleanup(func() { pipe.Close() })

	router := connectivity.New(connectivity.WithLogger(discard()))
	router.Use(connectivity.Recovery(discard()))
	pipe.RegisterConnectivity(router)
	t.Cleanup(func() { router.Close() })

	srv := httptest.NewServer(newServer(router, maxBody, discard()))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, body []byte) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/octet-stream", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got struct {
		Status   string   `json:"status"`
		Services []string `json:"services"`
	}
	json.NewDecoder(resp.Body).Decode(&got)
	if resp.StatusCode != http.StatusOK || got.Status != "ok" {
		t.Fatalf("status = %d, body = %+v", resp.StatusCode, got)
	}
	if strings.Join(got.Services, ",") != "legacydoc_detect,legacydoc_extract" {
		t.Errorf("services = %v", got.Services)
	}
	if _, err := idgen.ParseRequestID(resp.Header.Get("X-Request-ID")); err != nil {
		t.Errorf("X-Request-ID: %v", err)
	}
}

func TestServer_Extract(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	resp, body := post(t, srv.URL+"/extract?name=memo.rtf", []byte(memoRTF))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var doc docpipe.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Path != "memo.rtf" || doc.RawText != "Hello\nWorld\n" || doc.Title != "Memo" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestServer_Sniff(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	resp, body := post(t, srv.URL+"/sniff", []byte(memoRTF))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var got map[string]string
	json.Unmarshal(body, &got)
	if got["format"] != "rtf" || got["source"] != "content" {
		t.Errorf("sniff = %v", got)
	}
}

func TestServer_ExtractErrors(t *testing.T) {
	srv := newTestServer(t, 64)
	tests := []struct {
		name string
		path string
		body []byte
		want int
	}{
		{"empty", "/extract", nil, http.StatusBadRequest},
		{"too large", "/extract", bytes.Repeat([]byte("a"), 65), http.StatusRequestEntityTooLarge},
		{"unsupported", "/extract?name=x.bin", []byte("plain"), http.StatusUnprocessableEntity},
		{"unbalanced", "/extract?name=x.rtf", []byte(`{\rtf1 a}}`), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d: %s", resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestServer_RPC(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	payload, _ := json.Marshal(map[string]string{
		"path":           "memo.rtf",
		"content_base64": base64.StdEncoding.EncodeToString([]byte(memoRTF)),
	})
	resp, body := post(t, srv.URL+"/rpc/legacydoc_extract", payload)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"raw_text":"Hello\nWorld\n"`) {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}

	resp, _ = post(t, srv.URL+"/rpc/nope", payload)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown service status = %d, want 404", resp.StatusCode)
	}

	// A path without content must not be read from the server's disk.
	bare, _ := json.Marshal(map[string]string{"path": "/etc/hostname"})
	resp, _ = post(t, srv.URL+"/rpc/legacydoc_extract", bare)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bare path status = %d, want 400", resp.StatusCode)
	}
}

func TestRequestContext_KeepsValidID(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	id := idgen.RequestID()
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	req.Header.Set("X-Request-ID", id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != id {
		t.Errorf("X-Request-ID = %q, want %q", got, id)
	}
}

func TestServer_HeadAndSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	resp, err := http.Head(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("HEAD /health = %d", resp.StatusCode)
	}
	for k, v := range apiHeaders {
		if got := resp.Header.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}
