package safeio

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadAll(t *testing.T) {
	data, err := ReadAll(strings.NewReader("hello"), 5)
	if err != nil || string(data) != "hello" {
		t.Fatalf("ReadAll = %q, %v", data, err)
	}
	if _, err := ReadAll(strings.NewReader("hello!"), 5); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestJoinUnder(t *testing.T) {
	base := filepath.FromSlash("/srv/docs")
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"memo.doc", "/srv/docs/memo.doc", false},
		{"2019/q1/memo.rtf", "/srv/docs/2019/q1/memo.rtf", false},
		{"/etc/passwd", "/srv/docs/etc/passwd", false},
		{"draft..v2.doc", "/srv/docs/draft..v2.doc", false},
		{"../etc/passwd", "", true},
		{"a/../../outside", "", true},
		{"a/../b", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := JoinUnder(base, tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrPathTraversal) {
				t.Errorf("JoinUnder(%q) err = %v, want ErrPathTraversal", tt.name, err)
			}
			continue
		}
		if err != nil || got != filepath.FromSlash(tt.want) {
			t.Errorf("JoinUnder(%q) = %q, %v; want %q", tt.name, got, err, tt.want)
		}
	}
}

func TestCheckEndpoint(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/rpc/legacydoc_extract", false},
		{"http://127.0.0.1:8086/rpc/legacydoc_extract", false},
		{"HTTP://peer:8086/", false},
		{"ftp://example.com/data", true},
		{"javascript:alert(1)", true},
		{"http:///nohost", true},
		{"://bad", true},
	}
	for _, tt := range tests {
		_, err := CheckEndpoint(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckEndpoint(%q) err = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"legacydoc_extract", false},
		{"v1.extract-doc", false},
		{"", true},
		{"has space", true},
		{"slash/name", true},
		{strings.Repeat("a", 129), true},
	}
	for _, tt := range tests {
		if err := ValidateName(tt.name); (err != nil) != tt.wantErr {
			t.Errorf("ValidateName(%q) err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
