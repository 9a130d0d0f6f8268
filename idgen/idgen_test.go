package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Uniqueness(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		id := gen()
		if len(id) != 36 || strings.Count(id, "-") != 4 {
			t.Fatalf("UUIDv7: malformed %q", id)
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("UUIDv7: duplicate at iteration %d", i)
		}
		seen[id] = struct{}{}
	}
}

func TestRequestID(t *testing.T) {
	id := RequestID()
	if !strings.HasPrefix(id, "req_") {
		t.Fatalf("RequestID: got %q", id)
	}
	u, err := ParseRequestID(id)
	if err != nil {
		t.Fatalf("ParseRequestID(%q): %v", id, err)
	}
	if "req_"+u != id {
		t.Fatalf("ParseRequestID(%q) = %q", id, u)
	}
}

func TestParseRequestID_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "req_", "req_not-a-uuid", "01890a5d-ac96-774b-bcce-b302099a8057"} {
		if _, err := ParseRequestID(in); err == nil {
			t.Errorf("ParseRequestID(%q): expected error", in)
		}
	}
}

func TestPrefixed(t *testing.T) {
	n := 0
	gen := Prefixed("doc_", func() string { n++; return strings.Repeat("x", n) })
	if a, b := gen(), gen(); a != "doc_x" || b != "doc_xx" {
		t.Fatalf("Prefixed: got %q, %q", a, b)
	}
}
