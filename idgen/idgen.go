// Package idgen generates the identifiers attached to extraction requests
// and cached results.
package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of RFC 9562 version 7 UUIDs, which sort by
// creation time.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every ID of gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// RequestID tags HTTP and MCP requests in logs.
var RequestID = Prefixed("req_", UUIDv7())

// ParseRequestID validates an ID produced by RequestID and returns its
// UUID part.
func ParseRequestID(s string) (string, error) {
	rest, ok := strings.CutPrefix(s, "req_")
	if !ok {
		return "", fmt.Errorf("idgen: missing req_ prefix: %q", s)
	}
	u, err := uuid.Parse(rest)
	if err != nil {
		return "", fmt.Errorf("idgen: invalid UUID: %w", err)
	}
	return u.String(), nil
}
