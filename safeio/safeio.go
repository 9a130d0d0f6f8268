// Package safeio bounds what untrusted callers can make the service read:
// request and response bodies, file paths and peer endpoints.
package safeio

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
)

var (
	// ErrTooLarge is returned by ReadAll when the input exceeds its cap.
	ErrTooLarge = errors.New("safeio: input too large")
	// ErrPathTraversal is returned when a caller-supplied path escapes its base.
	ErrPathTraversal = errors.New("safeio: path escapes base directory")
	// ErrUnsafeScheme is returned for endpoints that are not http or https.
	ErrUnsafeScheme = errors.New("safeio: only http and https endpoints are allowed")
)

// ReadAll reads r up to max bytes. One byte more is an ErrTooLarge.
func ReadAll(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, max)
	}
	return data, nil
}

// JoinUnder resolves name inside base. Absolute names are taken relative to
// base. The result never leaves base.
func JoinUnder(base, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathTraversal)
	}
	for _, part := range strings.FieldsFunc(filepath.ToSlash(name), func(r rune) bool { return r == '/' }) {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
		}
	}
	root := filepath.Clean(base)
	joined := filepath.Join(root, filepath.Clean("/"+name))
	if joined != root && !strings.HasPrefix(joined, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	return joined, nil
}

// CheckEndpoint parses a peer URL and requires an http(s) scheme and a host.
// Private addresses are allowed: peers are usually on the local network.
func CheckEndpoint(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("safeio: invalid endpoint: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsafeScheme, raw)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("safeio: endpoint %q has no host", raw)
	}
	return u, nil
}

// ValidateName accepts service names made of letters, digits, '_', '-'
// and '.', at most 128 bytes long.
func ValidateName(s string) error {
	if s == "" {
		return errors.New("safeio: empty name")
	}
	if len(s) > 128 {
		return fmt.Errorf("safeio: name too long (%d bytes)", len(s))
	}
	for _, r := range s {
		if !isNameChar(r) {
			return fmt.Errorf("safeio: invalid character %q in name", r)
		}
	}
	return nil
}

func isNameChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}
