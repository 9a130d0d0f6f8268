package main

import (
	"log/slog"
	"net/http"

	"github.com/hazyhaar/legacydoc/idgen"
	"github.com/hazyhaar/legacydoc/kit"
)

// The API only serves JSON, so the policy forbids everything a browser
// could load from it.
var apiHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Referrer-Policy":         "no-referrer",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range apiHeaders {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

// headToGet lets r.Get routes answer HEAD; net/http drops the body.
func headToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}

// requestContext tags the request with an ID, reusing a valid incoming
// X-Request-ID, and logs it at debug level.
func requestContext(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if _, err := idgen.ParseRequestID(id); err != nil {
				id = idgen.RequestID()
			}
			ctx := kit.WithRequestID(r.Context(), id)
			ctx = kit.WithTransport(ctx, "http")
			ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)
			w.Header().Set("X-Request-ID", id)

			logger.DebugContext(ctx, "request", append(kit.LogAttrs(ctx), "method", r.Method, "path", r.URL.Path)...)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
