package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/legacydoc/connectivity"
	"github.com/hazyhaar/legacydoc/docpipe"
	"github.com/hazyhaar/legacydoc/kit"
	"github.com/hazyhaar/legacydoc/msdoc"
	"github.com/hazyhaar/legacydoc/rtf"
	"github.com/hazyhaar/legacydoc/safeio"
)

// newServer wires the HTTP API. Document endpoints go through router so a
// routes table can send them to another instance; /rpc/{service} is the
// entry point such remote calls land on.
func newServer(router *connectivity.Router, maxBody int64, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(headToGet, securityHeaders, requestContext(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"version":  version,
			"formats":  docpipe.SupportedFormats(),
			"services": router.Services(),
		})
	})

	upload := func(service string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			data, err := safeio.ReadAll(r.Body, maxBody)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			if len(data) == 0 {
				writeError(w, http.StatusBadRequest, errEmptyBody)
				return
			}
			name := r.URL.Query().Get("name")
			if name == "" {
				name = "upload"
			}
			payload, _ := json.Marshal(map[string]string{
				"path":           name,
				"content_base64": base64.StdEncoding.EncodeToString(data),
			})
			call(r.Context(), w, router, service, payload, logger)
		}
	}
	r.Post("/extract", upload("legacydoc_extract"))
	r.Post("/sniff", upload("legacydoc_detect"))

	r.Post("/rpc/{service}", func(w http.ResponseWriter, r *http.Request) {
		service := chi.URLParam(r, "service")
		if err := safeio.ValidateName(service); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		// base64 grows the document by a third.
		payload, err := safeio.ReadAll(r.Body, maxBody/3*4+4096)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		// Remote callers must ship the bytes; a bare path would read this
		// host's filesystem.
		var req struct {
			Content string `json:"content_base64"`
		}
		if err := json.Unmarshal(payload, &req); err != nil || req.Content == "" {
			writeError(w, http.StatusBadRequest, errEmptyBody)
			return
		}
		call(r.Context(), w, router, service, payload, logger)
	})

	return r
}

var errEmptyBody = errors.New("request carries no document content")

func call(ctx context.Context, w http.ResponseWriter, router *connectivity.Router, service string, payload []byte, logger *slog.Logger) {
	resp, err := router.Call(ctx, service, payload)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			logger.ErrorContext(ctx, "legacydoc: call failed", append(kit.LogAttrs(ctx), "service", service, "error", err)...)
		}
		writeError(w, code, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(resp)
}

func statusFor(err error) int {
	var notFound *connectivity.ErrServiceNotFound
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, docpipe.ErrTooLarge), errors.Is(err, safeio.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, docpipe.ErrUnsupportedFormat),
		errors.Is(err, msdoc.ErrHeaderNotFound),
		errors.Is(err, msdoc.ErrEmptyBuffer),
		errors.Is(err, msdoc.ErrEncrypted),
		errors.Is(err, msdoc.ErrFastSavedUnsupported),
		errors.Is(err, msdoc.ErrCorrupted),
		errors.Is(err, msdoc.ErrNoWordDocument),
		errors.Is(err, rtf.ErrStackUnderflow),
		errors.Is(err, rtf.ErrUnmatchedBrace):
		return http.StatusUnprocessableEntity
	case errors.Is(err, safeio.ErrPathTraversal):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
