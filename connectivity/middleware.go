package connectivity

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/hazyhaar/legacydoc/kit"
)

// HandlerMiddleware wraps a Handler.
type HandlerMiddleware func(next Handler) Handler

// Chain composes middlewares; the first one is the outermost.
func Chain(mws ...HandlerMiddleware) HandlerMiddleware {
	return func(next Handler) Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs each call with its duration and sizes, plus the request
// attributes carried by ctx.
func Logging(logger *slog.Logger) HandlerMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			start := time.Now()
			resp, err := next(ctx, payload)
			attrs := append(kit.LogAttrs(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
				"payload_bytes", len(payload))
			if err != nil {
				logger.ErrorContext(ctx, "call failed", append(attrs, "error", err)...)
			} else {
				logger.DebugContext(ctx, "call ok", append(attrs, "response_bytes", len(resp))...)
			}
			return resp, err
		}
	}
}

// Timeout bounds each call with a context deadline. Handlers that ignore
// ctx keep running.
func Timeout(d time.Duration) HandlerMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, payload)
		}
	}
}

// Recovery turns a handler panic into *ErrPanic.
func Recovery(logger *slog.Logger) HandlerMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if v := recover(); v != nil {
					logger.ErrorContext(ctx, "handler panic recovered", "panic", v, "stack", string(debug.Stack()))
					resp, err = nil, &ErrPanic{Value: v}
				}
			}()
			return next(ctx, payload)
		}
	}
}
