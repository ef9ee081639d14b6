package server

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/thoreinstein/devenv/internal/jsonrpc"
)

// Handler processes one JSON-RPC method call.
type Handler func(ctx context.Context, method string, params jsonrpc.RawMessage) (any, error)

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Chain composes middleware so the first argument is the outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(next Handler) Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Recovery converts a handler panic into an internal error response and
// logs the stack.
func Recovery(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, method string, params jsonrpc.RawMessage) (result any, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recovered in handler",
						"method", method,
						"panic", fmt.Sprint(r),
						"stack", string(debug.Stack()),
					)
					result = nil
					err = jsonrpc.Errorf(jsonrpc.CodeInternalError, "internal error: %v", r)
				}
			}()
			return next(ctx, method, params)
		}
	}
}

// Logging logs each call's method and duration at debug level, and
// failures at error level.
func Logging(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, method string, params jsonrpc.RawMessage) (any, error) {
			start := time.Now()
			result, err := next(ctx, method, params)

			attrs := []slog.Attr{
				slog.String("method", method),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelDebug, "request handled", attrs...)
			}
			return result, err
		}
	}
}
