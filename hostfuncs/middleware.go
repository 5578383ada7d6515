package hostfuncs

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
)

// Middleware is a function that wraps a Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	tracing := func(next Handler) Handler {
//	    return func(ctx context.Context, inv Invocation) (entities.Ptr, error) {
//	        slog.DebugContext(ctx, "entering callback")
//	        return next(ctx, inv)
//	    }
//	}
type Middleware func(next Handler) Handler

// PanicRecoveryMiddleware returns a middleware that catches panics and converts
// them to a *errors.PanicError instead of unwinding through the foreign runtime.
func PanicRecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, inv Invocation) (ret entities.Ptr, err error) {
			defer func() {
				if r := recover(); r != nil {
					ret = 0
					err = &errors.PanicError{Value: r, Stack: debug.Stack()}
				}
			}()
			return next(ctx, inv)
		}
	}
}

// LoggingMiddleware returns a middleware that logs callback invocations to logger.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, inv Invocation) (entities.Ptr, error) {
			name, depth := "unknown", 0
			if hc, ok := ctx.(HostContext); ok {
				name, depth = hc.CallbackName(), hc.Depth()
			}
			start := time.Now()
			logger.DebugContext(ctx, "pybridge: invoking callback", "callback", name, "depth", depth)
			ret, err := next(ctx, inv)
			if err != nil {
				logger.ErrorContext(ctx, "pybridge: callback failed", "callback", name, "error", err, "duration", time.Since(start))
			} else {
				logger.DebugContext(ctx, "pybridge: callback completed", "callback", name, "duration", time.Since(start))
			}
			return ret, err
		}
	}
}
