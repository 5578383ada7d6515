package pybridge

import (
	"log/slog"

	"github.com/reglet-dev/pybridge/hostfuncs"
)

// config accumulates configuration during bridge construction.
type config struct {
	logger     *slog.Logger
	middleware []hostfuncs.Middleware
}

func defaultConfig() config {
	return config{
		logger: slog.Default(),
	}
}

// Option is a functional option for configuring a bridge.
type Option func(*config)

// WithLogger sets the logger used by the bridge and its callback table.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCallbackMiddleware appends middleware around every callback
// invocation. It runs inside the built-in panic recovery and logging
// middleware, in the order given.
func WithCallbackMiddleware(mw ...hostfuncs.Middleware) Option {
	return func(c *config) {
		c.middleware = append(c.middleware, mw...)
	}
}
