package host

import (
	"log/slog"

	"github.com/reglet-dev/pybridge"
	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/ports"
	"github.com/reglet-dev/pybridge/host/registry"
)

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithConfig sets the bridge configuration. The default is
// entities.DefaultBridgeConfig.
func WithConfig(cfg *entities.BridgeConfig) Option {
	return func(e *Executor) {
		e.config = cfg
	}
}

// WithRuntime uses rt instead of loading libpython.
func WithRuntime(rt ports.ForeignRuntime) Option {
	return func(e *Executor) {
		e.runtime = rt
	}
}

// WithLogger sets the logger for the executor and its bridge.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHostModules installs the registry's modules once the bridge is up.
func WithHostModules(reg *registry.Registry) Option {
	return func(e *Executor) {
		e.registry = reg
	}
}

// WithBridgeOptions passes extra options to pybridge.New.
func WithBridgeOptions(opts ...pybridge.Option) Option {
	return func(e *Executor) {
		e.bridgeOpts = append(e.bridgeOpts, opts...)
	}
}
