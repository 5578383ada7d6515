package host

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/reglet-dev/pybridge"
	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/ports"
	"github.com/reglet-dev/pybridge/host/registry"
	"github.com/reglet-dev/pybridge/infrastructure/cpython"
)

// Executor manages the lifecycle of one bridged interpreter.
type Executor struct {
	py         *pybridge.Python
	runtime    ports.ForeignRuntime
	config     *entities.BridgeConfig
	logger     *slog.Logger
	registry   *registry.Registry
	bridgeOpts []pybridge.Option
	callbacks  []*pybridge.Callback
}

// NewExecutor loads the interpreter, binds a bridge and applies the
// configured sys.path, sys.argv and host modules.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.config == nil {
		cfg := entities.DefaultBridgeConfig()
		e.config = &cfg
	}

	if e.runtime == nil {
		rt, err := cpython.Open(append(cpython.FromConfig(e.config), cpython.WithLogger(e.logger))...)
		if err != nil {
			return nil, err
		}
		e.runtime = rt
	}

	py, err := pybridge.New(e.runtime, append([]pybridge.Option{pybridge.WithLogger(e.logger)}, e.bridgeOpts...)...)
	if err != nil {
		return nil, err
	}
	e.py = py

	if err := e.setup(ctx); err != nil {
		e.Close(ctx)
		return nil, fmt.Errorf("failed to prepare interpreter: %w", err)
	}
	return e, nil
}

func (e *Executor) setup(ctx context.Context) error {
	sys, err := e.py.Import("sys")
	if err != nil {
		return err
	}
	defer sys.Release()

	if len(e.config.Path) > 0 {
		path, err := sys.GetAttr("path")
		if err != nil {
			return err
		}
		defer path.Release()
		for i := len(e.config.Path) - 1; i >= 0; i-- {
			res, err := path.CallMethod("insert", 0, e.config.Path[i])
			if err != nil {
				return err
			}
			res.Release()
		}
	}
	if len(e.config.Argv) > 0 {
		if err := sys.SetAttr("argv", e.config.Argv); err != nil {
			return err
		}
	}

	if e.registry != nil {
		cbs, err := e.registry.Install(e.py)
		if err != nil {
			return err
		}
		e.callbacks = cbs
	}
	e.logger.DebugContext(ctx, "pybridge: interpreter ready", "path", len(e.config.Path), "host_modules", len(e.callbacks))
	return nil
}

// Python returns the bridge.
func (e *Executor) Python() *pybridge.Python {
	return e.py
}

// Config returns the configuration the executor was built with.
func (e *Executor) Config() *entities.BridgeConfig {
	return e.config
}

// Close destroys host callbacks and closes the bridge. The interpreter
// itself stays loaded for the life of the process.
func (e *Executor) Close(_ context.Context) error {
	for _, cb := range e.callbacks {
		cb.Destroy()
	}
	e.callbacks = nil
	e.py.Close()
	return nil
}

// RunFile runs the script at path as __main__ with sys.argv [path, args...].
func (e *Executor) RunFile(ctx context.Context, path string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	e.logger.DebugContext(ctx, "pybridge: running script", "path", path)
	return e.py.RunScript(string(code), path, args...)
}

// RunString runs code as __main__.
func (e *Executor) RunString(ctx context.Context, code string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.py.RunScript(code, "<string>", args...)
}

// RunModule runs the named module as __main__, like "python -m".
func (e *Executor) RunModule(ctx context.Context, module string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.logger.DebugContext(ctx, "pybridge: running module", "module", module)
	return e.py.RunMain(module, args...)
}

// Eval evaluates expr in __main__.
func (e *Executor) Eval(ctx context.Context, expr string) (*pybridge.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.py.Eval(expr)
}
