package wazero

import (
	"context"
	"crypto/rand"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/reglet-dev/pybridge/domain/entities"
)

// ExitError reports a sandboxed interpreter that exited with a non-zero
// status.
type ExitError struct {
	Code uint32
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("sandboxed interpreter exited with code %d", e.Code)
}

// scriptDir is where RunFile mounts the directory holding the script.
const scriptDir = "/script"

// Mount is a read-only directory exposed to the guest.
type Mount struct {
	Host  string
	Guest string
}

type runnerConfig struct {
	program  string
	mounts   []Mount
	env      map[string]string
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	cacheDir string
	logger   *slog.Logger
}

func defaultRunnerConfig() runnerConfig {
	return runnerConfig{
		program: "python",
		env:     make(map[string]string),
		stdout:  io.Discard,
		stderr:  io.Discard,
		logger:  slog.Default(),
	}
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerConfig)

// WithMount exposes host at guest, read-only.
func WithMount(host, guest string) RunnerOption {
	return func(c *runnerConfig) {
		c.mounts = append(c.mounts, Mount{Host: host, Guest: guest})
	}
}

// WithEnv sets one environment variable for the guest.
func WithEnv(key, value string) RunnerOption {
	return func(c *runnerConfig) {
		c.env[key] = value
	}
}

// WithStdin sets the guest's standard input. The default is empty.
func WithStdin(r io.Reader) RunnerOption {
	return func(c *runnerConfig) {
		c.stdin = r
	}
}

// WithStdout captures the guest's standard output. The default discards it.
func WithStdout(w io.Writer) RunnerOption {
	return func(c *runnerConfig) {
		c.stdout = w
	}
}

// WithStderr captures the guest's standard error. The default discards it.
func WithStderr(w io.Writer) RunnerOption {
	return func(c *runnerConfig) {
		c.stderr = w
	}
}

// WithCacheDir keeps compiled modules in dir across processes.
func WithCacheDir(dir string) RunnerOption {
	return func(c *runnerConfig) {
		c.cacheDir = dir
	}
}

// WithProgramName sets argv[0] as seen by the guest (default "python").
func WithProgramName(name string) RunnerOption {
	return func(c *runnerConfig) {
		c.program = name
	}
}

// WithLogger sets the logger for run events.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(c *runnerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// FromConfig translates the sandbox section of a bridge configuration.
func FromConfig(cfg entities.SandboxConfig) []RunnerOption {
	opts := make([]RunnerOption, 0, len(cfg.Mounts)+len(cfg.Env))
	for _, m := range cfg.Mounts {
		opts = append(opts, WithMount(m.Host, m.Guest))
	}
	for k, v := range cfg.Env {
		opts = append(opts, WithEnv(k, v))
	}
	return opts
}

// Runner executes scripts with a compiled WASI interpreter. The module is
// compiled once; every run instantiates it afresh.
type Runner struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	cfg      runnerConfig
}

// NewRunner compiles wasm, a WASI build of the interpreter.
func NewRunner(ctx context.Context, wasm []byte, opts ...RunnerOption) (*Runner, error) {
	cfg := defaultRunnerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rtCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.cacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(cfg.cacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache: %w", err)
		}
		rtCfg = rtCfg.WithCompilationCache(cache)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to compile interpreter module: %w", err)
	}
	return &Runner{runtime: rt, compiled: compiled, cfg: cfg}, nil
}

// NewRunnerFromFile compiles the interpreter module at path.
func NewRunnerFromFile(ctx context.Context, path string, opts ...RunnerOption) (*Runner, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read interpreter module: %w", err)
	}
	return NewRunner(ctx, wasm, opts...)
}

// Close releases the runtime and the compiled module.
func (r *Runner) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// RunString runs code as with "python -c code args...".
func (r *Runner) RunString(ctx context.Context, code string, args ...string) error {
	return r.Run(ctx, append([]string{"-c", code}, args...)...)
}

// RunFile runs the script at hostPath. Its directory is mounted read-only
// at /script for the duration of the run.
func (r *Runner) RunFile(ctx context.Context, hostPath string, args ...string) error {
	abs, err := filepath.Abs(hostPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}
	name := filepath.Base(abs)
	if _, ok := ScriptNameFromContext(ctx); !ok {
		ctx = WithScriptName(ctx, name)
	}
	mount := Mount{Host: filepath.Dir(abs), Guest: scriptDir}
	return r.run(ctx, []Mount{mount}, append([]string{path.Join(scriptDir, name)}, args...))
}

// Run starts the interpreter with args following argv[0].
func (r *Runner) Run(ctx context.Context, args ...string) error {
	return r.run(ctx, nil, args)
}

func (r *Runner) run(ctx context.Context, extra []Mount, args []string) error {
	fs := wazero.NewFSConfig()
	for _, m := range append(append([]Mount(nil), r.cfg.mounts...), extra...) {
		fs = fs.WithReadOnlyDirMount(m.Host, m.Guest)
	}

	modCfg := wazero.NewModuleConfig().
		WithName("").
		WithArgs(append([]string{r.cfg.program}, args...)...).
		WithFSConfig(fs).
		WithStdout(r.cfg.stdout).
		WithStderr(r.cfg.stderr).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader)
	if r.cfg.stdin != nil {
		modCfg = modCfg.WithStdin(r.cfg.stdin)
	}
	keys := make([]string, 0, len(r.cfg.env))
	for k := range r.cfg.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		modCfg = modCfg.WithEnv(k, r.cfg.env[k])
	}

	script, _ := ScriptNameFromContext(ctx)
	r.cfg.logger.DebugContext(ctx, "wazero: starting sandboxed interpreter", "script", script, "args", len(args))

	mod, err := r.runtime.InstantiateModule(ctx, r.compiled, modCfg)
	if mod != nil {
		defer mod.Close(ctx)
	}
	if err == nil {
		return nil
	}

	var exitErr *sys.ExitError
	if stdErrors.As(err, &exitErr) {
		if exitErr.ExitCode() == 0 {
			return nil
		}
		r.cfg.logger.DebugContext(ctx, "wazero: sandboxed interpreter exited", "script", script, "code", exitErr.ExitCode())
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("failed to run sandboxed interpreter: %w", err)
}
