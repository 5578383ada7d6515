package host

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pybridge"
	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/host/registry"
	"github.com/reglet-dev/pybridge/internal/pyfake"
)

func newExecutor(t *testing.T, opts ...Option) (*Executor, *pyfake.Runtime) {
	t.Helper()
	rt := pyfake.New()
	opts = append([]Option{
		WithRuntime(rt),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	e, err := NewExecutor(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e, rt
}

func evalMaterialized(t *testing.T, e *Executor, expr string) any {
	t.Helper()
	obj, err := e.Eval(context.Background(), expr)
	require.NoError(t, err)
	defer obj.Release()
	v, err := obj.Materialize()
	require.NoError(t, err)
	return v
}

func TestNewExecutor_AppliesConfig(t *testing.T) {
	cfg := entities.NewBridgeConfig(
		entities.WithPath("/opt/a", "/opt/b"),
		entities.WithArgv("tool", "-v"),
	)
	e, _ := newExecutor(t, WithConfig(&cfg))

	require.NoError(t, e.RunString(context.Background(), "import sys\nfirst = sys.path[0]\nsecond = sys.path[1]"))
	assert.Equal(t, "/opt/a", evalMaterialized(t, e, "first"))
	assert.Equal(t, "/opt/b", evalMaterialized(t, e, "second"))
	assert.Same(t, &cfg, e.Config())
}

func TestExecutor_RunFile(t *testing.T) {
	e, _ := newExecutor(t)
	ctx := context.Background()

	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.py")
	require.NoError(t, os.WriteFile(ok, []byte("import sys\nargs = sys.argv\n"), 0o600))
	require.NoError(t, e.RunFile(ctx, ok, "x"))
	assert.Equal(t, []any{ok, "x"}, evalMaterialized(t, e, "args"))

	quit := filepath.Join(dir, "quit.py")
	require.NoError(t, os.WriteFile(quit, []byte("raise SystemExit(4)\n"), 0o600))
	err := e.RunFile(ctx, quit)
	pe, isPy := pybridge.AsPythonError(err)
	require.True(t, isPy)
	code, err := pe.ExitCode()
	require.NoError(t, err)
	assert.Equal(t, 4, code)

	assert.Error(t, e.RunFile(ctx, filepath.Join(dir, "missing.py")))
}

func TestExecutor_RunModule(t *testing.T) {
	e, rt := newExecutor(t)
	rt.AddSource("job", "raise SystemExit(0)")

	assert.NoError(t, e.RunModule(context.Background(), "job"))

	err := e.RunModule(context.Background(), "absent")
	pe, ok := pybridge.AsPythonError(err)
	require.True(t, ok)
	assert.True(t, pe.Matches("ImportError"))
}

func TestExecutor_CanceledContext(t *testing.T) {
	e, _ := newExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, e.RunString(ctx, "x = 1"), context.Canceled)
	assert.ErrorIs(t, e.RunModule(ctx, "job"), context.Canceled)
	_, err := e.Eval(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutor_HostModules(t *testing.T) {
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("hostenv", map[string]any{
		"greet": func(name string) string { return "hello " + name },
	}))
	e, _ := newExecutor(t, WithHostModules(reg))

	require.NoError(t, e.RunString(context.Background(), "import hostenv\nmsg = hostenv.greet('py')"))
	assert.Equal(t, "hello py", evalMaterialized(t, e, "msg"))
}
