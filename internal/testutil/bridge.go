package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pybridge"
	"github.com/reglet-dev/pybridge/internal/pyfake"
)

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewBridge binds a bridge to a fresh fake runtime, closed at cleanup.
func NewBridge(t *testing.T, opts ...pybridge.Option) (*pybridge.Python, *pyfake.Runtime) {
	t.Helper()
	rt := pyfake.New()
	py, err := pybridge.New(rt, append([]pybridge.Option{pybridge.WithLogger(QuietLogger())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(py.Close)
	return py, rt
}

// Materialize returns a func that requires err to be nil, converts obj to
// host values and releases it. It accepts a call's results directly:
//
//	v := testutil.Materialize(t)(py.Eval("1 + 1"))
func Materialize(t *testing.T) func(*pybridge.Object, error) any {
	return func(obj *pybridge.Object, err error) any {
		t.Helper()
		require.NoError(t, err)
		defer obj.Release()
		v, err := obj.Materialize()
		require.NoError(t, err)
		return v
	}
}
