package pybridge

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pybridge/domain/errors"
	"github.com/reglet-dev/pybridge/hostfuncs"
)

func TestPythonError_ZeroDivision(t *testing.T) {
	py, rt := newBridge(t)

	_, err := py.Eval("1 / 0")
	require.Error(t, err)
	assert.False(t, rt.ErrorPending())

	pe, ok := AsPythonError(err)
	require.True(t, ok)
	defer pe.Release()

	zde, err := py.Builtin("ZeroDivisionError")
	require.NoError(t, err)
	defer zde.Release()
	valueError, err := py.Builtin("ValueError")
	require.NoError(t, err)
	defer valueError.Release()

	assert.True(t, pe.IsInstance(zde))
	assert.False(t, pe.IsInstance(valueError))
	assert.True(t, pe.Matches("ArithmeticError"))
	assert.Equal(t, "ZeroDivisionError", pe.TypeName())
	assert.Equal(t, "ZeroDivisionError: division by zero", pe.Error())
	assert.Equal(t, "division by zero", pe.Message())
}

func TestPythonError_Wrapped(t *testing.T) {
	py, _ := newBridge(t)

	_, err := py.Eval("undefined_name")
	wrapped := fmt.Errorf("loading config: %w", err)

	pe, ok := AsPythonError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "NameError", pe.TypeName())

	_, ok = AsPythonError(stdErrors.New("plain"))
	assert.False(t, ok)
}

func TestPythonError_ExitCode(t *testing.T) {
	tests := []struct {
		expr string
		want int
	}{
		{"SystemExit(3)", 3},
		{"SystemExit()", 0},
		{"SystemExit(None)", 0},
		{"SystemExit('message')", 1},
		{"ValueError(7)", 7},
		{"ValueError()", 0},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			py, rt := newBridge(t)
			rt.AddSource("raiser", "raise "+tt.expr)

			_, err := py.Import("raiser")
			pe, ok := AsPythonError(err)
			require.True(t, ok)
			code, err := pe.ExitCode()
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestPythonError_ExitMessage(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"SystemExit(1)", ""},
		{"SystemExit()", ""},
		{"SystemExit('stopped')", "stopped"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			py, rt := newBridge(t)
			rt.AddSource("raiser", "raise "+tt.expr)

			_, err := py.Import("raiser")
			pe, ok := AsPythonError(err)
			require.True(t, ok)
			defer pe.Release()
			assert.Equal(t, tt.want, pe.ExitMessage())
		})
	}
}

func TestPythonError_Traceback(t *testing.T) {
	py, rt := newBridge(t)
	rt.AddSource("broken", "x = 1\nraise ValueError('bad')")

	_, err := py.Import("broken")
	pe, ok := AsPythonError(err)
	require.True(t, ok)
	require.NotNil(t, pe.Traceback)

	text, err := pe.Format()
	require.NoError(t, err)
	assert.Contains(t, text, "broken.py")
	assert.Contains(t, text, "ValueError: bad")

	detail := errors.ToErrorDetail(pe)
	assert.Equal(t, "foreign", detail.Type)
	assert.Equal(t, "ValueError", detail.Code)
	assert.Contains(t, detail.Traceback, "ValueError: bad")
}

func TestPythonError_ReleaseBalanced(t *testing.T) {
	py, rt := newBridge(t)
	base := rt.Live()

	_, err := py.Eval("{}['k']")
	pe, ok := AsPythonError(err)
	require.True(t, ok)
	pe.Release()
	pe.Release()

	assert.Equal(t, base, rt.Live())
}

func TestRaise_FromCallbacks(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType string
		wantMsg  string
	}{
		{"plain error", stdErrors.New("disk full"), "RuntimeError", "disk full"},
		{"named builtin", hostfuncs.Raise("ValueError", "bad input"), "ValueError", "bad input"},
		{"unknown builtin", hostfuncs.Raise("NoSuchError", "odd"), "RuntimeError", "odd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			py, _ := newBridge(t)
			cb, err := py.Callback(func() error { return tt.err })
			require.NoError(t, err)
			defer cb.Destroy()

			_, err = cb.Call()
			pe, ok := AsPythonError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, pe.TypeName())
			assert.Equal(t, tt.wantMsg, pe.Message())
		})
	}
}

func TestRaise_ForeignErrorPassesThrough(t *testing.T) {
	py, _ := newBridge(t)

	cb, err := py.Callback(func() (any, error) {
		return py.Eval("[][1]")
	})
	require.NoError(t, err)
	defer cb.Destroy()

	_, err = cb.Call()
	pe, ok := AsPythonError(err)
	require.True(t, ok)
	assert.Equal(t, "IndexError", pe.TypeName())
}

func TestRaise_Panic(t *testing.T) {
	py, _ := newBridge(t)

	cb, err := py.Callback(func() int64 { panic("exploded") })
	require.NoError(t, err)
	defer cb.Destroy()

	_, err = cb.Call()
	pe, ok := AsPythonError(err)
	require.True(t, ok)
	assert.Equal(t, "RuntimeError", pe.TypeName())
	assert.Equal(t, "panic: exploded", pe.Message())
}
