package pybridge

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
	"github.com/reglet-dev/pybridge/hostfuncs"
)

func reduceBy(a int64, kw Kwargs) (int64, error) {
	v, ok := kw.Get("reduce")
	if !ok {
		return a, nil
	}
	n, err := v.(*Object).AsInt64()
	if err != nil {
		return 0, err
	}
	return a + 8*n, nil
}

func TestCallback_ForeignRoundTrip(t *testing.T) {
	py, _ := newBridge(t)

	cb, err := py.Callback(reduceBy)
	require.NoError(t, err)
	defer cb.Destroy()
	assert.Equal(t, "reduceBy", cb.Name())

	mod, err := py.Import("pyfake")
	require.NoError(t, err)
	defer mod.Release()

	assert.Equal(t, int64(69), materialized(t)(mod.CallMethod("call", cb, 61, KW("reduce", 1))))
	assert.Equal(t, int64(61), materialized(t)(mod.CallMethod("call", cb, 61)))
}

func TestCallback_Destroy(t *testing.T) {
	py, rt := newBridge(t)
	base := rt.Live()

	cb, err := py.Callback(func() string { return "hi" }, WithName("greet"))
	require.NoError(t, err)
	kept, err := cb.Object()
	require.NoError(t, err)
	defer kept.Release()

	name, err := kept.GetAttr("__name__")
	require.NoError(t, err)
	assert.Equal(t, "greet", materialized(t)(name, nil))
	assert.Equal(t, "hi", materialized(t)(kept.Call()))

	cb.Destroy()
	cb.Destroy()
	assert.True(t, cb.Destroyed())

	_, err = cb.Call()
	assert.ErrorIs(t, err, errors.ErrCallbackDestroyed)
	_, err = cb.Object()
	assert.ErrorIs(t, err, errors.ErrCallbackDestroyed)

	_, err = kept.Call()
	pe, ok := AsPythonError(err)
	require.True(t, ok)
	assert.Equal(t, "RuntimeError", pe.TypeName())
	assert.Contains(t, pe.Message(), "destroyed")
	pe.Release()

	kept.Release()
	assert.Equal(t, base, rt.Live())
}

func TestCallback_NativeForm(t *testing.T) {
	py, _ := newBridge(t)

	var seen string
	cb, err := py.Callback(CallbackFunc(func(ctx context.Context, args []*Object, kwargs Kwargs) (any, error) {
		if hc, ok := ctx.(hostfuncs.HostContext); ok {
			seen = hc.CallbackName()
		}
		total := int64(0)
		for _, a := range args {
			n, err := a.AsInt64()
			if err != nil {
				return nil, err
			}
			total += n
		}
		return []any{total, len(kwargs)}, nil
	}), WithName("sum"))
	require.NoError(t, err)
	defer cb.Destroy()

	assert.Equal(t, []any{int64(6), int64(1)}, materialized(t)(cb.Call(1, 2, 3, KW("x", nil))))
	assert.Equal(t, "sum", seen)
}

func TestCallback_Conversions(t *testing.T) {
	py, _ := newBridge(t)

	tests := []struct {
		name string
		fn   any
		args []any
		want any
	}{
		{
			name: "context and variadic",
			fn: func(ctx context.Context, prefix string, rest ...int) string {
				return prefix + string(rune('0'+len(rest)))
			},
			args: []any{"n=", 1, 2, 3},
			want: "n=3",
		},
		{
			name: "narrow ints and floats",
			fn:   func(a int8, b uint16, c float32) float64 { return float64(a) + float64(b) + float64(c) },
			args: []any{-1, 2, 0.5},
			want: 1.5,
		},
		{
			name: "int widens to float",
			fn:   func(f float64) float64 { return f * 2 },
			args: []any{3},
			want: 6.0,
		},
		{
			name: "slices and maps",
			fn: func(xs []int, m map[string]bool) int {
				n := len(xs)
				if m["on"] {
					n *= 10
				}
				return n
			},
			args: []any{Tuple{1, 2}, map[string]bool{"on": true}},
			want: int64(20),
		},
		{
			name: "proxy argument",
			fn: func(o *Object) (string, error) {
				return o.TypeName()
			},
			args: []any{[]int{1}},
			want: "list",
		},
		{
			name: "any and nil",
			fn:   func(v any, p *int) bool { return v == nil && p == nil },
			args: []any{nil, nil},
			want: true,
		},
		{
			name: "no result",
			fn:   func() {},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, err := py.Callback(tt.fn)
			require.NoError(t, err)
			defer cb.Destroy()
			assert.Equal(t, tt.want, materialized(t)(cb.Call(tt.args...)))
		})
	}
}

func TestCallback_TypeErrors(t *testing.T) {
	py, _ := newBridge(t)

	tests := []struct {
		name    string
		fn      any
		args    []any
		wantMsg string
	}{
		{"too many", func(a int) int { return a }, []any{1, 2}, "takes 1 positional arguments but 2 were given"},
		{"too few variadic", func(a int, rest ...int) int { return a }, nil, "takes at least 1"},
		{"unexpected keyword", func() {}, []any{KW("k", 1)}, "unexpected keyword argument 'k'"},
		{"wrong type", func(s string) string { return s }, []any{1}, "argument 1"},
		{"overflow", func(b int8) int8 { return b }, []any{300}, "overflows int8"},
		{"negative unsigned", func(u uint) uint { return u }, []any{-1}, "overflows uint"},
		{"none for int", func(i int) int { return i }, []any{nil}, "None is not int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, err := py.Callback(tt.fn)
			require.NoError(t, err)
			defer cb.Destroy()

			_, err = cb.Call(tt.args...)
			pe, ok := AsPythonError(err)
			require.True(t, ok)
			assert.Equal(t, "TypeError", pe.TypeName())
			assert.Contains(t, pe.Message(), tt.wantMsg)
		})
	}
}

func TestCallback_InvalidFuncs(t *testing.T) {
	py, _ := newBridge(t)

	for _, fn := range []any{
		nil,
		42,
		(func())(nil),
		func() (int, int) { return 0, 0 },
		func() (int, error, bool) { return 0, nil, false },
	} {
		_, err := py.Callback(fn)
		assert.ErrorIs(t, err, errors.ErrNotCallable)
	}
}

func TestCallback_MarshalledFuncs(t *testing.T) {
	py, rt := newBridge(t)
	base := rt.Live()

	double := func(n int) int { return n * 2 }
	holder, err := py.List(double, 1)
	require.NoError(t, err)

	fn, err := holder.GetItem(0)
	require.NoError(t, err)
	assert.True(t, fn.IsCallable())
	assert.Equal(t, int64(42), materialized(t)(fn.Call(21)))
	fn.Release()
	holder.Release()

	assert.Equal(t, 1, py.DestroyCallbacks())
	assert.Zero(t, py.DestroyCallbacks())
	assert.Equal(t, base, rt.Live())
}

func TestCallback_ArgumentsReleased(t *testing.T) {
	py, rt := newBridge(t)

	l, err := py.List(1, 2)
	require.NoError(t, err)
	defer l.Release()
	before := rt.RefCount(l.Ptr())

	var kept *Object
	cb, err := py.Callback(func(o *Object) error {
		var err error
		kept, err = o.NewRef()
		return err
	})
	require.NoError(t, err)
	defer cb.Destroy()

	res, err := cb.Call(l)
	require.NoError(t, err)
	res.Release()

	require.NotNil(t, kept)
	assert.True(t, kept.Is(l))
	assert.Equal(t, before+1, rt.RefCount(l.Ptr()))
	kept.Release()
	assert.Equal(t, before, rt.RefCount(l.Ptr()))
}

func TestCallback_NestedDepth(t *testing.T) {
	py, _ := newBridge(t)

	depth := func(ctx context.Context) int {
		hc, ok := ctx.(hostfuncs.HostContext)
		require.True(t, ok)
		return hc.Depth()
	}

	var innerDepth int
	inner, err := py.Callback(func(ctx context.Context) {
		innerDepth = depth(ctx)
	}, WithName("inner"))
	require.NoError(t, err)
	defer inner.Destroy()

	var outerDepth int
	outer, err := py.Callback(func(ctx context.Context) error {
		outerDepth = depth(ctx)
		res, err := inner.Call()
		if err != nil {
			return err
		}
		res.Release()
		return nil
	}, WithName("outer"))
	require.NoError(t, err)
	defer outer.Destroy()

	res, err := outer.Call()
	require.NoError(t, err)
	res.Release()
	assert.Equal(t, 1, outerDepth)
	assert.Equal(t, 2, innerDepth)

	res, err = inner.Call()
	require.NoError(t, err)
	res.Release()
	assert.Equal(t, 1, innerDepth, "depth resets once the outer call returns")
}

func TestCallback_KeywordsReleasedOnBadKey(t *testing.T) {
	py, rt := newBridge(t)

	l, err := py.List(1, 2)
	require.NoError(t, err)
	defer l.Release()
	kwargs, err := py.Dict("items", l, int64(7), "x")
	require.NoError(t, err)
	defer kwargs.Release()
	args, err := py.Tuple()
	require.NoError(t, err)
	defer args.Release()
	before := rt.RefCount(l.Ptr())

	called := false
	h := py.handler(func(context.Context, []*Object, Kwargs) (any, error) {
		called = true
		return nil, nil
	})
	py.enter()
	_, err = h(context.Background(), hostfuncs.Invocation{Args: args.Ptr(), Kwargs: kwargs.Ptr()})
	py.leave()

	pe, ok := AsPythonError(err)
	require.True(t, ok)
	assert.Equal(t, "TypeError", pe.TypeName())
	pe.Release()
	assert.False(t, called)
	assert.Equal(t, before, rt.RefCount(l.Ptr()))
}

func TestCallback_CalleeReachableDuringCall(t *testing.T) {
	py, rt := newBridge(t)

	var raw entities.Ptr
	var seen []int
	cb, err := py.Callback(func() {
		runtime.GC()
		runtime.GC()
		py.ReleasePending()
		seen = append(seen, rt.RefCount(raw))
	})
	require.NoError(t, err)
	defer cb.Destroy()

	fn, err := cb.Object()
	require.NoError(t, err)
	raw = fn.Ptr()

	res, err := fn.Call()
	require.NoError(t, err)
	res.Release()
	// fn is not used after this call.
	res, err = fn.Call()
	require.NoError(t, err)
	res.Release()

	require.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1])
}
