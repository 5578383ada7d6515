package pybridge

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
)

func oneToNine(t *testing.T, py *Python) *Object {
	t.Helper()
	l, err := py.List(1, 2, 3, 4, 5, 6, 7, 8, 9)
	require.NoError(t, err)
	t.Cleanup(l.Release)
	return l
}

func ints(vs ...int64) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func TestGet_Slices(t *testing.T) {
	py, _ := newBridge(t)
	l := oneToNine(t, py)

	tests := []struct {
		key  string
		want any
	}{
		{"1:", ints(2, 3, 4, 5, 6, 7, 8, 9)},
		{"1:2", ints(2)},
		{":2", ints(1, 2)},
		{"0:3:2", ints(1, 3)},
		{"-2:", ints(8, 9)},
		{"::2", ints(1, 3, 5, 7, 9)},
		{" 1 : 3 ", ints(2, 3)},
		{"::-3", ints(9, 6, 3)},
		{"0", int64(1)},
		{"-1", int64(9)},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, materialized(t)(l.Get(tt.key)))
		})
	}
}

func TestGet_MultiAxis(t *testing.T) {
	py, _ := newBridge(t)

	np, err := py.Import("numpy")
	require.NoError(t, err)
	defer np.Release()
	flat, err := np.CallMethod("arange", 9)
	require.NoError(t, err)
	defer flat.Release()
	grid, err := flat.CallMethod("reshape", 3, 3)
	require.NoError(t, err)
	defer grid.Release()

	tests := []struct {
		key  any
		want any
	}{
		{"1:, ::2", []any{ints(3, 5), ints(6, 8)}},
		{"..., 0", ints(0, 3, 6)},
		{"2", ints(6, 7, 8)},
		{
			entities.Subscript{entities.IndexAxis(0), entities.EllipsisAxis()},
			ints(0, 1, 2),
		},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.key), func(t *testing.T) {
			part, err := grid.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, materialized(t)(part.CallMethod("tolist")))
			part.Release()
		})
	}
}

func TestGet_SyntaxError(t *testing.T) {
	py, _ := newBridge(t)
	l := oneToNine(t, py)

	_, err := l.Get("1:2:3:4")
	var se *errors.SyntaxError
	assert.ErrorAs(t, err, &se)
}

func TestGet_AttributeThenItem(t *testing.T) {
	py, _ := newBridge(t)

	d, err := py.Dict("a", 1, "keys", "shadowed")
	require.NoError(t, err)
	defer d.Release()

	assert.Equal(t, int64(1), materialized(t)(d.Get("a")))

	keys, err := d.Get("keys")
	require.NoError(t, err)
	assert.True(t, keys.IsCallable(), "attribute wins over item")
	keys.Release()

	_, err = d.Get("missing")
	pe, ok := AsPythonError(err)
	require.True(t, ok)
	assert.Equal(t, "KeyError", pe.TypeName())
}

func TestGet_ItemTypeErrorKeepsAttributeError(t *testing.T) {
	py, _ := newBridge(t)
	l := oneToNine(t, py)

	_, err := l.Get("missing")
	pe, ok := AsPythonError(err)
	require.True(t, ok)
	assert.Equal(t, "AttributeError", pe.TypeName())
	assert.Contains(t, pe.Error(), "missing")
}

func TestGet_NonStringKeys(t *testing.T) {
	py, _ := newBridge(t)
	l := oneToNine(t, py)

	assert.Equal(t, int64(3), materialized(t)(l.Get(2)))
	assert.Equal(t, ints(1, 2), materialized(t)(l.Get(entities.RangeAxis(nil, ptrTo(2), nil))))

	d, err := py.Dict(1, "one")
	require.NoError(t, err)
	defer d.Release()
	assert.Equal(t, "one", materialized(t)(d.Get(1)))
}

func ptrTo(v int64) *int64 { return &v }

func TestSet(t *testing.T) {
	py, _ := newBridge(t)

	types, err := py.Import("types")
	require.NoError(t, err)
	defer types.Release()
	ns, err := types.CallMethod("SimpleNamespace", KW("x", 1))
	require.NoError(t, err)
	defer ns.Release()

	require.NoError(t, ns.Set("y", "why"))
	assert.Equal(t, "why", materialized(t)(ns.GetAttr("y")))

	d, err := py.Dict()
	require.NoError(t, err)
	defer d.Release()
	require.NoError(t, d.Set("k", 1))
	require.NoError(t, d.Set("keys", 2))
	assert.Equal(t, int64(2), materialized(t)(d.GetItem("keys")))

	l := oneToNine(t, py)
	require.NoError(t, l.Set("0", 10))
	require.NoError(t, l.Set("1:3", []int{20, 30}))
	assert.Equal(t, ints(10, 20, 30, 4), materialized(t)(l.Get(":4")))
}

func TestDelete(t *testing.T) {
	py, _ := newBridge(t)

	d, err := py.Dict("a", 1, "b", 2)
	require.NoError(t, err)
	defer d.Release()

	require.NoError(t, d.Delete("a"))
	assert.False(t, d.Has("a"))
	assert.True(t, d.Has("b"))

	err = d.Delete("a")
	pe, ok := AsPythonError(err)
	require.True(t, ok)
	assert.Equal(t, "KeyError", pe.TypeName())

	l := oneToNine(t, py)
	require.NoError(t, l.Delete("::2"))
	assert.Equal(t, ints(2, 4, 6, 8), materialized(t)(l.NewRef()))
}

func TestHas(t *testing.T) {
	py, _ := newBridge(t)
	l := oneToNine(t, py)

	assert.True(t, l.Has("append"))
	assert.True(t, l.Has("8"))
	assert.True(t, l.Has(0))
	assert.False(t, l.Has("9"))
	assert.False(t, l.Has("nope"))
	assert.False(t, l.Has("1:2:3:4"))
}

func TestDispatch_RefcountBalanced(t *testing.T) {
	py, rt := newBridge(t)
	l := oneToNine(t, py)
	base := rt.Live()

	for _, key := range []any{"1:", "::2", "-1", 3, "missing", "append"} {
		v, err := l.Get(key)
		if err != nil {
			releaseError(err)
			continue
		}
		v.Release()
	}
	assert.Equal(t, base, rt.Live())
}
