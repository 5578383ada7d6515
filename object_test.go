package pybridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
)

func TestObject_ReleaseIsIdempotent(t *testing.T) {
	py, rt := newBridge(t)
	base := rt.Live()

	l, err := py.List(1)
	require.NoError(t, err)
	l.Release()
	l.Release()

	assert.True(t, l.Released())
	assert.Equal(t, base, rt.Live())
	assert.Equal(t, "<released>", l.String())

	_, err = l.GetAttr("append")
	assert.ErrorIs(t, err, errors.ErrReleased)
	_, err = l.NewRef()
	assert.ErrorIs(t, err, errors.ErrReleased)
}

func TestObject_ScalarsOnNilAndReleased(t *testing.T) {
	py, _ := newBridge(t)

	n, err := py.From(5)
	require.NoError(t, err)
	n.Release()

	for _, o := range []*Object{nil, n} {
		_, err = o.AsBool()
		assert.ErrorIs(t, err, errors.ErrReleased)
		_, err = o.AsInt64()
		assert.ErrorIs(t, err, errors.ErrReleased)
		_, err = o.AsBigInt()
		assert.ErrorIs(t, err, errors.ErrReleased)
		_, err = o.AsFloat64()
		assert.ErrorIs(t, err, errors.ErrReleased)
		_, err = o.AsString()
		assert.ErrorIs(t, err, errors.ErrReleased)
		_, err = o.AsBytes()
		assert.ErrorIs(t, err, errors.ErrReleased)
	}
}

func TestObject_NewRef(t *testing.T) {
	py, rt := newBridge(t)

	s, err := py.Str("shared")
	require.NoError(t, err)
	before := rt.RefCount(s.Ptr())

	dup, err := s.NewRef()
	require.NoError(t, err)
	assert.True(t, dup.Is(s))
	assert.Equal(t, before+1, rt.RefCount(s.Ptr()))

	s.Release()
	assert.True(t, rt.Alive(dup.Ptr()))
	dup.Release()
}

func TestObject_Iter(t *testing.T) {
	py, _ := newBridge(t)
	l := oneToNine(t, py)

	var sum int64
	for item, err := range l.Iter() {
		require.NoError(t, err)
		n, err := item.AsInt64()
		require.NoError(t, err)
		sum += n
		item.Release()
		if n == 4 {
			break
		}
	}
	assert.Equal(t, int64(10), sum)

	count := 0
	for item, err := range l.Iter() {
		require.NoError(t, err)
		item.Release()
		count++
	}
	assert.Equal(t, 9, count, "each range starts a fresh iterator")

	n := py.Int(3)
	defer n.Release()
	for _, err := range n.Iter() {
		pe, ok := AsPythonError(err)
		require.True(t, ok)
		assert.Equal(t, "TypeError", pe.TypeName())
	}
}

func TestObject_Compare(t *testing.T) {
	py, _ := newBridge(t)

	two := py.Int(2)
	defer two.Release()

	tests := []struct {
		name string
		cmp  func(any) (bool, error)
		with any
		want bool
	}{
		{"eq", two.Equal, 2, true},
		{"ne", two.NotEqual, 2, false},
		{"lt", two.Less, 3, true},
		{"le", two.LessEqual, 2, true},
		{"gt", two.Greater, 2.5, false},
		{"ge", two.GreaterEqual, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmp(tt.with)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := two.Less("text")
	pe, ok := AsPythonError(err)
	require.True(t, ok)
	assert.Equal(t, "TypeError", pe.TypeName())

	_, err = two.Compare(2, entities.CompareOp(42))
	assert.Error(t, err)
}

func TestObject_Text(t *testing.T) {
	py, _ := newBridge(t)

	s, err := py.Str("q")
	require.NoError(t, err)
	defer s.Release()

	str, err := s.Str()
	require.NoError(t, err)
	assert.Equal(t, "q", str)

	repr, err := s.Repr()
	require.NoError(t, err)
	assert.Equal(t, "'q'", repr)
	assert.Equal(t, "q", s.String())
}

func TestObject_TypeAndTruth(t *testing.T) {
	py, _ := newBridge(t)

	d, err := py.Dict()
	require.NoError(t, err)
	defer d.Release()

	name, err := d.TypeName()
	require.NoError(t, err)
	assert.Equal(t, "dict", name)

	typ, err := d.Type()
	require.NoError(t, err)
	defer typ.Release()
	ok, err := d.IsInstance(typ)
	require.NoError(t, err)
	assert.True(t, ok)

	truthy, err := d.Truthy()
	require.NoError(t, err)
	assert.False(t, truthy)

	require.NoError(t, d.SetItem("k", nil))
	truthy, err = d.Truthy()
	require.NoError(t, err)
	assert.True(t, truthy)

	v, err := d.GetItem("k")
	require.NoError(t, err)
	defer v.Release()
	assert.True(t, v.IsNone())
	assert.False(t, d.IsNone())
}

func TestObject_Attributes(t *testing.T) {
	py, _ := newBridge(t)

	types, err := py.Import("types")
	require.NoError(t, err)
	defer types.Release()
	ns, err := types.CallMethod("SimpleNamespace")
	require.NoError(t, err)
	defer ns.Release()

	require.NoError(t, ns.SetAttr("a", []string{"x"}))
	assert.True(t, ns.HasAttr("a"))
	assert.Equal(t, []any{"x"}, materialized(t)(ns.GetAttr("a")))

	require.NoError(t, ns.DelAttr("a"))
	assert.False(t, ns.HasAttr("a"))

	err = ns.DelAttr("a")
	pe, ok := AsPythonError(err)
	require.True(t, ok)
	assert.Equal(t, "AttributeError", pe.TypeName())
}

func TestObject_Len(t *testing.T) {
	py, _ := newBridge(t)

	l := oneToNine(t, py)
	n, err := l.Len()
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	i := py.Int(1)
	defer i.Release()
	_, err = i.Len()
	pe, ok := AsPythonError(err)
	require.True(t, ok)
	assert.Equal(t, "TypeError", pe.TypeName())
}
