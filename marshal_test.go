package pybridge

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/reglet-dev/pybridge/domain/errors"
)

func TestFrom_IntegerRoundTrip(t *testing.T) {
	py, _ := newBridge(t)

	for _, n := range []int64{0, -1, 7, -7, 1 << 40, -(1 << 40), math.MaxInt64, math.MinInt64} {
		o, err := py.From(n)
		require.NoError(t, err)
		got, err := o.AsInt64()
		require.NoError(t, err)
		assert.Equal(t, n, got)
		assert.Equal(t, n, materialized(t)(o, nil))
	}
}

func TestFrom_LargeIntegers(t *testing.T) {
	py, _ := newBridge(t)

	o, err := py.From(uint64(math.MaxUint64))
	require.NoError(t, err)
	defer o.Release()

	_, err = o.AsInt64()
	var oe *errors.OverflowError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "int64", oe.Target)

	n, err := o.AsBigInt()
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551615", n.String())

	huge := new(big.Int).Lsh(big.NewInt(1), 100)
	huge.Neg(huge)
	v := materialized(t)(py.From(huge))
	require.IsType(t, &big.Int{}, v)
	assert.Zero(t, huge.Cmp(v.(*big.Int)))
}

func TestFrom_Scalars(t *testing.T) {
	py, _ := newBridge(t)

	type level int
	type label string

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool", false, false},
		{"int8", int8(-8), int64(-8)},
		{"uint16", uint16(16), int64(16)},
		{"named int", level(3), int64(3)},
		{"float32", float32(0.5), 0.5},
		{"named string", label("x"), "x"},
		{"pointer", new(int), int64(0)},
		{"nil pointer", (*int)(nil), nil},
		{"bytes", []byte{0, 1}, []byte{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, materialized(t)(py.From(tt.in)))
		})
	}
}

func TestFrom_StringRoundTrip(t *testing.T) {
	py, _ := newBridge(t)

	o, err := py.Str("中文")
	require.NoError(t, err)
	defer o.Release()

	s, err := o.AsString()
	require.NoError(t, err)
	assert.Equal(t, "中文", s)

	n, err := o.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = py.From("\xff")
	var me *errors.MarshalError
	assert.ErrorAs(t, err, &me)
}

func TestFrom_MappingOrder(t *testing.T) {
	py, _ := newBridge(t)

	d, err := py.Dict("a", 1, "b", 2)
	require.NoError(t, err)
	defer d.Release()

	var keys []string
	for k, err := range d.Iter() {
		require.NoError(t, err)
		s, err := k.AsString()
		require.NoError(t, err)
		keys = append(keys, s)
		k.Release()
	}
	assert.Equal(t, []string{"a", "b"}, keys)

	back, err := d.Materialize()
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, back.(*Dict).Keys())
}

func TestFrom_GoMapsAreSorted(t *testing.T) {
	py, _ := newBridge(t)

	v := materialized(t)(py.From(map[string]int{"b": 2, "c": 3, "a": 1}))
	assert.Equal(t, []any{"a", "b", "c"}, v.(*Dict).Keys())

	v = materialized(t)(py.From(map[int]string{10: "x", -1: "y", 2: "z"}))
	assert.Equal(t, []any{int64(-1), int64(2), int64(10)}, v.(*Dict).Keys())
}

func TestFrom_OrderedMap(t *testing.T) {
	py, _ := newBridge(t)

	om := orderedmap.New[string, any]()
	om.Set("z", 1)
	om.Set("a", []int{1, 2})

	v := materialized(t)(py.From(om)).(*Dict)
	assert.Equal(t, []any{"z", "a"}, v.Keys())
	got, ok := v.Get("a")
	require.True(t, ok)
	assert.Equal(t, []any{int64(1), int64(2)}, got)
}

func TestFrom_Containers(t *testing.T) {
	py, _ := newBridge(t)

	v := materialized(t)(py.From([]any{1, "two", 3.0, Tuple{4, nil}, [2]bool{true, false}}))
	assert.Equal(t, []any{int64(1), "two", 3.0, Tuple{int64(4), nil}, []any{true, false}}, v)

	s := materialized(t)(py.From(map[string]struct{}{"x": {}, "y": {}})).(*Set)
	assert.Equal(t, []any{"x", "y"}, s.Items())

	nested := NewDict().Set("inner", NewDict().Set("k", NewSet("v")))
	d := materialized(t)(py.From(nested)).(*Dict)
	inner, ok := d.Get("inner")
	require.True(t, ok)
	k, ok := inner.(*Dict).Get("k")
	require.True(t, ok)
	assert.True(t, k.(*Set).Has("v"))
}

func TestFrom_ProxyIdentity(t *testing.T) {
	py, rt := newBridge(t)

	l, err := py.List(1)
	require.NoError(t, err)
	defer l.Release()
	before := rt.RefCount(l.Ptr())

	holder, err := py.List(l, l)
	require.NoError(t, err)
	assert.Equal(t, before+2, rt.RefCount(l.Ptr()))

	first, err := holder.GetItem(0)
	require.NoError(t, err)
	assert.True(t, first.Is(l))
	first.Release()

	holder.Release()
	assert.Equal(t, before, rt.RefCount(l.Ptr()))
}

func TestFrom_Cycles(t *testing.T) {
	py, rt := newBridge(t)
	base := rt.Live()

	loop := []any{1, nil}
	loop[1] = loop
	_, err := py.From(loop)
	var me *errors.MarshalError
	assert.ErrorAs(t, err, &me)

	d := NewDict()
	d.Set("self", d)
	_, err = py.From(d)
	assert.ErrorAs(t, err, &me)

	m := map[string]any{}
	m["m"] = m
	_, err = py.From(m)
	assert.ErrorAs(t, err, &me)

	s := NewSet(int64(1))
	s.Add(s)
	_, err = py.From(s)
	assert.ErrorAs(t, err, &me)

	assert.Equal(t, base, rt.Live())
}

func TestFrom_SharedValuesAreNotCycles(t *testing.T) {
	py, _ := newBridge(t)

	shared := []any{1}
	v := materialized(t)(py.From([]any{shared, shared}))
	assert.Equal(t, []any{[]any{int64(1)}, []any{int64(1)}}, v)
}

func TestFrom_Unsupported(t *testing.T) {
	py, _ := newBridge(t)

	tests := []any{
		struct{ A int }{1},
		make(chan int),
		KW("a", 1),
	}
	for _, in := range tests {
		_, err := py.From(in)
		var me *errors.MarshalError
		assert.ErrorAs(t, err, &me, "%T", in)
	}
}

func TestMaterialize_ForeignCycle(t *testing.T) {
	py, _ := newBridge(t)

	mod, err := py.RunModule("l = [1]\nl.append(l)", "cyclic")
	require.NoError(t, err)
	defer mod.Release()

	l, err := mod.Get("l")
	require.NoError(t, err)
	defer l.Release()

	_, err = l.Materialize()
	var me *errors.MarshalError
	assert.ErrorAs(t, err, &me)
}

func TestMaterialize_OpaqueStaysProxy(t *testing.T) {
	py, _ := newBridge(t)

	v := materialized(t)(py.Eval("[len, 1]")).([]any)
	require.Len(t, v, 2)
	fn, ok := v[0].(*Object)
	require.True(t, ok)
	defer fn.Release()
	assert.True(t, fn.IsCallable())
	assert.Equal(t, int64(1), v[1])
}

func TestMaterialize_TupleKeysStayProxies(t *testing.T) {
	py, _ := newBridge(t)

	d := materialized(t)(py.Eval("{(1, 2): 'pair', 'k': 'v'}")).(*Dict)
	keys := d.Keys()
	require.Len(t, keys, 2)

	key, ok := keys[0].(*Object)
	require.True(t, ok)
	defer key.Release()
	assert.Equal(t, Tuple{int64(1), int64(2)}, materialized(t)(key.NewRef()))
	assert.Equal(t, "k", keys[1])
}

func TestAccessors_TypeMismatch(t *testing.T) {
	py, _ := newBridge(t)

	s, err := py.Str("text")
	require.NoError(t, err)
	defer s.Release()

	var me *errors.MarshalError
	_, err = s.AsInt64()
	assert.ErrorAs(t, err, &me)
	_, err = s.AsBool()
	assert.ErrorAs(t, err, &me)
	_, err = s.AsBytes()
	assert.ErrorAs(t, err, &me)

	f, err := py.Int(3).AsFloat64()
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)
}
