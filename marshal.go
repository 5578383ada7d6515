package pybridge

import (
	"cmp"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"runtime"
	"slices"
	"strconv"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
)

// From converts a host value to a foreign object.
//
//	nil                          None
//	bool                         bool
//	integers, *big.Int           int
//	float32, float64             float
//	string (valid UTF-8)         str
//	[]byte                       bytes
//	Tuple                        tuple
//	other slices and arrays      list
//	*Dict, ordered maps          dict, insertion order
//	other maps                   dict, keys sorted
//	*Set, map[K]struct{}         set
//	*Object, Proxy               the same object
//	*Callback                    its callable
//	funcs                        a new callable, see Callback
//
// Pointers are followed. Anything else, including cyclic values, fails with
// *errors.MarshalError.
func (p *Python) From(v any) (*Object, error) {
	p.enter()
	defer p.leave()
	ptr, err := p.toForeign(v)
	if err != nil {
		return nil, err
	}
	return p.steal(ptr), nil
}

// toForeign returns a new reference for v. The caller must be entered.
func (p *Python) toForeign(v any) (entities.Ptr, error) {
	m := marshaller{p: p, seen: make(map[uintptr]bool)}
	return m.value(v)
}

type marshaller struct {
	p    *Python
	seen map[uintptr]bool
}

func (m *marshaller) value(v any) (entities.Ptr, error) {
	rt := m.p.rt
	switch x := v.(type) {
	case nil:
		return m.newRef(rt.None()), nil
	case *Object:
		return m.object(x)
	case Proxy:
		return m.object(x.PyObject())
	case *Callback:
		return m.object(x.obj)
	case *PythonError:
		return m.object(x.Value)
	case bool:
		if x {
			return m.check(rt.BoolFromLong(1))
		}
		return m.check(rt.BoolFromLong(0))
	case int:
		return m.check(rt.LongFromLongLong(int64(x)))
	case int64:
		return m.check(rt.LongFromLongLong(x))
	case int32:
		return m.check(rt.LongFromLongLong(int64(x)))
	case uint64:
		return m.uint(x)
	case uint:
		return m.uint(uint64(x))
	case *big.Int:
		if x == nil {
			return m.newRef(rt.None()), nil
		}
		if x.IsInt64() {
			return m.check(rt.LongFromLongLong(x.Int64()))
		}
		return m.check(rt.LongFromString(x.String(), 10))
	case float64:
		return m.check(rt.FloatFromDouble(x))
	case float32:
		return m.check(rt.FloatFromDouble(float64(x)))
	case string:
		if !utf8.ValidString(x) {
			return 0, &errors.MarshalError{Value: x, Reason: "string is not valid UTF-8"}
		}
		return m.check(rt.UnicodeFromString(x))
	case []byte:
		return m.check(rt.BytesFromString(x))
	case Tuple:
		return m.tuple(x)
	case *Dict:
		return m.dict(x)
	case *Set:
		addr := reflect.ValueOf(x).Pointer()
		if err := m.enter(addr, reflect.ValueOf(x)); err != nil {
			return 0, err
		}
		defer m.leave(addr)
		return m.set(x.Items())
	case *orderedmap.OrderedMap[string, any]:
		d := NewDict()
		for pair := x.Oldest(); pair != nil; pair = pair.Next() {
			d.Set(pair.Key, pair.Value)
		}
		return m.dict(d)
	case NamedArgument, *NamedArgument, Kwargs:
		return 0, &errors.MarshalError{Value: v, Reason: "keyword arguments are only valid among call arguments"}
	}
	return m.reflect(reflect.ValueOf(v))
}

func (m *marshaller) reflect(rv reflect.Value) (entities.Ptr, error) {
	rt := m.p.rt
	switch rv.Kind() {
	case reflect.Bool:
		return m.value(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return m.check(rt.LongFromLongLong(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return m.uint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return m.check(rt.FloatFromDouble(rv.Float()))
	case reflect.String:
		return m.value(rv.String())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return m.newRef(rt.None()), nil
		}
		if rv.Kind() == reflect.Pointer {
			if err := m.enter(rv.Pointer(), rv); err != nil {
				return 0, err
			}
			defer m.leave(rv.Pointer())
		}
		return m.value(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return m.newRef(rt.None()), nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return m.check(rt.BytesFromString(rv.Bytes()))
		}
		if rv.Len() > 0 {
			if err := m.enter(rv.Pointer(), rv); err != nil {
				return 0, err
			}
			defer m.leave(rv.Pointer())
		}
		return m.list(rv)
	case reflect.Array:
		return m.list(rv)
	case reflect.Map:
		if rv.IsNil() {
			return m.newRef(rt.None()), nil
		}
		if err := m.enter(rv.Pointer(), rv); err != nil {
			return 0, err
		}
		defer m.leave(rv.Pointer())
		if elem := rv.Type().Elem(); elem.Kind() == reflect.Struct && elem.NumField() == 0 {
			keys := sortedKeys(rv)
			items := make([]any, len(keys))
			for i, k := range keys {
				items[i] = k.Interface()
			}
			return m.set(items)
		}
		return m.goMap(rv)
	case reflect.Func:
		if rv.IsNil() {
			return m.newRef(rt.None()), nil
		}
		cb, err := m.p.ownedCallback(rv.Interface())
		if err != nil {
			return 0, err
		}
		return m.object(cb.obj)
	}
	if !rv.IsValid() {
		return m.newRef(rt.None()), nil
	}
	return 0, &errors.MarshalError{Value: rv.Interface(), Reason: "no foreign representation"}
}

func (m *marshaller) enter(addr uintptr, rv reflect.Value) error {
	if m.seen[addr] {
		return &errors.MarshalError{Value: rv.Interface(), Reason: "cyclic value"}
	}
	m.seen[addr] = true
	return nil
}

func (m *marshaller) leave(addr uintptr) {
	delete(m.seen, addr)
}

func (m *marshaller) newRef(ptr entities.Ptr) entities.Ptr {
	m.p.rt.IncRef(ptr)
	return ptr
}

func (m *marshaller) check(ptr entities.Ptr) (entities.Ptr, error) {
	if ptr == 0 {
		return 0, m.p.failure()
	}
	return ptr, nil
}

func (m *marshaller) object(o *Object) (entities.Ptr, error) {
	ptr, err := o.ptr()
	if err != nil {
		return 0, err
	}
	defer runtime.KeepAlive(o)
	if o.py != m.p {
		return 0, &errors.MarshalError{Value: o, Reason: "object belongs to another bridge"}
	}
	return m.newRef(ptr), nil
}

func (m *marshaller) uint(v uint64) (entities.Ptr, error) {
	if v <= math.MaxInt64 {
		return m.check(m.p.rt.LongFromLongLong(int64(v)))
	}
	return m.check(m.p.rt.LongFromString(strconv.FormatUint(v, 10), 10))
}

func (m *marshaller) tuple(items []any) (entities.Ptr, error) {
	rt := m.p.rt
	if len(items) > 0 {
		addr := reflect.ValueOf(items).Pointer()
		if err := m.enter(addr, reflect.ValueOf(Tuple(items))); err != nil {
			return 0, err
		}
		defer m.leave(addr)
	}
	t, err := m.check(rt.TupleNew(len(items)))
	if err != nil {
		return 0, err
	}
	for i, item := range items {
		v, err := m.value(item)
		if err == nil {
			err = m.p.status(rt.TupleSetItem(t, i, v))
		}
		if err != nil {
			rt.DecRef(t)
			return 0, err
		}
	}
	return t, nil
}

func (m *marshaller) list(rv reflect.Value) (entities.Ptr, error) {
	rt := m.p.rt
	n := rv.Len()
	l, err := m.check(rt.ListNew(n))
	if err != nil {
		return 0, err
	}
	for i := range n {
		v, err := m.value(rv.Index(i).Interface())
		if err == nil {
			err = m.p.status(rt.ListSetItem(l, i, v))
		}
		if err != nil {
			rt.DecRef(l)
			return 0, err
		}
	}
	return l, nil
}

func (m *marshaller) dict(d *Dict) (entities.Ptr, error) {
	addr := reflect.ValueOf(d).Pointer()
	if err := m.enter(addr, reflect.ValueOf(d)); err != nil {
		return 0, err
	}
	defer m.leave(addr)

	out, err := m.check(m.p.rt.DictNew())
	if err != nil {
		return 0, err
	}
	d.Each(func(k, v any) bool {
		err = m.entry(out, k, v)
		return err == nil
	})
	if err != nil {
		m.p.rt.DecRef(out)
		return 0, err
	}
	return out, nil
}

func (m *marshaller) goMap(rv reflect.Value) (entities.Ptr, error) {
	out, err := m.check(m.p.rt.DictNew())
	if err != nil {
		return 0, err
	}
	for _, k := range sortedKeys(rv) {
		if err := m.entry(out, k.Interface(), rv.MapIndex(k).Interface()); err != nil {
			m.p.rt.DecRef(out)
			return 0, err
		}
	}
	return out, nil
}

func (m *marshaller) entry(dict entities.Ptr, key, value any) error {
	rt := m.p.rt
	k, err := m.value(key)
	if err != nil {
		return err
	}
	defer rt.DecRef(k)
	v, err := m.value(value)
	if err != nil {
		return err
	}
	defer rt.DecRef(v)
	return m.p.status(rt.DictSetItem(dict, k, v))
}

func (m *marshaller) set(items []any) (entities.Ptr, error) {
	rt := m.p.rt
	s, err := m.check(rt.SetNew(0))
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		v, err := m.value(item)
		if err == nil {
			err = m.p.status(rt.SetAdd(s, v))
			rt.DecRef(v)
		}
		if err != nil {
			rt.DecRef(s)
			return 0, err
		}
	}
	return s, nil
}

// sortedKeys returns the keys of a Go map in a stable order: numerically or
// lexically for basic kinds, by their fmt rendering otherwise.
func sortedKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	slices.SortFunc(keys, compareKeys)
	return keys
}

func compareKeys(a, b reflect.Value) int {
	if a.Kind() == b.Kind() {
		switch a.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return cmp.Compare(a.Int(), b.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return cmp.Compare(a.Uint(), b.Uint())
		case reflect.Float32, reflect.Float64:
			return cmp.Compare(a.Float(), b.Float())
		case reflect.String:
			return cmp.Compare(a.String(), b.String())
		}
	}
	return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
}
