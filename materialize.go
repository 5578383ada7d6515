package pybridge

import (
	"fmt"
	"math/big"
	"runtime"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
)

// materializeOrder is the order in which builtin classes are tried. bool
// precedes int because bool is a subclass of int.
var materializeOrder = []string{
	"NoneType", "bool", "int", "float", "str", "bytes",
	"list", "tuple", "set", "frozenset", "dict",
}

// Materialize deep converts o into host values:
//
//	None              nil
//	bool              bool
//	int               int64, or *big.Int when it does not fit
//	float             float64
//	str               string
//	bytes             []byte
//	list              []any
//	tuple             Tuple
//	set, frozenset    *Set
//	dict              *Dict
//
// Instances of subclasses convert like their base. Objects of any other
// type, and dict keys or set items whose host form is not comparable, stay
// *Object. A container that contains itself fails with *errors.MarshalError.
func (o *Object) Materialize() (any, error) {
	ptr, err := o.ptr()
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	m := materializer{p: o.py, seen: make(map[entities.Ptr]bool)}
	return m.value(ptr)
}

type materializer struct {
	p    *Python
	seen map[entities.Ptr]bool
}

// classify returns the name of the first builtin class ptr is an instance
// of, or "" when none matches.
func (p *Python) classify(ptr entities.Ptr) (string, error) {
	for _, name := range materializeOrder {
		cls, err := p.builtinType(name)
		if err != nil {
			return "", err
		}
		switch p.rt.IsInstance(ptr, cls.h.ptr) {
		case 1:
			return name, nil
		case -1:
			return "", p.failure()
		}
	}
	return "", nil
}

func (m *materializer) value(ptr entities.Ptr) (any, error) {
	rt := m.p.rt
	kind, err := m.p.classify(ptr)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "NoneType":
		return nil, nil
	case "bool":
		res := rt.IsTrue(ptr)
		if res < 0 {
			return nil, m.p.failure()
		}
		return res == 1, nil
	case "int":
		return m.p.integer(ptr)
	case "float":
		f := rt.FloatAsDouble(ptr)
		if f == -1 {
			if err := m.p.check(); err != nil {
				return nil, err
			}
		}
		return f, nil
	case "str":
		s, ok := rt.UnicodeAsUTF8(ptr)
		if !ok {
			return nil, m.p.failure()
		}
		return s, nil
	case "bytes":
		b, ok := rt.BytesAsString(ptr)
		if !ok {
			return nil, m.p.failure()
		}
		return b, nil
	case "list", "tuple", "set", "frozenset", "dict":
		if m.seen[ptr] {
			return nil, &errors.MarshalError{Value: kind, Reason: "foreign container contains itself"}
		}
		m.seen[ptr] = true
		defer delete(m.seen, ptr)
	}

	switch kind {
	case "list":
		items, err := m.items(ptr)
		if err != nil {
			return nil, err
		}
		return items, nil
	case "tuple":
		items, err := m.items(ptr)
		if err != nil {
			return nil, err
		}
		return Tuple(items), nil
	case "set", "frozenset":
		set := NewSet()
		err := m.each(ptr, func(item entities.Ptr, v any) {
			if !isComparable(v) {
				v = m.p.acquire(item)
			}
			set.Add(v)
		})
		if err != nil {
			return nil, err
		}
		return set, nil
	case "dict":
		return m.dict(ptr)
	}
	return m.p.acquire(ptr), nil
}

// items materializes every element produced by iterating ptr.
func (m *materializer) items(ptr entities.Ptr) ([]any, error) {
	items := []any{}
	err := m.each(ptr, func(_ entities.Ptr, v any) {
		items = append(items, v)
	})
	return items, err
}

// each iterates ptr and passes every element with its host form to fn.
// The element pointer is borrowed for the duration of fn.
func (m *materializer) each(ptr entities.Ptr, fn func(item entities.Ptr, v any)) error {
	rt := m.p.rt
	it := rt.GetIter(ptr)
	if it == 0 {
		return m.p.failure()
	}
	defer rt.DecRef(it)

	for {
		next := rt.IterNext(it)
		if next == 0 {
			return m.p.check()
		}
		v, err := m.value(next)
		if err == nil {
			fn(next, v)
		}
		rt.DecRef(next)
		if err != nil {
			return err
		}
	}
}

func (m *materializer) dict(ptr entities.Ptr) (*Dict, error) {
	d := NewDict()
	var pos int
	for {
		k, v, ok := m.p.rt.DictNext(ptr, &pos)
		if !ok {
			return d, nil
		}
		key, err := m.value(k)
		if err != nil {
			return nil, err
		}
		if !isComparable(key) {
			key = m.p.acquire(k)
		}
		val, err := m.value(v)
		if err != nil {
			return nil, err
		}
		d.Set(key, val)
	}
}

func isComparable(v any) bool {
	switch v.(type) {
	case []any, Tuple, []byte, *Set, *Dict:
		return false
	}
	return true
}

// integer converts an int object to int64 or *big.Int. The caller must be
// entered.
func (p *Python) integer(ptr entities.Ptr) (any, error) {
	v, overflow := p.rt.LongAsLongLongAndOverflow(ptr)
	if overflow == 0 {
		if v == -1 {
			if err := p.check(); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
	text := p.rawString(ptr, "")
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, &errors.MarshalError{Value: text, Reason: "unparseable integer"}
	}
	return n, nil
}

// expect fails with *errors.MarshalError unless o is an instance of the
// builtin class name.
func (o *Object) expect(name string) (entities.Ptr, error) {
	ptr, err := o.ptr()
	if err != nil {
		return 0, err
	}
	defer runtime.KeepAlive(o)
	cls, err := o.py.builtinType(name)
	if err != nil {
		return 0, err
	}
	switch o.py.rt.IsInstance(ptr, cls.h.ptr) {
	case 1:
		return ptr, nil
	case -1:
		return 0, o.py.failure()
	}
	return 0, &errors.MarshalError{Value: o, Reason: fmt.Sprintf("not a %s", name)}
}

// AsBool returns the value of a bool object.
func (o *Object) AsBool() (bool, error) {
	leave, err := o.use()
	if err != nil {
		return false, err
	}
	defer leave()
	ptr, err := o.expect("bool")
	if err != nil {
		return false, err
	}
	return o.py.rt.IsTrue(ptr) == 1, nil
}

// AsInt64 returns the value of an int object, or *errors.OverflowError when
// it does not fit in an int64.
func (o *Object) AsInt64() (int64, error) {
	leave, err := o.use()
	if err != nil {
		return 0, err
	}
	defer leave()
	ptr, err := o.expect("int")
	if err != nil {
		return 0, err
	}
	v, err := o.py.integer(ptr)
	if err != nil {
		return 0, err
	}
	if n, ok := v.(*big.Int); ok {
		return 0, &errors.OverflowError{Value: n.String(), Target: "int64"}
	}
	return v.(int64), nil
}

// AsBigInt returns the value of an int object at any size.
func (o *Object) AsBigInt() (*big.Int, error) {
	leave, err := o.use()
	if err != nil {
		return nil, err
	}
	defer leave()
	ptr, err := o.expect("int")
	if err != nil {
		return nil, err
	}
	v, err := o.py.integer(ptr)
	if err != nil {
		return nil, err
	}
	if n, ok := v.(*big.Int); ok {
		return n, nil
	}
	return big.NewInt(v.(int64)), nil
}

// AsFloat64 returns the value of a float or int object.
func (o *Object) AsFloat64() (float64, error) {
	leave, err := o.use()
	if err != nil {
		return 0, err
	}
	defer leave()
	ptr, err := o.expect("float")
	if err != nil {
		if ptr, err = o.expect("int"); err != nil {
			return 0, err
		}
	}
	f := o.py.rt.FloatAsDouble(ptr)
	if f == -1 {
		if err := o.py.check(); err != nil {
			return 0, err
		}
	}
	return f, nil
}

// AsString returns the value of a str object.
func (o *Object) AsString() (string, error) {
	leave, err := o.use()
	if err != nil {
		return "", err
	}
	defer leave()
	ptr, err := o.expect("str")
	if err != nil {
		return "", err
	}
	s, ok := o.py.rt.UnicodeAsUTF8(ptr)
	if !ok {
		return "", o.py.failure()
	}
	return s, nil
}

// AsBytes returns a copy of the contents of a bytes object.
func (o *Object) AsBytes() ([]byte, error) {
	leave, err := o.use()
	if err != nil {
		return nil, err
	}
	defer leave()
	ptr, err := o.expect("bytes")
	if err != nil {
		return nil, err
	}
	b, ok := o.py.rt.BytesAsString(ptr)
	if !ok {
		return nil, o.py.failure()
	}
	return b, nil
}
