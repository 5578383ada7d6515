package pybridge

import (
	"fmt"
	"iter"
	"runtime"

	"github.com/reglet-dev/pybridge/domain/entities"
)

// Object is a proxy for one foreign object. It owns one reference, dropped
// by Release or, failing that, after garbage collection.
//
// An Object must not be used from several goroutines at once.
type Object struct {
	h  *handle
	py *Python
}

// Proxy is implemented by host types that wrap a foreign object. Passing a
// Proxy to the bridge passes the wrapped object itself.
type Proxy interface {
	PyObject() *Object
}

// PyObject implements Proxy.
func (o *Object) PyObject() *Object { return o }

// Bridge returns the bridge o belongs to.
func (o *Object) Bridge() *Python { return o.py }

// GetAttr returns the attribute name.
func (o *Object) GetAttr(name string) (*Object, error) {
	ptr, err := o.ptr()
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	return o.py.result(o.py.rt.GetAttrString(ptr, name))
}

// SetAttr sets the attribute name to the marshalled v.
func (o *Object) SetAttr(name string, v any) error {
	ptr, err := o.ptr()
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	val, err := o.py.toForeign(v)
	if err != nil {
		return err
	}
	defer o.py.rt.DecRef(val)
	return o.py.status(o.py.rt.SetAttrString(ptr, name, val))
}

// DelAttr deletes the attribute name.
func (o *Object) DelAttr(name string) error {
	ptr, err := o.ptr()
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	return o.py.status(o.py.rt.DelAttrString(ptr, name))
}

// HasAttr reports whether the attribute name exists.
func (o *Object) HasAttr(name string) bool {
	ptr, err := o.ptr()
	if err != nil {
		return false
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	return o.py.rt.HasAttrString(ptr, name)
}

// GetItem returns o[key] with key marshalled as-is. Strings are not parsed
// as subscripts; use Get or Slice for that.
func (o *Object) GetItem(key any) (*Object, error) {
	ptr, err := o.ptr()
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	k, err := o.py.toForeign(key)
	if err != nil {
		return nil, err
	}
	defer o.py.rt.DecRef(k)
	return o.py.result(o.py.rt.GetItem(ptr, k))
}

// SetItem performs o[key] = v.
func (o *Object) SetItem(key, v any) error {
	ptr, err := o.ptr()
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	k, err := o.py.toForeign(key)
	if err != nil {
		return err
	}
	defer o.py.rt.DecRef(k)
	val, err := o.py.toForeign(v)
	if err != nil {
		return err
	}
	defer o.py.rt.DecRef(val)
	return o.py.status(o.py.rt.SetItem(ptr, k, val))
}

// DelItem performs del o[key].
func (o *Object) DelItem(key any) error {
	ptr, err := o.ptr()
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	k, err := o.py.toForeign(key)
	if err != nil {
		return err
	}
	defer o.py.rt.DecRef(k)
	return o.py.status(o.py.rt.DelItem(ptr, k))
}

// HasItem reports whether o[key] succeeds.
func (o *Object) HasItem(key any) bool {
	v, err := o.GetItem(key)
	if err != nil {
		return false
	}
	v.Release()
	return true
}

// Slice returns o[sub] for an already parsed subscript.
func (o *Object) Slice(sub entities.Subscript) (*Object, error) {
	ptr, err := o.ptr()
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	k, err := o.py.subscriptKey(sub)
	if err != nil {
		return nil, err
	}
	defer o.py.rt.DecRef(k)
	return o.py.result(o.py.rt.GetItem(ptr, k))
}

// Call calls o. NamedArgument and Kwargs values among args become keyword
// arguments; everything else is passed positionally in order.
func (o *Object) Call(args ...any) (*Object, error) {
	ptr, err := o.ptr()
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	return o.py.call(ptr, args)
}

// CallMethod looks up the attribute name and calls it.
func (o *Object) CallMethod(name string, args ...any) (*Object, error) {
	fn, err := o.GetAttr(name)
	if err != nil {
		return nil, err
	}
	defer fn.Release()
	return fn.Call(args...)
}

// IsCallable reports whether o can be called.
func (o *Object) IsCallable() bool {
	ptr, err := o.ptr()
	if err != nil {
		return false
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	return o.py.rt.IsCallable(ptr)
}

// call invokes callable with host arguments. The caller must be entered.
func (p *Python) call(callable entities.Ptr, args []any) (*Object, error) {
	positional, kwargs := splitArgs(args)

	tuple := p.rt.TupleNew(len(positional))
	if tuple == 0 {
		return nil, p.failure()
	}
	defer p.rt.DecRef(tuple)
	for i, a := range positional {
		v, err := p.toForeign(a)
		if err != nil {
			return nil, err
		}
		if err := p.status(p.rt.TupleSetItem(tuple, i, v)); err != nil {
			return nil, err
		}
	}

	var dict entities.Ptr
	if len(kwargs) > 0 {
		var err error
		if dict, err = p.kwargsDict(kwargs); err != nil {
			return nil, err
		}
		defer p.rt.DecRef(dict)
	}
	return p.result(p.rt.Call(callable, tuple, dict))
}

func (p *Python) kwargsDict(kwargs Kwargs) (entities.Ptr, error) {
	dict := p.rt.DictNew()
	if dict == 0 {
		return 0, p.failure()
	}
	for _, kw := range kwargs {
		v, err := p.toForeign(kw.Value)
		if err != nil {
			p.rt.DecRef(dict)
			return 0, err
		}
		rc := p.rt.DictSetItemString(dict, kw.Name, v)
		p.rt.DecRef(v)
		if err := p.status(rc); err != nil {
			p.rt.DecRef(dict)
			return 0, err
		}
	}
	return dict, nil
}

// splitArgs separates keyword arguments from positional ones, keeping the
// relative order of each.
func splitArgs(args []any) ([]any, Kwargs) {
	var (
		positional []any
		kwargs     Kwargs
	)
	for _, a := range args {
		switch v := a.(type) {
		case NamedArgument:
			kwargs = append(kwargs, v)
		case *NamedArgument:
			kwargs = append(kwargs, *v)
		case Kwargs:
			kwargs = append(kwargs, v...)
		default:
			positional = append(positional, a)
		}
	}
	return positional, kwargs
}

// Iter ranges over o with the foreign iteration protocol. Each range obtains
// a fresh iterator. Yielded objects belong to the caller.
//
//	for item, err := range list.Iter() {
//	    if err != nil { return err }
//	    defer item.Release()
//	}
func (o *Object) Iter() iter.Seq2[*Object, error] {
	return func(yield func(*Object, error) bool) {
		ptr, err := o.ptr()
		if err != nil {
			yield(nil, err)
			return
		}
		defer runtime.KeepAlive(o)
		p := o.py
		p.enter()
		it := p.rt.GetIter(ptr)
		if it == 0 {
			err := p.failure()
			p.leave()
			yield(nil, err)
			return
		}
		p.leave()
		defer func() {
			p.enter()
			p.rt.DecRef(it)
			p.leave()
		}()

		for {
			p.enter()
			next := p.rt.IterNext(it)
			var item *Object
			if next == 0 {
				err = p.check()
			} else {
				item = p.steal(next)
			}
			p.leave()

			if item == nil {
				if err != nil {
					yield(nil, err)
				}
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Len returns len(o).
func (o *Object) Len() (int, error) {
	ptr, err := o.ptr()
	if err != nil {
		return 0, err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	n := o.py.rt.Length(ptr)
	if n < 0 {
		return 0, o.py.failure()
	}
	return n, nil
}

// Compare applies the rich comparison op between o and the marshalled other.
func (o *Object) Compare(other any, op entities.CompareOp) (bool, error) {
	if !op.Valid() {
		return false, fmt.Errorf("pybridge: invalid comparison operator %d", int(op))
	}
	ptr, err := o.ptr()
	if err != nil {
		return false, err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	b, err := o.py.toForeign(other)
	if err != nil {
		return false, err
	}
	defer o.py.rt.DecRef(b)
	res := o.py.rt.RichCompareBool(ptr, b, op)
	if res < 0 {
		return false, o.py.failure()
	}
	return res == 1, nil
}

// Equal reports o == other.
func (o *Object) Equal(other any) (bool, error) { return o.Compare(other, entities.CompareEQ) }

// NotEqual reports o != other.
func (o *Object) NotEqual(other any) (bool, error) { return o.Compare(other, entities.CompareNE) }

// Less reports o < other.
func (o *Object) Less(other any) (bool, error) { return o.Compare(other, entities.CompareLT) }

// LessEqual reports o <= other.
func (o *Object) LessEqual(other any) (bool, error) { return o.Compare(other, entities.CompareLE) }

// Greater reports o > other.
func (o *Object) Greater(other any) (bool, error) { return o.Compare(other, entities.CompareGT) }

// GreaterEqual reports o >= other.
func (o *Object) GreaterEqual(other any) (bool, error) { return o.Compare(other, entities.CompareGE) }

// Str returns str(o).
func (o *Object) Str() (string, error) {
	return o.text(o.py.rt.Str)
}

// Repr returns repr(o).
func (o *Object) Repr() (string, error) {
	return o.text(o.py.rt.Repr)
}

func (o *Object) text(conv func(entities.Ptr) entities.Ptr) (string, error) {
	ptr, err := o.ptr()
	if err != nil {
		return "", err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	s := conv(ptr)
	if s == 0 {
		return "", o.py.failure()
	}
	defer o.py.rt.DecRef(s)
	text, ok := o.py.rt.UnicodeAsUTF8(s)
	if !ok {
		return "", o.py.failure()
	}
	return text, nil
}

// String implements fmt.Stringer with str(o).
func (o *Object) String() string {
	if o.Released() {
		return "<released>"
	}
	s, err := o.Str()
	if err != nil {
		return fmt.Sprintf("<unprintable: %v>", err)
	}
	return s
}

// Type returns type(o).
func (o *Object) Type() (*Object, error) {
	ptr, err := o.ptr()
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	return o.py.result(o.py.rt.Type(ptr))
}

// TypeName returns type(o).__name__.
func (o *Object) TypeName() (string, error) {
	t, err := o.Type()
	if err != nil {
		return "", err
	}
	defer t.Release()
	name, err := t.GetAttr("__name__")
	if err != nil {
		return "", err
	}
	defer name.Release()
	return name.Str()
}

// IsInstance reports isinstance(o, cls).
func (o *Object) IsInstance(cls *Object) (bool, error) {
	ptr, err := o.ptr()
	if err != nil {
		return false, err
	}
	defer runtime.KeepAlive(o)
	c, err := cls.ptr()
	if err != nil {
		return false, err
	}
	defer runtime.KeepAlive(cls)
	o.py.enter()
	defer o.py.leave()
	res := o.py.rt.IsInstance(ptr, c)
	if res < 0 {
		return false, o.py.failure()
	}
	return res == 1, nil
}

// IsNone reports whether o is None.
func (o *Object) IsNone() bool {
	ptr, err := o.ptr()
	return err == nil && ptr == o.py.rt.None()
}

// Truthy reports bool(o).
func (o *Object) Truthy() (bool, error) {
	ptr, err := o.ptr()
	if err != nil {
		return false, err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	res := o.py.rt.IsTrue(ptr)
	if res < 0 {
		return false, o.py.failure()
	}
	return res == 1, nil
}

// Is reports whether o and other are the same foreign object.
func (o *Object) Is(other *Object) bool {
	a, err := o.ptr()
	if err != nil {
		return false
	}
	b, err := other.ptr()
	return err == nil && a == b
}
