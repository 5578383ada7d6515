package pybridge

import (
	"runtime"

	"github.com/reglet-dev/pybridge/application/slice"
	"github.com/reglet-dev/pybridge/domain/entities"
)

// Get resolves key dynamically:
//
//   - a subscript-shaped string ("1:3", "::2", "0, ...") indexes with the
//     parsed subscript; a malformed one returns *errors.SyntaxError
//   - any other string is looked up as an attribute, then as an item when
//     the attribute lookup raises AttributeError
//   - entities.Subscript and entities.SliceSpec index directly
//   - every other key is marshalled and used as an item key
//
// When both the attribute and the item lookup fail, the AttributeError is
// returned unless the item lookup failed with something other than TypeError.
func (o *Object) Get(key any) (*Object, error) {
	switch k := key.(type) {
	case string:
		sub, ok, err := slice.Parse(k)
		if err != nil {
			return nil, err
		}
		if ok {
			return o.Slice(sub)
		}
		v, err := o.GetAttr(k)
		if err == nil || !isAttributeError(err) {
			return v, err
		}
		item, ierr := o.GetItem(k)
		if ierr == nil {
			releaseError(err)
			return item, nil
		}
		return nil, pickError(err, ierr)
	case entities.Subscript:
		return o.Slice(k)
	case entities.SliceSpec:
		return o.Slice(entities.Subscript{k})
	}
	return o.GetItem(key)
}

// Set assigns v under key with the same resolution rules as Get.
func (o *Object) Set(key, v any) error {
	switch k := key.(type) {
	case string:
		sub, ok, err := slice.Parse(k)
		if err != nil {
			return err
		}
		if ok {
			return o.setSubscript(sub, v)
		}
		err = o.SetAttr(k, v)
		if err == nil || !isAttributeError(err) {
			return err
		}
		ierr := o.SetItem(k, v)
		if ierr == nil {
			releaseError(err)
			return nil
		}
		return pickError(err, ierr)
	case entities.Subscript:
		return o.setSubscript(k, v)
	case entities.SliceSpec:
		return o.setSubscript(entities.Subscript{k}, v)
	}
	return o.SetItem(key, v)
}

// Delete removes key: a subscript deletes the item, a name deletes the
// attribute and falls back to deleting the item on AttributeError.
func (o *Object) Delete(key any) error {
	switch k := key.(type) {
	case string:
		sub, ok, err := slice.Parse(k)
		if err != nil {
			return err
		}
		if ok {
			return o.delSubscript(sub)
		}
		err = o.DelAttr(k)
		if err == nil || !isAttributeError(err) {
			return err
		}
		ierr := o.DelItem(k)
		if ierr == nil {
			releaseError(err)
			return nil
		}
		return pickError(err, ierr)
	case entities.Subscript:
		return o.delSubscript(k)
	case entities.SliceSpec:
		return o.delSubscript(entities.Subscript{k})
	}
	return o.DelItem(key)
}

// Has reports whether key resolves as an attribute or as an item. Lookup
// failures count as absence.
func (o *Object) Has(key any) bool {
	if s, ok := key.(string); ok {
		sub, isSub, err := slice.Parse(s)
		if err != nil {
			return false
		}
		if isSub {
			v, err := o.Slice(sub)
			if err != nil {
				releaseError(err)
				return false
			}
			v.Release()
			return true
		}
		if o.HasAttr(s) {
			return true
		}
	}
	v, err := o.Get(key)
	if err != nil {
		releaseError(err)
		return false
	}
	v.Release()
	return true
}

func (o *Object) setSubscript(sub entities.Subscript, v any) error {
	ptr, err := o.ptr()
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	k, err := o.py.subscriptKey(sub)
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

func (o *Object) delSubscript(sub entities.Subscript) error {
	ptr, err := o.ptr()
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	k, err := o.py.subscriptKey(sub)
	if err != nil {
		return err
	}
	defer o.py.rt.DecRef(k)
	return o.py.status(o.py.rt.DelItem(ptr, k))
}

// subscriptKey builds the item key for sub: the bare axis key for a single
// axis, a tuple of axis keys otherwise. It returns a new reference.
func (p *Python) subscriptKey(sub entities.Subscript) (entities.Ptr, error) {
	if len(sub) == 1 {
		return p.axisKey(sub[0])
	}
	tuple := p.rt.TupleNew(len(sub))
	if tuple == 0 {
		return 0, p.failure()
	}
	for i, ax := range sub {
		k, err := p.axisKey(ax)
		if err == nil {
			err = p.status(p.rt.TupleSetItem(tuple, i, k))
		}
		if err != nil {
			p.rt.DecRef(tuple)
			return 0, err
		}
	}
	return tuple, nil
}

func (p *Python) axisKey(ax entities.SliceSpec) (entities.Ptr, error) {
	switch ax.Kind {
	case entities.AxisIndex:
		k := p.rt.LongFromLongLong(ax.Index)
		if k == 0 {
			return 0, p.failure()
		}
		return k, nil
	case entities.AxisEllipsis:
		e := p.rt.Ellipsis()
		p.rt.IncRef(e)
		return e, nil
	}

	var parts [3]entities.Ptr
	release := func() {
		for _, part := range parts {
			if part != 0 {
				p.rt.DecRef(part)
			}
		}
	}
	for i, v := range [3]*int64{ax.Start, ax.Stop, ax.Step} {
		if v == nil {
			continue
		}
		if parts[i] = p.rt.LongFromLongLong(*v); parts[i] == 0 {
			release()
			return 0, p.failure()
		}
	}
	s := p.rt.SliceNew(parts[0], parts[1], parts[2])
	release()
	if s == 0 {
		return 0, p.failure()
	}
	return s, nil
}

func isAttributeError(err error) bool {
	pe, ok := AsPythonError(err)
	return ok && pe.Matches("AttributeError")
}

// pickError chooses between the attribute error and the item error of a
// failed fallback and releases the other one.
func pickError(attrErr, itemErr error) error {
	if pe, ok := AsPythonError(itemErr); ok && pe.Matches("TypeError") {
		pe.Release()
		return attrErr
	}
	releaseError(attrErr)
	return itemErr
}

func releaseError(err error) {
	if pe, ok := AsPythonError(err); ok {
		pe.Release()
	}
}
