package pyfake

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// hash returns the identity of p as a dict key. Unhashable objects raise TypeError.
func (r *Runtime) hash(p Ptr) (string, bool) {
	o := r.obj(p)
	switch o.kind {
	case kindNone:
		return "N", true
	case kindBool, kindInt:
		return "i:" + o.num.String(), true
	case kindFloat:
		if !math.IsInf(o.float, 0) && !math.IsNaN(o.float) && o.float == math.Trunc(o.float) {
			i, _ := big.NewFloat(o.float).Int(nil)
			return "i:" + i.String(), true
		}
		return "f:" + strconv.FormatFloat(o.float, 'g', -1, 64), true
	case kindStr:
		return strHash(o.str), true
	case kindBytes:
		return "b:" + string(o.bytes), true
	case kindTuple, kindFrozenSet:
		var parts []string
		if o.kind == kindTuple {
			for _, it := range o.items {
				h, ok := r.hash(it)
				if !ok {
					return "", false
				}
				parts = append(parts, h)
			}
		} else {
			for _, e := range o.dict.entries {
				parts = append(parts, e.hash)
			}
			sort.Strings(parts)
		}
		var b strings.Builder
		b.WriteString("t(")
		for _, h := range parts {
			fmt.Fprintf(&b, "%d:%s", len(h), h)
		}
		b.WriteString(")")
		return b.String(), true
	case kindList, kindDict, kindSet, kindArray:
		r.raise("TypeError", "unhashable type: '%s'", r.typeName(p))
		return "", false
	}
	return fmt.Sprintf("p:%x", uintptr(p)), true
}

// dictSet stores borrowed key and value in d.
func (r *Runtime) dictSet(d *dict, key, value Ptr) bool {
	h, ok := r.hash(key)
	if !ok {
		return false
	}
	r.incref(key)
	r.incref(value)
	r.decrefAll(d.put(h, key, value)...)
	return true
}

func (r *Runtime) dictSetString(d *dict, name string, value Ptr) {
	k := r.newStr(name)
	r.incref(value)
	r.decrefAll(d.put(strHash(name), k, value)...)
}

// dictGet returns a borrowed value. found is false for missing keys; ok is
// false when key is unhashable.
func (r *Runtime) dictGet(d *dict, key Ptr) (value Ptr, found, ok bool) {
	h, ok := r.hash(key)
	if !ok {
		return 0, false, false
	}
	e, found := d.lookup(h)
	return e.value, found, true
}

func (r *Runtime) dictDel(d *dict, key Ptr) (found, ok bool) {
	h, ok := r.hash(key)
	if !ok {
		return false, false
	}
	e, found := d.remove(h)
	if found {
		r.decref(e.key)
		r.decref(e.value)
	}
	return found, true
}

// forEach iterates p with the foreign iteration protocol. fn receives
// borrowed items and may stop early by returning false. It returns false
// when an error is set.
func (r *Runtime) forEach(p Ptr, fn func(item Ptr) bool) bool {
	it := r.GetIter(p)
	if it == 0 {
		return false
	}
	defer r.decref(it)
	for {
		item := r.IterNext(it)
		if item == 0 {
			return r.errType == 0
		}
		cont := fn(item)
		r.decref(item)
		if !cont {
			return true
		}
	}
}

// collect returns new references to every item of p.
func (r *Runtime) collect(p Ptr) ([]Ptr, bool) {
	var items []Ptr
	ok := r.forEach(p, func(item Ptr) bool {
		items = append(items, r.incref(item))
		return true
	})
	if !ok {
		r.decrefAll(items...)
		return nil, false
	}
	return items, true
}

func (r *Runtime) isKind(p Ptr, k kind) bool {
	return p != 0 && r.obj(p).kind == k
}

func (r *Runtime) badInternalCall(fn string) {
	r.raise("SystemError", "%s: bad argument to internal function", fn)
}

func (r *Runtime) ListNew(size int) Ptr {
	if size < 0 {
		r.badInternalCall("PyList_New")
		return 0
	}
	return r.newList(make([]Ptr, size))
}

func (r *Runtime) ListSize(list Ptr) int {
	if !r.isKind(list, kindList) {
		r.badInternalCall("PyList_Size")
		return -1
	}
	return len(r.obj(list).items)
}

func (r *Runtime) ListGetItem(list Ptr, index int) Ptr {
	if !r.isKind(list, kindList) {
		r.badInternalCall("PyList_GetItem")
		return 0
	}
	items := r.obj(list).items
	if index < 0 || index >= len(items) {
		r.raise("IndexError", "list index out of range")
		return 0
	}
	return items[index]
}

func (r *Runtime) ListSetItem(list Ptr, index int, item Ptr) int {
	if !r.isKind(list, kindList) {
		r.decref(item)
		r.badInternalCall("PyList_SetItem")
		return -1
	}
	items := r.obj(list).items
	if index < 0 || index >= len(items) {
		r.decref(item)
		r.raise("IndexError", "list assignment index out of range")
		return -1
	}
	old := items[index]
	items[index] = item
	r.decref(old)
	return 0
}

func (r *Runtime) TupleNew(size int) Ptr {
	if size < 0 {
		r.badInternalCall("PyTuple_New")
		return 0
	}
	return r.newTuple(make([]Ptr, size))
}

func (r *Runtime) TupleSize(tuple Ptr) int {
	if !r.isKind(tuple, kindTuple) {
		r.badInternalCall("PyTuple_Size")
		return -1
	}
	return len(r.obj(tuple).items)
}

func (r *Runtime) TupleGetItem(tuple Ptr, index int) Ptr {
	if !r.isKind(tuple, kindTuple) {
		r.badInternalCall("PyTuple_GetItem")
		return 0
	}
	items := r.obj(tuple).items
	if index < 0 || index >= len(items) {
		r.raise("IndexError", "tuple index out of range")
		return 0
	}
	return items[index]
}

func (r *Runtime) TupleSetItem(tuple Ptr, index int, item Ptr) int {
	if !r.isKind(tuple, kindTuple) {
		r.decref(item)
		r.badInternalCall("PyTuple_SetItem")
		return -1
	}
	items := r.obj(tuple).items
	if index < 0 || index >= len(items) {
		r.decref(item)
		r.raise("IndexError", "tuple assignment index out of range")
		return -1
	}
	old := items[index]
	items[index] = item
	r.decref(old)
	return 0
}

func (r *Runtime) DictNew() Ptr { return r.newDict() }

func (r *Runtime) DictSetItem(d, key, value Ptr) int {
	if !r.isKind(d, kindDict) {
		r.badInternalCall("PyDict_SetItem")
		return -1
	}
	if !r.dictSet(r.obj(d).dict, key, value) {
		return -1
	}
	return 0
}

func (r *Runtime) DictSetItemString(d Ptr, key string, value Ptr) int {
	if !r.isKind(d, kindDict) {
		r.badInternalCall("PyDict_SetItemString")
		return -1
	}
	r.dictSetString(r.obj(d).dict, key, value)
	return 0
}

func (r *Runtime) DictGetItem(d, key Ptr) Ptr {
	if !r.isKind(d, kindDict) {
		return 0
	}
	v, found, ok := r.dictGet(r.obj(d).dict, key)
	if !ok {
		// PyDict_GetItem suppresses lookup errors.
		r.ErrClear()
		return 0
	}
	if !found {
		return 0
	}
	return v
}

func (r *Runtime) DictGetItemString(d Ptr, key string) Ptr {
	if !r.isKind(d, kindDict) {
		return 0
	}
	return r.obj(d).dict.getString(key)
}

func (r *Runtime) DictDelItemString(d Ptr, key string) int {
	if !r.isKind(d, kindDict) {
		r.badInternalCall("PyDict_DelItemString")
		return -1
	}
	e, ok := r.obj(d).dict.remove(strHash(key))
	if !ok {
		k := r.newStr(key)
		r.raiseWith("KeyError", k)
		r.decref(k)
		return -1
	}
	r.decref(e.key)
	r.decref(e.value)
	return 0
}

func (r *Runtime) DictKeys(d Ptr) Ptr {
	if !r.isKind(d, kindDict) {
		r.badInternalCall("PyDict_Keys")
		return 0
	}
	var keys []Ptr
	for _, e := range r.obj(d).dict.entries {
		keys = append(keys, r.incref(e.key))
	}
	return r.newList(keys)
}

func (r *Runtime) DictNext(d Ptr, pos *int) (key, value Ptr, ok bool) {
	if !r.isKind(d, kindDict) {
		return 0, 0, false
	}
	entries := r.obj(d).dict.entries
	if *pos < 0 || *pos >= len(entries) {
		return 0, 0, false
	}
	e := entries[*pos]
	*pos++
	return e.key, e.value, true
}

func (r *Runtime) SetNew(iterable Ptr) Ptr {
	s := r.newSetOf(kindSet)
	if iterable == 0 {
		return s
	}
	d := r.obj(s).dict
	ok := r.forEach(iterable, func(item Ptr) bool {
		return r.dictSet(d, item, 0)
	})
	if !ok || r.errType != 0 {
		r.decref(s)
		return 0
	}
	return s
}

func (r *Runtime) SetAdd(set, key Ptr) int {
	if !r.isKind(set, kindSet) {
		r.badInternalCall("PySet_Add")
		return -1
	}
	if !r.dictSet(r.obj(set).dict, key, 0) {
		return -1
	}
	return 0
}
