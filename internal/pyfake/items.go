package pyfake

import (
	"math"
	"math/big"
)

// asIndex converts an int object to a Go int, clamping huge magnitudes.
func (r *Runtime) asIndex(p Ptr) (int, bool) {
	o := r.obj(p)
	if o.kind != kindInt && o.kind != kindBool {
		return 0, false
	}
	if !o.num.IsInt64() {
		if o.num.Sign() < 0 {
			return math.MinInt, true
		}
		return math.MaxInt, true
	}
	return int(o.num.Int64()), true
}

// sliceIndices resolves a slice object against a sequence of length n the
// way slice.indices does.
func (r *Runtime) sliceIndices(sl Ptr, n int) (start, step, count int, ok bool) {
	items := r.obj(sl).items
	var parts [3]*int
	for i, p := range items {
		if p == r.none {
			continue
		}
		v, isInt := r.asIndex(p)
		if !isInt {
			r.raise("TypeError", "slice indices must be integers or None or have an __index__ method")
			return 0, 0, 0, false
		}
		parts[i] = &v
	}

	step = 1
	if parts[2] != nil {
		step = *parts[2]
		if step == 0 {
			r.raise("ValueError", "slice step cannot be zero")
			return 0, 0, 0, false
		}
	}

	adjust := func(v int) int {
		if v < 0 {
			v += n
			if v < 0 {
				if step < 0 {
					return -1
				}
				return 0
			}
		} else if v >= n {
			if step < 0 {
				return n - 1
			}
			return n
		}
		return v
	}

	var stop int
	if step > 0 {
		start, stop = 0, n
	} else {
		start, stop = n-1, -1
	}
	if parts[0] != nil {
		start = adjust(*parts[0])
	}
	if parts[1] != nil {
		stop = adjust(*parts[1])
	}

	switch {
	case step > 0 && start < stop:
		count = (stop-start-1)/step + 1
	case step < 0 && stop < start:
		count = (start-stop-1)/(-step) + 1
	}
	return start, step, count, true
}

// positions lists the indices a slice selects.
func positions(start, step, count int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = start + i*step
	}
	return out
}

func (r *Runtime) GetItem(o, key Ptr) Ptr {
	ob := r.obj(o)
	switch ob.kind {
	case kindList, kindTuple, kindStr, kindBytes:
		return r.seqGetItem(o, key)
	case kindDict:
		v, found, ok := r.dictGet(ob.dict, key)
		if !ok {
			return 0
		}
		if !found {
			r.raiseWith("KeyError", key)
			return 0
		}
		return r.incref(v)
	case kindArray:
		return r.arrayGetItem(ob.arr, key)
	}
	r.raise("TypeError", "'%s' object is not subscriptable", r.typeName(o))
	return 0
}

func (r *Runtime) seqLen(ob *object) int {
	switch ob.kind {
	case kindStr:
		return len([]rune(ob.str))
	case kindBytes:
		return len(ob.bytes)
	}
	return len(ob.items)
}

func (r *Runtime) seqGetItem(o, key Ptr) Ptr {
	ob := r.obj(o)
	n := r.seqLen(ob)
	name := r.typeName(o)
	if name == "str" {
		name = "string"
	}

	if idx, ok := r.asIndex(key); ok {
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			r.raise("IndexError", "%s index out of range", name)
			return 0
		}
		switch ob.kind {
		case kindStr:
			return r.newStr(string([]rune(ob.str)[idx]))
		case kindBytes:
			return r.newInt64(int64(ob.bytes[idx]))
		}
		return r.incref(ob.items[idx])
	}

	if !r.isKind(key, kindSlice) {
		r.raise("TypeError", "%s indices must be integers or slices, not %s", name, r.typeName(key))
		return 0
	}
	start, step, count, ok := r.sliceIndices(key, n)
	if !ok {
		return 0
	}
	pos := positions(start, step, count)
	switch ob.kind {
	case kindStr:
		runes := []rune(ob.str)
		out := make([]rune, len(pos))
		for i, p := range pos {
			out[i] = runes[p]
		}
		return r.newStr(string(out))
	case kindBytes:
		out := make([]byte, len(pos))
		for i, p := range pos {
			out[i] = ob.bytes[p]
		}
		return r.newBytes(out)
	}
	items := make([]Ptr, len(pos))
	for i, p := range pos {
		items[i] = r.incref(ob.items[p])
	}
	if ob.kind == kindTuple {
		return r.newTuple(items)
	}
	return r.newList(items)
}

func (r *Runtime) SetItem(o, key, value Ptr) int {
	ob := r.obj(o)
	switch ob.kind {
	case kindList:
		return r.listSetItem(o, key, value)
	case kindDict:
		if !r.dictSet(ob.dict, key, value) {
			return -1
		}
		return 0
	case kindArray:
		return r.arraySetItem(ob.arr, key, value)
	}
	r.raise("TypeError", "'%s' object does not support item assignment", r.typeName(o))
	return -1
}

func (r *Runtime) listSetItem(o, key, value Ptr) int {
	ob := r.obj(o)
	n := len(ob.items)
	if idx, ok := r.asIndex(key); ok {
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			r.raise("IndexError", "list assignment index out of range")
			return -1
		}
		old := ob.items[idx]
		ob.items[idx] = r.incref(value)
		r.decref(old)
		return 0
	}
	if !r.isKind(key, kindSlice) {
		r.raise("TypeError", "list indices must be integers or slices, not %s", r.typeName(key))
		return -1
	}
	start, step, count, ok := r.sliceIndices(key, n)
	if !ok {
		return -1
	}
	repl, ok := r.collect(value)
	if !ok {
		return -1
	}

	if step == 1 {
		stop := start + count
		old := append([]Ptr(nil), ob.items[start:stop]...)
		items := append([]Ptr(nil), ob.items[:start]...)
		items = append(items, repl...)
		ob.items = append(items, ob.items[stop:]...)
		r.decrefAll(old...)
		return 0
	}
	if len(repl) != count {
		r.decrefAll(repl...)
		r.raise("ValueError", "attempt to assign sequence of size %d to extended slice of size %d", len(repl), count)
		return -1
	}
	for i, p := range positions(start, step, count) {
		old := ob.items[p]
		ob.items[p] = repl[i]
		r.decref(old)
	}
	return 0
}

func (r *Runtime) DelItem(o, key Ptr) int {
	ob := r.obj(o)
	switch ob.kind {
	case kindList:
		n := len(ob.items)
		var drop []int
		if idx, ok := r.asIndex(key); ok {
			if idx < 0 {
				idx += n
			}
			if idx < 0 || idx >= n {
				r.raise("IndexError", "list assignment index out of range")
				return -1
			}
			drop = []int{idx}
		} else if r.isKind(key, kindSlice) {
			start, step, count, ok := r.sliceIndices(key, n)
			if !ok {
				return -1
			}
			drop = positions(start, step, count)
		} else {
			r.raise("TypeError", "list indices must be integers or slices, not %s", r.typeName(key))
			return -1
		}
		gone := make(map[int]bool, len(drop))
		for _, i := range drop {
			gone[i] = true
		}
		var kept, released []Ptr
		for i, p := range ob.items {
			if gone[i] {
				released = append(released, p)
			} else {
				kept = append(kept, p)
			}
		}
		ob.items = kept
		r.decrefAll(released...)
		return 0
	case kindDict:
		found, ok := r.dictDel(ob.dict, key)
		if !ok {
			return -1
		}
		if !found {
			r.raiseWith("KeyError", key)
			return -1
		}
		return 0
	}
	r.raise("TypeError", "'%s' object doesn't support item deletion", r.typeName(o))
	return -1
}

// intArg reads an optional int argument, returning def when p is 0 or None.
func (r *Runtime) intArg(fn string, p Ptr, def int64) (int64, bool) {
	if p == 0 || p == r.none {
		return def, true
	}
	o := r.obj(p)
	if o.kind != kindInt && o.kind != kindBool {
		r.raise("TypeError", "%s() argument must be int, not %s", fn, r.typeName(p))
		return 0, false
	}
	if !o.num.IsInt64() {
		r.raise("OverflowError", "Python int too large to convert to C long")
		return 0, false
	}
	return o.num.Int64(), true
}

func bigOf(v int64) *big.Int { return big.NewInt(v) }
