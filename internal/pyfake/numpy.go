package pyfake

import (
	"fmt"
	"strings"
)

// ndarray is a dense row-major N-d array of owned element references.
type ndarray struct {
	shape []int
	data  []Ptr
}

func (a *ndarray) strides() []int {
	s := make([]int, len(a.shape))
	acc := 1
	for i := len(a.shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= a.shape[i]
	}
	return s
}

// newArray steals data.
func (r *Runtime) newArray(shape []int, data []Ptr) Ptr {
	return r.alloc(&object{kind: kindArray, typ: r.types["ndarray"], arr: &ndarray{shape: shape, data: data}})
}

// arrayFrom builds an array from nested lists or tuples, or a 0-d array from a scalar.
func (r *Runtime) arrayFrom(src Ptr) Ptr {
	if r.isKind(src, kindArray) {
		a := r.obj(src).arr
		data := make([]Ptr, len(a.data))
		for i, p := range a.data {
			data[i] = r.incref(p)
		}
		return r.newArray(append([]int(nil), a.shape...), data)
	}
	var shape []int
	for p := src; r.isKind(p, kindList) || r.isKind(p, kindTuple); {
		items := r.obj(p).items
		shape = append(shape, len(items))
		if len(items) == 0 {
			break
		}
		p = items[0]
	}
	var data []Ptr
	var walk func(p Ptr, depth int) bool
	walk = func(p Ptr, depth int) bool {
		if depth == len(shape) {
			if r.isKind(p, kindList) || r.isKind(p, kindTuple) {
				return false
			}
			data = append(data, r.incref(p))
			return true
		}
		if !r.isKind(p, kindList) && !r.isKind(p, kindTuple) {
			return false
		}
		items := r.obj(p).items
		if len(items) != shape[depth] {
			return false
		}
		for _, it := range items {
			if !walk(it, depth+1) {
				return false
			}
		}
		return true
	}
	if !walk(src, 0) {
		r.decrefAll(data...)
		r.raise("ValueError", "setting an array element with a sequence. The requested array has an inhomogeneous shape")
		return 0
	}
	return r.newArray(shape, data)
}

// axisSel is the resolved selection on one axis.
type axisSel struct {
	pos  []int
	drop bool
}

// selectArray resolves key against a into per-axis positions.
func (r *Runtime) selectArray(a *ndarray, key Ptr) ([]axisSel, bool) {
	keys := []Ptr{key}
	if r.isKind(key, kindTuple) {
		keys = r.obj(key).items
	}

	explicit := 0
	ellipses := 0
	for _, k := range keys {
		if k == r.ellipsis {
			ellipses++
		} else {
			explicit++
		}
	}
	if ellipses > 1 {
		r.raise("IndexError", "an index can only have a single ellipsis ('...')")
		return nil, false
	}
	ndim := len(a.shape)
	if explicit > ndim {
		r.raise("IndexError", "too many indices for array: array is %d-dimensional, but %d were indexed", ndim, explicit)
		return nil, false
	}

	full := func(n int) axisSel {
		pos := make([]int, n)
		for i := range pos {
			pos[i] = i
		}
		return axisSel{pos: pos}
	}

	var sels []axisSel
	for _, k := range keys {
		axis := len(sels)
		if k == r.ellipsis {
			for i := 0; i < ndim-explicit; i++ {
				sels = append(sels, full(a.shape[len(sels)]))
			}
			continue
		}
		n := a.shape[axis]
		if idx, ok := r.asIndex(k); ok {
			if idx < 0 {
				idx += n
			}
			if idx < 0 || idx >= n {
				r.raise("IndexError", "index %s is out of bounds for axis %d with size %d", r.repr(k), axis, n)
				return nil, false
			}
			sels = append(sels, axisSel{pos: []int{idx}, drop: true})
			continue
		}
		if !r.isKind(k, kindSlice) {
			r.raise("IndexError", "only integers, slices (`:`), ellipsis (`...`) and integer arrays are valid indices")
			return nil, false
		}
		start, step, count, ok := r.sliceIndices(k, n)
		if !ok {
			return nil, false
		}
		sels = append(sels, axisSel{pos: positions(start, step, count)})
	}
	for len(sels) < ndim {
		sels = append(sels, full(a.shape[len(sels)]))
	}
	return sels, true
}

// offsets expands a selection into flat offsets (row-major) and the result shape.
func (a *ndarray) offsets(sels []axisSel) ([]int, []int) {
	var shape []int
	for _, s := range sels {
		if !s.drop {
			shape = append(shape, len(s.pos))
		}
	}
	strides := a.strides()
	out := []int{0}
	for axis, s := range sels {
		next := make([]int, 0, len(out)*len(s.pos))
		for _, base := range out {
			for _, p := range s.pos {
				next = append(next, base+p*strides[axis])
			}
		}
		out = next
	}
	return out, shape
}

func (r *Runtime) arrayGetItem(a *ndarray, key Ptr) Ptr {
	sels, ok := r.selectArray(a, key)
	if !ok {
		return 0
	}
	offs, shape := a.offsets(sels)
	if len(shape) == 0 {
		return r.incref(a.data[offs[0]])
	}
	data := make([]Ptr, len(offs))
	for i, off := range offs {
		data[i] = r.incref(a.data[off])
	}
	return r.newArray(shape, data)
}

func (r *Runtime) arraySetItem(a *ndarray, key, value Ptr) int {
	sels, ok := r.selectArray(a, key)
	if !ok {
		return -1
	}
	offs, _ := a.offsets(sels)

	var src []Ptr
	if r.isKind(value, kindArray) || r.isKind(value, kindList) || r.isKind(value, kindTuple) {
		tmp := r.arrayFrom(value)
		if tmp == 0 {
			return -1
		}
		defer r.decref(tmp)
		src = r.obj(tmp).arr.data
		if len(src) != 1 && len(src) != len(offs) {
			r.raise("ValueError", "could not broadcast input array of size %d into %d positions", len(src), len(offs))
			return -1
		}
	} else {
		src = []Ptr{value}
	}
	for i, off := range offs {
		v := src[0]
		if len(src) > 1 {
			v = src[i]
		}
		old := a.data[off]
		a.data[off] = r.incref(v)
		r.decref(old)
	}
	return 0
}

// arrayRow returns a new reference to a[i] along the first axis.
func (r *Runtime) arrayRow(a *ndarray, i int) Ptr {
	if len(a.shape) == 1 {
		return r.incref(a.data[i])
	}
	width := len(a.data) / a.shape[0]
	data := make([]Ptr, width)
	for j := range data {
		data[j] = r.incref(a.data[i*width+j])
	}
	return r.newArray(append([]int(nil), a.shape[1:]...), data)
}

func (r *Runtime) arrayAttr(a *ndarray, name string) Ptr {
	switch name {
	case "shape":
		items := make([]Ptr, len(a.shape))
		for i, n := range a.shape {
			items[i] = r.newInt64(int64(n))
		}
		return r.newTuple(items)
	case "ndim":
		return r.newInt64(int64(len(a.shape)))
	case "size":
		return r.newInt64(int64(len(a.data)))
	}
	return 0
}

// toList converts a to nested lists; a 0-d array yields its element.
func (r *Runtime) toList(a *ndarray) Ptr {
	var build func(shape []int, data []Ptr) Ptr
	build = func(shape []int, data []Ptr) Ptr {
		if len(shape) == 0 {
			return r.incref(data[0])
		}
		items := make([]Ptr, shape[0])
		width := 0
		if shape[0] > 0 {
			width = len(data) / shape[0]
		}
		for i := range items {
			items[i] = build(shape[1:], data[i*width:(i+1)*width])
		}
		return r.newList(items)
	}
	return build(a.shape, a.data)
}

func (r *Runtime) arrayRepr(a *ndarray, seen map[Ptr]bool) string {
	var build func(shape []int, data []Ptr) string
	build = func(shape []int, data []Ptr) string {
		if len(shape) == 0 {
			return r.reprIn(data[0], seen)
		}
		parts := make([]string, shape[0])
		width := 0
		if shape[0] > 0 {
			width = len(data) / shape[0]
		}
		for i := range parts {
			parts[i] = build(shape[1:], data[i*width:(i+1)*width])
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return build(a.shape, a.data)
}

// installNumpy registers the numpy module.
func (r *Runtime) installNumpy() {
	mod := r.newModule("numpy")
	ndarrayT := r.types["ndarray"]

	r.obj(ndarrayT).call = func(args []Ptr, kw *dict) Ptr {
		r.raise("TypeError", "use numpy.array() to construct arrays")
		return 0
	}
	r.setMethod(ndarrayT, "tolist", func(args []Ptr, kw *dict) Ptr {
		return r.toList(r.obj(args[0]).arr)
	})
	r.setMethod(ndarrayT, "reshape", func(args []Ptr, kw *dict) Ptr {
		a := r.obj(args[0]).arr
		dims := args[1:]
		if len(dims) == 1 && r.isKind(dims[0], kindTuple) {
			dims = r.obj(dims[0]).items
		}
		shape := make([]int, len(dims))
		size := 1
		for i, d := range dims {
			n, ok := r.intArg("reshape", d, 0)
			if !ok {
				return 0
			}
			shape[i] = int(n)
			size *= int(n)
		}
		if size != len(a.data) {
			r.raise("ValueError", "cannot reshape array of size %d into shape %s", len(a.data), shapeString(shape))
			return 0
		}
		data := make([]Ptr, len(a.data))
		for i, p := range a.data {
			data[i] = r.incref(p)
		}
		return r.newArray(shape, data)
	})
	r.setMethod(ndarrayT, "sum", func(args []Ptr, kw *dict) Ptr {
		total := r.newInt64(0)
		for _, p := range r.obj(args[0]).arr.data {
			next := r.binary("+", total, p)
			r.decref(total)
			if next == 0 {
				return 0
			}
			total = next
		}
		return total
	})

	r.define(mod, "ndarray", r.incref(ndarrayT))
	r.defineFunc(mod, "array", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("array", args, 1, 1) {
			return 0
		}
		return r.arrayFrom(args[0])
	})
	r.defineFunc(mod, "arange", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("arange", args, 1, 3) {
			return 0
		}
		var start, stop, step int64 = 0, 0, 1
		vals := make([]int64, len(args))
		for i, a := range args {
			v, ok := r.intArg("arange", a, 0)
			if !ok {
				return 0
			}
			vals[i] = v
		}
		switch len(vals) {
		case 1:
			stop = vals[0]
		case 2:
			start, stop = vals[0], vals[1]
		case 3:
			start, stop, step = vals[0], vals[1], vals[2]
		}
		if step == 0 {
			r.raise("ZeroDivisionError", "division by zero")
			return 0
		}
		var data []Ptr
		for v := start; (step > 0 && v < stop) || (step < 0 && v > stop); v += step {
			data = append(data, r.newInt64(v))
		}
		return r.newArray([]int{len(data)}, data)
	})
	r.defineFunc(mod, "zeros", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("zeros", args, 1, 1) {
			return 0
		}
		dims := []Ptr{args[0]}
		if r.isKind(args[0], kindTuple) {
			dims = r.obj(args[0]).items
		}
		shape := make([]int, len(dims))
		size := 1
		for i, d := range dims {
			n, ok := r.intArg("zeros", d, 0)
			if !ok {
				return 0
			}
			shape[i] = int(n)
			size *= int(n)
		}
		data := make([]Ptr, size)
		for i := range data {
			data[i] = r.newFloat(0)
		}
		return r.newArray(shape, data)
	})
}

func shapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, n := range shape {
		parts[i] = fmt.Sprint(n)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
