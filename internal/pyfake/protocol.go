package pyfake

import (
	"math"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/ports"
)

func (r *Runtime) None() Ptr     { return r.none }
func (r *Runtime) Ellipsis() Ptr { return r.ellipsis }

func (r *Runtime) BoolFromLong(v int64) Ptr     { return r.newBool(v != 0) }
func (r *Runtime) LongFromLongLong(v int64) Ptr { return r.newInt64(v) }
func (r *Runtime) FloatFromDouble(v float64) Ptr {
	return r.newFloat(v)
}

func (r *Runtime) LongFromString(s string, base int) Ptr {
	t := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	v, ok := new(big.Int).SetString(t, base)
	if !ok || t == "" {
		r.raise("ValueError", "invalid literal for int() with base %d: %s", base, quote(s))
		return 0
	}
	return r.newInt(v)
}

func (r *Runtime) LongAsLongLongAndOverflow(o Ptr) (int64, int) {
	ob := r.obj(o)
	if ob.kind != kindInt && ob.kind != kindBool {
		r.raise("TypeError", "'%s' object cannot be interpreted as an integer", r.typeName(o))
		return -1, 0
	}
	if ob.num.IsInt64() {
		return ob.num.Int64(), 0
	}
	if ob.num.Sign() < 0 {
		return -1, -1
	}
	return -1, 1
}

func (r *Runtime) FloatAsDouble(o Ptr) float64 {
	ob := r.obj(o)
	switch ob.kind {
	case kindFloat:
		return ob.float
	case kindInt, kindBool:
		f, _ := new(big.Float).SetInt(ob.num).Float64()
		if math.IsInf(f, 0) {
			r.raise("OverflowError", "int too large to convert to float")
			return -1
		}
		return f
	}
	r.raise("TypeError", "must be real number, not %s", r.typeName(o))
	return -1
}

func (r *Runtime) UnicodeFromString(s string) Ptr {
	if !utf8.ValidString(s) {
		r.raise("UnicodeDecodeError", "'utf-8' codec can't decode bytes: invalid start byte")
		return 0
	}
	return r.newStr(s)
}

func (r *Runtime) UnicodeAsUTF8(o Ptr) (string, bool) {
	if !r.isKind(o, kindStr) {
		r.raise("TypeError", "bad argument type for built-in operation")
		return "", false
	}
	return r.obj(o).str, true
}

func (r *Runtime) BytesFromString(b []byte) Ptr { return r.newBytes(b) }

func (r *Runtime) BytesAsString(o Ptr) ([]byte, bool) {
	if !r.isKind(o, kindBytes) {
		r.raise("TypeError", "expected bytes, %s found", r.typeName(o))
		return nil, false
	}
	return append([]byte(nil), r.obj(o).bytes...), true
}

func (r *Runtime) Str(o Ptr) Ptr {
	if r.isKind(o, kindStr) {
		return r.incref(o)
	}
	return r.newStr(r.str(o))
}

func (r *Runtime) Repr(o Ptr) Ptr { return r.newStr(r.repr(o)) }

func (r *Runtime) Type(o Ptr) Ptr { return r.incref(r.obj(o).typ) }

func (r *Runtime) IsInstance(o, cls Ptr) int {
	c := r.obj(cls)
	switch c.kind {
	case kindTuple:
		for _, item := range c.items {
			if res := r.IsInstance(o, item); res != 0 {
				return res
			}
		}
		return 0
	case kindType:
		if r.isSubclass(r.obj(o).typ, cls) {
			return 1
		}
		return 0
	}
	r.raise("TypeError", "isinstance() arg 2 must be a type, a tuple of types, or a union")
	return -1
}

func (r *Runtime) IsTrue(o Ptr) int {
	ob := r.obj(o)
	switch ob.kind {
	case kindNone:
		return 0
	case kindBool, kindInt:
		return b2i(ob.num.Sign() != 0)
	case kindFloat:
		return b2i(ob.float != 0)
	case kindStr:
		return b2i(ob.str != "")
	case kindBytes:
		return b2i(len(ob.bytes) > 0)
	case kindList, kindTuple:
		return b2i(len(ob.items) > 0)
	case kindDict, kindSet, kindFrozenSet:
		return b2i(ob.dict.len() > 0)
	case kindArray:
		if len(ob.arr.data) != 1 {
			r.raise("ValueError", "The truth value of an array with more than one element is ambiguous. Use a.any() or a.all()")
			return -1
		}
		return r.IsTrue(ob.arr.data[0])
	}
	return 1
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *Runtime) RichCompare(a, b Ptr, op entities.CompareOp) Ptr {
	res, ok := r.compare(a, b, op)
	if !ok {
		return 0
	}
	return r.newBool(res)
}

func (r *Runtime) RichCompareBool(a, b Ptr, op entities.CompareOp) int {
	if a == b {
		switch op {
		case entities.CompareEQ:
			return 1
		case entities.CompareNE:
			return 0
		}
	}
	res, ok := r.compare(a, b, op)
	if !ok {
		return -1
	}
	return b2i(res)
}

func (r *Runtime) compare(a, b Ptr, op entities.CompareOp) (bool, bool) {
	switch op {
	case entities.CompareEQ:
		return r.equal(a, b), true
	case entities.CompareNE:
		return !r.equal(a, b), true
	}
	c, ok := r.order(a, b)
	if !ok {
		if r.errType == 0 {
			r.raise("TypeError", "'%s' not supported between instances of '%s' and '%s'", op, r.typeName(a), r.typeName(b))
		}
		return false, false
	}
	switch op {
	case entities.CompareLT:
		return c < 0, true
	case entities.CompareLE:
		return c <= 0, true
	case entities.CompareGT:
		return c > 0, true
	case entities.CompareGE:
		return c >= 0, true
	}
	r.badInternalCall("PyObject_RichCompare")
	return false, false
}

func (r *Runtime) isNumber(p Ptr) bool {
	switch r.obj(p).kind {
	case kindBool, kindInt, kindFloat:
		return true
	}
	return false
}

func (r *Runtime) bigFloat(p Ptr) *big.Float {
	o := r.obj(p)
	if o.kind == kindFloat {
		return big.NewFloat(o.float)
	}
	return new(big.Float).SetInt(o.num)
}

func (r *Runtime) cmpNumbers(a, b Ptr) int {
	oa, ob := r.obj(a), r.obj(b)
	if oa.kind != kindFloat && ob.kind != kindFloat {
		return oa.num.Cmp(ob.num)
	}
	if math.IsNaN(r.floatOf(a)) || math.IsNaN(r.floatOf(b)) {
		return 2
	}
	return r.bigFloat(a).Cmp(r.bigFloat(b))
}

func (r *Runtime) floatOf(p Ptr) float64 {
	o := r.obj(p)
	if o.kind == kindFloat {
		return o.float
	}
	f, _ := new(big.Float).SetInt(o.num).Float64()
	return f
}

func (r *Runtime) equal(a, b Ptr) bool {
	if a == b {
		return true
	}
	oa, ob := r.obj(a), r.obj(b)
	if r.isNumber(a) && r.isNumber(b) {
		return r.cmpNumbers(a, b) == 0
	}
	switch {
	case oa.kind == kindStr && ob.kind == kindStr:
		return oa.str == ob.str
	case oa.kind == kindBytes && ob.kind == kindBytes:
		return string(oa.bytes) == string(ob.bytes)
	case oa.kind == ob.kind && (oa.kind == kindList || oa.kind == kindTuple):
		if len(oa.items) != len(ob.items) {
			return false
		}
		for i := range oa.items {
			if !r.equal(oa.items[i], ob.items[i]) {
				return false
			}
		}
		return true
	case oa.kind == kindDict && ob.kind == kindDict:
		if oa.dict.len() != ob.dict.len() {
			return false
		}
		for _, e := range oa.dict.entries {
			other, ok := ob.dict.lookup(e.hash)
			if !ok || !r.equal(e.value, other.value) {
				return false
			}
		}
		return true
	case (oa.kind == kindSet || oa.kind == kindFrozenSet) && (ob.kind == kindSet || ob.kind == kindFrozenSet):
		if oa.dict.len() != ob.dict.len() {
			return false
		}
		for _, e := range oa.dict.entries {
			if _, ok := ob.dict.lookup(e.hash); !ok {
				return false
			}
		}
		return true
	}
	return false
}

// order returns -1, 0 or 1. ok is false when the operands are unorderable.
func (r *Runtime) order(a, b Ptr) (int, bool) {
	oa, ob := r.obj(a), r.obj(b)
	if r.isNumber(a) && r.isNumber(b) {
		c := r.cmpNumbers(a, b)
		return c, c != 2
	}
	switch {
	case oa.kind == kindStr && ob.kind == kindStr:
		return strings.Compare(oa.str, ob.str), true
	case oa.kind == kindBytes && ob.kind == kindBytes:
		return strings.Compare(string(oa.bytes), string(ob.bytes)), true
	case oa.kind == ob.kind && (oa.kind == kindList || oa.kind == kindTuple):
		for i := 0; i < len(oa.items) && i < len(ob.items); i++ {
			if r.equal(oa.items[i], ob.items[i]) {
				continue
			}
			return r.order(oa.items[i], ob.items[i])
		}
		switch {
		case len(oa.items) < len(ob.items):
			return -1, true
		case len(oa.items) > len(ob.items):
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (r *Runtime) SliceNew(start, stop, step Ptr) Ptr {
	items := make([]Ptr, 3)
	for i, p := range []Ptr{start, stop, step} {
		if p == 0 {
			p = r.none
		}
		items[i] = r.incref(p)
	}
	return r.alloc(&object{kind: kindSlice, typ: r.types["slice"], items: items})
}

// lookupType finds name along cls's base chain. The result is borrowed.
func (r *Runtime) lookupType(cls Ptr, name string) Ptr {
	for c := cls; c != 0; c = r.obj(c).base {
		if ns := r.obj(c).ns; ns != 0 {
			if v := r.obj(ns).dict.getString(name); v != 0 {
				return v
			}
		}
	}
	return 0
}

func (r *Runtime) GetAttrString(o Ptr, name string) Ptr {
	ob := r.obj(o)
	switch name {
	case "__class__":
		return r.incref(ob.typ)
	case "__name__":
		switch ob.kind {
		case kindType, kindFunc:
			return r.newStr(ob.str)
		}
	case "__dict__":
		if ob.ns != 0 {
			return r.incref(ob.ns)
		}
	}

	switch ob.kind {
	case kindModule, kindInstance:
		if v := r.obj(ob.ns).dict.getString(name); v != 0 {
			return r.incref(v)
		}
	case kindType:
		if v := r.lookupType(o, name); v != 0 {
			return r.incref(v)
		}
		r.raise("AttributeError", "type object '%s' has no attribute '%s'", ob.str, name)
		return 0
	case kindSlice:
		switch name {
		case "start":
			return r.incref(ob.items[0])
		case "stop":
			return r.incref(ob.items[1])
		case "step":
			return r.incref(ob.items[2])
		}
	case kindArray:
		if v := r.arrayAttr(ob.arr, name); v != 0 {
			return v
		}
	}

	if v := r.lookupType(ob.typ, name); v != 0 {
		if fn := r.obj(v); fn.kind == kindFunc && fn.method {
			return r.alloc(&object{kind: kindFunc, typ: r.types["method"], str: fn.str, call: fn.call, self: r.incref(o)})
		}
		return r.incref(v)
	}

	if ob.kind == kindModule {
		r.raise("AttributeError", "module '%s' has no attribute '%s'", ob.str, name)
	} else {
		r.raise("AttributeError", "'%s' object has no attribute '%s'", r.typeName(o), name)
	}
	return 0
}

func (r *Runtime) SetAttrString(o Ptr, name string, value Ptr) int {
	if value == 0 {
		return r.DelAttrString(o, name)
	}
	ob := r.obj(o)
	switch {
	case ob.kind == kindModule || ob.kind == kindInstance:
		r.dictSetString(r.obj(ob.ns).dict, name, value)
		return 0
	case ob.kind == kindType && !ob.immortal:
		r.dictSetString(r.obj(ob.ns).dict, name, value)
		return 0
	case ob.kind == kindType:
		r.raise("TypeError", "cannot set '%s' attribute of immutable type '%s'", name, ob.str)
		return -1
	}
	if r.lookupType(ob.typ, name) != 0 {
		r.raise("AttributeError", "'%s' object attribute '%s' is read-only", r.typeName(o), name)
		return -1
	}
	r.raise("AttributeError", "'%s' object has no attribute '%s'", r.typeName(o), name)
	return -1
}

func (r *Runtime) HasAttrString(o Ptr, name string) bool {
	v := r.GetAttrString(o, name)
	if v == 0 {
		r.ErrClear()
		return false
	}
	r.decref(v)
	return true
}

func (r *Runtime) DelAttrString(o Ptr, name string) int {
	ob := r.obj(o)
	if ob.kind == kindModule || ob.kind == kindInstance || (ob.kind == kindType && !ob.immortal) {
		e, ok := r.obj(ob.ns).dict.remove(strHash(name))
		if ok {
			r.decref(e.key)
			r.decref(e.value)
			return 0
		}
	}
	r.raise("AttributeError", "'%s' object has no attribute '%s'", r.typeName(o), name)
	return -1
}

func (r *Runtime) Length(o Ptr) int {
	ob := r.obj(o)
	switch ob.kind {
	case kindList, kindTuple:
		return len(ob.items)
	case kindStr:
		return utf8.RuneCountInString(ob.str)
	case kindBytes:
		return len(ob.bytes)
	case kindDict, kindSet, kindFrozenSet:
		return ob.dict.len()
	case kindArray:
		if len(ob.arr.shape) == 0 {
			r.raise("TypeError", "len() of unsized object")
			return -1
		}
		return ob.arr.shape[0]
	}
	r.raise("TypeError", "object of type '%s' has no len()", r.typeName(o))
	return -1
}

func (r *Runtime) Call(callable, args, kwargs Ptr) Ptr {
	if !r.isKind(args, kindTuple) {
		r.raise("TypeError", "argument list must be a tuple")
		return 0
	}
	var kw *dict
	if kwargs != 0 {
		if !r.isKind(kwargs, kindDict) {
			r.raise("TypeError", "keyword list must be a dictionary")
			return 0
		}
		kw = r.obj(kwargs).dict
	}
	res := r.invoke(callable, r.obj(args).items, kw)
	switch {
	case res == 0 && r.errType == 0:
		r.raise("SystemError", "%s returned NULL without setting an exception", r.repr(callable))
	case res != 0 && r.errType != 0:
		r.decref(res)
		r.raise("SystemError", "%s returned a result with an exception set", r.repr(callable))
		return 0
	}
	return res
}

// invoke calls callable with borrowed args.
func (r *Runtime) invoke(callable Ptr, args []Ptr, kw *dict) Ptr {
	o := r.obj(callable)
	switch o.kind {
	case kindFunc:
		if o.self != 0 {
			args = append([]Ptr{o.self}, args...)
		}
		return o.call(args, kw)
	case kindType:
		if o.call == nil {
			r.raise("TypeError", "cannot create '%s' instances", o.str)
			return 0
		}
		return o.call(args, kw)
	}
	r.raise("TypeError", "'%s' object is not callable", r.typeName(callable))
	return 0
}

func (r *Runtime) IsCallable(o Ptr) bool {
	switch r.obj(o).kind {
	case kindFunc, kindType:
		return true
	}
	return false
}

func (r *Runtime) GetIter(o Ptr) Ptr {
	ob := r.obj(o)
	switch ob.kind {
	case kindIter:
		return r.incref(o)
	case kindList, kindTuple:
		i := 0
		return r.newIter(func() Ptr {
			items := r.obj(o).items
			if i >= len(items) {
				return 0
			}
			i++
			return r.incref(items[i-1])
		}, o)
	case kindStr:
		runes := []rune(ob.str)
		i := 0
		return r.newIter(func() Ptr {
			if i >= len(runes) {
				return 0
			}
			i++
			return r.newStr(string(runes[i-1]))
		})
	case kindBytes:
		bs := ob.bytes
		i := 0
		return r.newIter(func() Ptr {
			if i >= len(bs) {
				return 0
			}
			i++
			return r.newInt64(int64(bs[i-1]))
		})
	case kindDict, kindSet, kindFrozenSet:
		d := ob.dict
		size := d.len()
		i := 0
		return r.newIter(func() Ptr {
			if d.len() != size {
				r.raise("RuntimeError", "%s changed size during iteration", map[bool]string{true: "dictionary", false: "set"}[ob.kind == kindDict])
				return 0
			}
			if i >= len(d.entries) {
				return 0
			}
			i++
			return r.incref(d.entries[i-1].key)
		}, o)
	case kindArray:
		if len(ob.arr.shape) == 0 {
			r.raise("TypeError", "iteration over a 0-d array")
			return 0
		}
		i := 0
		return r.newIter(func() Ptr {
			if i >= ob.arr.shape[0] {
				return 0
			}
			i++
			return r.arrayRow(ob.arr, i-1)
		}, o)
	}
	r.raise("TypeError", "'%s' object is not iterable", r.typeName(o))
	return 0
}

func (r *Runtime) IterNext(it Ptr) Ptr {
	o := r.obj(it)
	if o.kind != kindIter {
		r.raise("TypeError", "'%s' object is not an iterator", r.typeName(it))
		return 0
	}
	return o.next()
}

func (r *Runtime) SetTrampoline(t ports.Trampoline) { r.trampoline = t }

func (r *Runtime) NewCallable(name string, ctx uintptr) Ptr {
	return r.alloc(&object{
		kind: kindFunc,
		typ:  r.types["builtin_function_or_method"],
		str:  name,
		call: func(args []Ptr, kw *dict) Ptr {
			if r.trampoline == nil {
				r.raise("SystemError", "no trampoline installed")
				return 0
			}
			items := make([]Ptr, len(args))
			for i, a := range args {
				items[i] = r.incref(a)
			}
			t := r.newTuple(items)
			var kwargs Ptr
			if kw != nil && kw.len() > 0 {
				kwargs = r.newDict()
				for _, e := range kw.entries {
					r.dictSet(r.obj(kwargs).dict, e.key, e.value)
				}
			}
			res := r.trampoline(ctx, t, kwargs)
			r.decref(t)
			r.decref(kwargs)
			return res
		},
	})
}
