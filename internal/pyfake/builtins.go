package pyfake

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/reglet-dev/pybridge/domain/entities"
)

// coreTypes lists the builtin types other than exceptions as name → base.
var coreTypes = [][2]string{
	{"NoneType", "object"},
	{"int", "object"},
	{"bool", "int"},
	{"float", "object"},
	{"str", "object"},
	{"bytes", "object"},
	{"list", "object"},
	{"tuple", "object"},
	{"dict", "object"},
	{"set", "object"},
	{"frozenset", "object"},
	{"slice", "object"},
	{"ellipsis", "object"},
	{"builtin_function_or_method", "object"},
	{"method", "object"},
	{"module", "object"},
	{"iterator", "object"},
	{"code", "object"},
	{"traceback", "object"},
	{"SimpleNamespace", "object"},
	{"ndarray", "object"},
	{"Logger", "object"},
}

func (r *Runtime) bootstrap() {
	typeT := r.alloc(&object{kind: kindType, str: "type", immortal: true})
	r.obj(typeT).typ = typeT
	r.types["type"] = typeT
	r.types["object"] = r.alloc(&object{kind: kindType, typ: typeT, str: "object", immortal: true})
	r.obj(typeT).base = r.types["object"]

	for _, def := range append(coreTypes, exceptionTree...) {
		r.types[def[0]] = r.alloc(&object{kind: kindType, typ: typeT, str: def[0], base: r.types[def[1]], immortal: true})
	}
	for _, t := range r.types {
		r.obj(t).ns = r.newDict()
		r.obj(r.obj(t).ns).immortal = true
	}

	r.none = r.alloc(&object{kind: kindNone, typ: r.types["NoneType"], immortal: true})
	r.ellipsis = r.alloc(&object{kind: kindEllipsis, typ: r.types["ellipsis"], immortal: true})
	r.pyTrue = r.alloc(&object{kind: kindBool, typ: r.types["bool"], num: big.NewInt(1), immortal: true})
	r.pyFalse = r.alloc(&object{kind: kindBool, typ: r.types["bool"], num: big.NewInt(0), immortal: true})

	r.sysModules = r.newDict()
	r.obj(r.sysModules).immortal = true

	r.builtins = r.newModule("builtins")
	r.builtinsDict = r.obj(r.builtins).ns
	r.installConstructors()
	r.installMethods()
	r.installBuiltins()

	r.mainModule = r.newModule("__main__")
	r.define(r.mainModule, "__builtins__", r.incref(r.builtins))

	r.installSys()
	r.installStdlib()
	r.installLogging()
	r.installNumpy()
}

// newModule creates an immortal module and registers it in sys.modules.
func (r *Runtime) newModule(name string) Ptr {
	m := r.alloc(&object{kind: kindModule, typ: r.types["module"], str: name, ns: r.newDict(), immortal: true})
	r.obj(r.obj(m).ns).immortal = true
	r.define(m, "__name__", r.newStr(name))
	r.dictSetString(r.obj(r.sysModules).dict, name, m)
	return m
}

// define stores value (stolen) in the namespace of o.
func (r *Runtime) define(o Ptr, name string, value Ptr) {
	r.dictSetString(r.obj(r.obj(o).ns).dict, name, value)
	r.decref(value)
}

func (r *Runtime) defineFunc(mod Ptr, name string, fn builtin) {
	r.define(mod, name, r.newFunc(name, fn))
}

func (r *Runtime) setMethod(typ Ptr, name string, fn builtin) {
	r.define(typ, name, r.newMethod(name, fn))
}

func (r *Runtime) arity(name string, args []Ptr, minArgs, maxArgs int) bool {
	if len(args) >= minArgs && (maxArgs < 0 || len(args) <= maxArgs) {
		return true
	}
	switch {
	case minArgs == maxArgs:
		r.raise("TypeError", "%s() takes exactly %d argument(s) (%d given)", name, minArgs, len(args))
	case len(args) < minArgs:
		r.raise("TypeError", "%s() expected at least %d argument(s), got %d", name, minArgs, len(args))
	default:
		r.raise("TypeError", "%s() expected at most %d argument(s), got %d", name, maxArgs, len(args))
	}
	return false
}

// kwArg returns the borrowed keyword argument name, or 0.
func kwArg(kw *dict, name string) Ptr {
	if kw == nil {
		return 0
	}
	return kw.getString(name)
}

func (r *Runtime) installConstructors() {
	t := r.types
	r.obj(t["type"]).call = func(args []Ptr, kw *dict) Ptr {
		if !r.arity("type", args, 1, 1) {
			return 0
		}
		return r.Type(args[0])
	}
	r.obj(t["object"]).call = func(args []Ptr, kw *dict) Ptr {
		return r.newInstance(t["object"])
	}
	r.obj(t["int"]).call = func(args []Ptr, kw *dict) Ptr {
		if !r.arity("int", args, 0, 2) {
			return 0
		}
		if len(args) == 0 {
			return r.newInt64(0)
		}
		o := r.obj(args[0])
		switch o.kind {
		case kindInt:
			return r.incref(args[0])
		case kindBool:
			return r.newInt(o.num)
		case kindFloat:
			v, _ := big.NewFloat(o.float).Int(nil)
			return r.newInt(v)
		case kindStr:
			base, ok := r.intArg("int", kwArg(kw, "base"), 10)
			if len(args) == 2 {
				base, ok = r.intArg("int", args[1], 10)
			}
			if !ok {
				return 0
			}
			return r.LongFromString(o.str, int(base))
		}
		r.raise("TypeError", "int() argument must be a string, a bytes-like object or a real number, not '%s'", r.typeName(args[0]))
		return 0
	}
	r.obj(t["float"]).call = func(args []Ptr, kw *dict) Ptr {
		if !r.arity("float", args, 0, 1) {
			return 0
		}
		if len(args) == 0 {
			return r.newFloat(0)
		}
		if r.isKind(args[0], kindStr) {
			f, err := strconv.ParseFloat(strings.TrimSpace(r.obj(args[0]).str), 64)
			if err != nil {
				r.raise("ValueError", "could not convert string to float: %s", quote(r.obj(args[0]).str))
				return 0
			}
			return r.newFloat(f)
		}
		f := r.FloatAsDouble(args[0])
		if f == -1 && r.errType != 0 {
			return 0
		}
		return r.newFloat(f)
	}
	r.obj(t["bool"]).call = func(args []Ptr, kw *dict) Ptr {
		if !r.arity("bool", args, 0, 1) {
			return 0
		}
		if len(args) == 0 {
			return r.newBool(false)
		}
		v := r.IsTrue(args[0])
		if v < 0 {
			return 0
		}
		return r.newBool(v == 1)
	}
	r.obj(t["str"]).call = func(args []Ptr, kw *dict) Ptr {
		if !r.arity("str", args, 0, 1) {
			return 0
		}
		if len(args) == 0 {
			return r.newStr("")
		}
		return r.Str(args[0])
	}
	r.obj(t["bytes"]).call = func(args []Ptr, kw *dict) Ptr {
		if !r.arity("bytes", args, 0, 2) {
			return 0
		}
		if len(args) == 0 {
			return r.newBytes(nil)
		}
		if r.isKind(args[0], kindStr) {
			return r.newBytes([]byte(r.obj(args[0]).str))
		}
		items, ok := r.collect(args[0])
		if !ok {
			return 0
		}
		defer r.decrefAll(items...)
		out := make([]byte, len(items))
		for i, it := range items {
			v, ok := r.asIndex(it)
			if !ok || v < 0 || v > 255 {
				r.raise("ValueError", "bytes must be in range(0, 256)")
				return 0
			}
			out[i] = byte(v)
		}
		return r.newBytes(out)
	}
	seqCtor := func(name string, build func([]Ptr) Ptr) builtin {
		return func(args []Ptr, kw *dict) Ptr {
			if !r.arity(name, args, 0, 1) {
				return 0
			}
			if len(args) == 0 {
				return build(nil)
			}
			items, ok := r.collect(args[0])
			if !ok {
				return 0
			}
			return build(items)
		}
	}
	r.obj(t["list"]).call = seqCtor("list", r.newList)
	r.obj(t["tuple"]).call = seqCtor("tuple", r.newTuple)
	setCtor := func(k kind, name string) builtin {
		return func(args []Ptr, kw *dict) Ptr {
			if !r.arity(name, args, 0, 1) {
				return 0
			}
			s := r.newSetOf(k)
			if len(args) == 1 {
				d := r.obj(s).dict
				ok := r.forEach(args[0], func(item Ptr) bool { return r.dictSet(d, item, 0) })
				if !ok || r.errType != 0 {
					r.decref(s)
					return 0
				}
			}
			return s
		}
	}
	r.obj(t["set"]).call = setCtor(kindSet, "set")
	r.obj(t["frozenset"]).call = setCtor(kindFrozenSet, "frozenset")
	r.obj(t["dict"]).call = func(args []Ptr, kw *dict) Ptr {
		if !r.arity("dict", args, 0, 1) {
			return 0
		}
		d := r.newDict()
		dd := r.obj(d).dict
		if len(args) == 1 {
			if !r.updateDict(dd, args[0]) {
				r.decref(d)
				return 0
			}
		}
		if kw != nil {
			for _, e := range kw.entries {
				r.dictSet(dd, e.key, e.value)
			}
		}
		return d
	}
	r.obj(t["slice"]).call = func(args []Ptr, kw *dict) Ptr {
		if !r.arity("slice", args, 1, 3) {
			return 0
		}
		if len(args) == 1 {
			return r.SliceNew(0, args[0], 0)
		}
		parts := [3]Ptr{}
		copy(parts[:], args)
		return r.SliceNew(parts[0], parts[1], parts[2])
	}
	r.obj(t["SimpleNamespace"]).call = func(args []Ptr, kw *dict) Ptr {
		inst := r.newInstance(t["SimpleNamespace"])
		if kw != nil {
			ns := r.obj(r.obj(inst).ns).dict
			for _, e := range kw.entries {
				r.dictSet(ns, e.key, e.value)
			}
		}
		return inst
	}
	for _, def := range exceptionTree {
		cls := t[def[0]]
		r.obj(cls).call = func(args []Ptr, kw *dict) Ptr {
			return r.newException(cls, args)
		}
	}
}

// updateDict merges a mapping or an iterable of pairs into d.
func (r *Runtime) updateDict(d *dict, src Ptr) bool {
	if r.isKind(src, kindDict) {
		for _, e := range r.obj(src).dict.entries {
			r.dictSet(d, e.key, e.value)
		}
		return true
	}
	return r.forEach(src, func(pair Ptr) bool {
		items, ok := r.collect(pair)
		if !ok {
			return false
		}
		defer r.decrefAll(items...)
		if len(items) != 2 {
			r.raise("ValueError", "dictionary update sequence element has length %d; 2 is required", len(items))
			return false
		}
		return r.dictSet(d, items[0], items[1])
	}) && r.errType == 0
}

func (r *Runtime) installMethods() {
	t := r.types

	r.setMethod(t["str"], "upper", func(args []Ptr, kw *dict) Ptr {
		return r.newStr(strings.ToUpper(r.obj(args[0]).str))
	})
	r.setMethod(t["str"], "lower", func(args []Ptr, kw *dict) Ptr {
		return r.newStr(strings.ToLower(r.obj(args[0]).str))
	})
	r.setMethod(t["str"], "strip", func(args []Ptr, kw *dict) Ptr {
		return r.newStr(strings.TrimSpace(r.obj(args[0]).str))
	})
	r.setMethod(t["str"], "startswith", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("startswith", args, 2, 2) || !r.expectStr("startswith", args[1]) {
			return 0
		}
		return r.newBool(strings.HasPrefix(r.obj(args[0]).str, r.obj(args[1]).str))
	})
	r.setMethod(t["str"], "encode", func(args []Ptr, kw *dict) Ptr {
		return r.newBytes([]byte(r.obj(args[0]).str))
	})
	r.setMethod(t["str"], "split", func(args []Ptr, kw *dict) Ptr {
		s := r.obj(args[0]).str
		var parts []string
		if len(args) > 1 && args[1] != r.none {
			if !r.expectStr("split", args[1]) {
				return 0
			}
			parts = strings.Split(s, r.obj(args[1]).str)
		} else {
			parts = strings.Fields(s)
		}
		items := make([]Ptr, len(parts))
		for i, p := range parts {
			items[i] = r.newStr(p)
		}
		return r.newList(items)
	})
	r.setMethod(t["str"], "join", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("join", args, 2, 2) {
			return 0
		}
		var parts []string
		ok := r.forEach(args[1], func(item Ptr) bool {
			if !r.isKind(item, kindStr) {
				r.raise("TypeError", "sequence item %d: expected str instance, %s found", len(parts), r.typeName(item))
				return false
			}
			parts = append(parts, r.obj(item).str)
			return true
		})
		if !ok || r.errType != 0 {
			return 0
		}
		return r.newStr(strings.Join(parts, r.obj(args[0]).str))
	})
	r.setMethod(t["str"], "format", func(args []Ptr, kw *dict) Ptr {
		return r.format(r.obj(args[0]).str, args[1:], kw)
	})
	r.setMethod(t["bytes"], "decode", func(args []Ptr, kw *dict) Ptr {
		return r.UnicodeFromString(string(r.obj(args[0]).bytes))
	})
	r.setMethod(t["int"], "bit_length", func(args []Ptr, kw *dict) Ptr {
		return r.newInt64(int64(new(big.Int).Abs(r.obj(args[0]).num).BitLen()))
	})

	r.setMethod(t["list"], "append", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("append", args, 2, 2) {
			return 0
		}
		o := r.obj(args[0])
		o.items = append(o.items, r.incref(args[1]))
		return r.newNone()
	})
	r.setMethod(t["list"], "extend", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("extend", args, 2, 2) {
			return 0
		}
		items, ok := r.collect(args[1])
		if !ok {
			return 0
		}
		o := r.obj(args[0])
		o.items = append(o.items, items...)
		return r.newNone()
	})
	r.setMethod(t["list"], "insert", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("insert", args, 3, 3) {
			return 0
		}
		o := r.obj(args[0])
		idx, ok := r.asIndex(args[1])
		if !ok {
			r.raise("TypeError", "'%s' object cannot be interpreted as an integer", r.typeName(args[1]))
			return 0
		}
		n := len(o.items)
		if idx < 0 {
			idx = max(idx+n, 0)
		}
		idx = min(idx, n)
		o.items = append(o.items[:idx], append([]Ptr{r.incref(args[2])}, o.items[idx:]...)...)
		return r.newNone()
	})
	r.setMethod(t["list"], "pop", func(args []Ptr, kw *dict) Ptr {
		o := r.obj(args[0])
		if len(o.items) == 0 {
			r.raise("IndexError", "pop from empty list")
			return 0
		}
		idx := int64(len(o.items) - 1)
		if len(args) > 1 {
			var ok bool
			if idx, ok = r.intArg("pop", args[1], idx); !ok {
				return 0
			}
			if idx < 0 {
				idx += int64(len(o.items))
			}
			if idx < 0 || idx >= int64(len(o.items)) {
				r.raise("IndexError", "pop index out of range")
				return 0
			}
		}
		p := o.items[idx]
		o.items = append(o.items[:idx], o.items[idx+1:]...)
		return p
	})
	r.setMethod(t["list"], "index", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("index", args, 2, 2) {
			return 0
		}
		for i, p := range r.obj(args[0]).items {
			if r.equal(p, args[1]) {
				return r.newInt64(int64(i))
			}
		}
		r.raise("ValueError", "%s is not in list", r.repr(args[1]))
		return 0
	})

	r.setMethod(t["dict"], "keys", func(args []Ptr, kw *dict) Ptr {
		return r.DictKeys(args[0])
	})
	r.setMethod(t["dict"], "values", func(args []Ptr, kw *dict) Ptr {
		var items []Ptr
		for _, e := range r.obj(args[0]).dict.entries {
			items = append(items, r.incref(e.value))
		}
		return r.newList(items)
	})
	r.setMethod(t["dict"], "items", func(args []Ptr, kw *dict) Ptr {
		var items []Ptr
		for _, e := range r.obj(args[0]).dict.entries {
			items = append(items, r.newTuple([]Ptr{r.incref(e.key), r.incref(e.value)}))
		}
		return r.newList(items)
	})
	r.setMethod(t["dict"], "get", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("get", args, 2, 3) {
			return 0
		}
		v, found, ok := r.dictGet(r.obj(args[0]).dict, args[1])
		switch {
		case !ok:
			return 0
		case found:
			return r.incref(v)
		case len(args) == 3:
			return r.incref(args[2])
		}
		return r.newNone()
	})
	r.setMethod(t["dict"], "pop", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("pop", args, 2, 3) {
			return 0
		}
		d := r.obj(args[0]).dict
		h, ok := r.hash(args[1])
		if !ok {
			return 0
		}
		e, found := d.remove(h)
		if !found {
			if len(args) == 3 {
				return r.incref(args[2])
			}
			r.raiseWith("KeyError", args[1])
			return 0
		}
		r.decref(e.key)
		return e.value
	})
	r.setMethod(t["dict"], "update", func(args []Ptr, kw *dict) Ptr {
		d := r.obj(args[0]).dict
		if len(args) > 1 && !r.updateDict(d, args[1]) {
			return 0
		}
		if kw != nil {
			for _, e := range kw.entries {
				r.dictSet(d, e.key, e.value)
			}
		}
		return r.newNone()
	})
	r.setMethod(t["set"], "add", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("add", args, 2, 2) || r.SetAdd(args[0], args[1]) < 0 {
			return 0
		}
		return r.newNone()
	})
	r.setMethod(t["set"], "discard", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("discard", args, 2, 2) {
			return 0
		}
		if _, ok := r.dictDel(r.obj(args[0]).dict, args[1]); !ok {
			return 0
		}
		return r.newNone()
	})
	r.setMethod(t["slice"], "indices", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("indices", args, 2, 2) {
			return 0
		}
		n, ok := r.intArg("indices", args[1], 0)
		if !ok {
			return 0
		}
		start, step, count, ok := r.sliceIndices(args[0], int(n))
		if !ok {
			return 0
		}
		stop := start + count*step
		return r.newTuple([]Ptr{r.newInt64(int64(start)), r.newInt64(int64(stop)), r.newInt64(int64(step))})
	})
	r.setMethod(t["BaseException"], "with_traceback", func(args []Ptr, kw *dict) Ptr {
		return r.incref(args[0])
	})
}

func (r *Runtime) expectStr(fn string, p Ptr) bool {
	if !r.isKind(p, kindStr) {
		r.raise("TypeError", "%s() argument must be str, not %s", fn, r.typeName(p))
		return false
	}
	return true
}

// format implements str.format for "{}", "{0}" and "{name}" fields.
func (r *Runtime) format(tmpl string, args []Ptr, kw *dict) Ptr {
	var b strings.Builder
	next := 0
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}' {
			b.WriteByte('}')
			i++
			continue
		}
		if c != '{' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(tmpl) && tmpl[i+1] == '{' {
			b.WriteByte('{')
			i++
			continue
		}
		end := strings.IndexByte(tmpl[i:], '}')
		if end < 0 {
			r.raise("ValueError", "Single '{' encountered in format string")
			return 0
		}
		field := tmpl[i+1 : i+end]
		i += end

		var v Ptr
		switch {
		case field == "":
			if next >= len(args) {
				r.raise("IndexError", "Replacement index %d out of range for positional args tuple", next)
				return 0
			}
			v = args[next]
			next++
		case field[0] >= '0' && field[0] <= '9':
			var n int
			fmt.Sscan(field, &n)
			if n >= len(args) {
				r.raise("IndexError", "Replacement index %d out of range for positional args tuple", n)
				return 0
			}
			v = args[n]
		default:
			if v = kwArg(kw, field); v == 0 {
				k := r.newStr(field)
				r.raiseWith("KeyError", k)
				r.decref(k)
				return 0
			}
		}
		b.WriteString(r.str(v))
	}
	return r.newStr(b.String())
}

func (r *Runtime) installBuiltins() {
	b := r.builtins
	for _, name := range []string{"object", "type", "int", "bool", "float", "str", "bytes", "list", "tuple", "dict", "set", "frozenset", "slice"} {
		r.define(b, name, r.incref(r.types[name]))
	}
	for _, def := range exceptionTree {
		r.define(b, def[0], r.incref(r.types[def[0]]))
	}
	r.define(b, "None", r.newNone())
	r.define(b, "True", r.newBool(true))
	r.define(b, "False", r.newBool(false))
	r.define(b, "Ellipsis", r.incref(r.ellipsis))

	r.defineFunc(b, "len", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("len", args, 1, 1) {
			return 0
		}
		n := r.Length(args[0])
		if n < 0 {
			return 0
		}
		return r.newInt64(int64(n))
	})
	r.defineFunc(b, "repr", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("repr", args, 1, 1) {
			return 0
		}
		return r.Repr(args[0])
	})
	r.defineFunc(b, "isinstance", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("isinstance", args, 2, 2) {
			return 0
		}
		res := r.IsInstance(args[0], args[1])
		if res < 0 {
			return 0
		}
		return r.newBool(res == 1)
	})
	r.defineFunc(b, "callable", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("callable", args, 1, 1) {
			return 0
		}
		return r.newBool(r.IsCallable(args[0]))
	})
	r.defineFunc(b, "iter", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("iter", args, 1, 1) {
			return 0
		}
		return r.GetIter(args[0])
	})
	r.defineFunc(b, "next", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("next", args, 1, 2) {
			return 0
		}
		v := r.IterNext(args[0])
		if v == 0 && r.errType == 0 {
			if len(args) == 2 {
				return r.incref(args[1])
			}
			r.raiseWith("StopIteration")
		}
		return v
	})
	r.defineFunc(b, "getattr", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("getattr", args, 2, 3) || !r.expectStr("getattr", args[1]) {
			return 0
		}
		v := r.GetAttrString(args[0], r.obj(args[1]).str)
		if v == 0 && len(args) == 3 && r.matches("AttributeError") {
			r.ErrClear()
			return r.incref(args[2])
		}
		return v
	})
	r.defineFunc(b, "setattr", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("setattr", args, 3, 3) || !r.expectStr("setattr", args[1]) {
			return 0
		}
		if r.SetAttrString(args[0], r.obj(args[1]).str, args[2]) < 0 {
			return 0
		}
		return r.newNone()
	})
	r.defineFunc(b, "hasattr", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("hasattr", args, 2, 2) || !r.expectStr("hasattr", args[1]) {
			return 0
		}
		return r.newBool(r.HasAttrString(args[0], r.obj(args[1]).str))
	})
	r.defineFunc(b, "print", func(args []Ptr, kw *dict) Ptr {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = r.str(a)
		}
		sep, end := " ", "\n"
		if p := kwArg(kw, "sep"); p != 0 && r.isKind(p, kindStr) {
			sep = r.obj(p).str
		}
		if p := kwArg(kw, "end"); p != 0 && r.isKind(p, kindStr) {
			end = r.obj(p).str
		}
		r.Stdout.WriteString(strings.Join(parts, sep) + end)
		return r.newNone()
	})
	r.defineFunc(b, "abs", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("abs", args, 1, 1) {
			return 0
		}
		o := r.obj(args[0])
		switch o.kind {
		case kindInt, kindBool:
			return r.newInt(new(big.Int).Abs(o.num))
		case kindFloat:
			if o.float < 0 {
				return r.newFloat(-o.float)
			}
			return r.newFloat(o.float)
		}
		r.raise("TypeError", "bad operand type for abs(): '%s'", r.typeName(args[0]))
		return 0
	})
	r.defineFunc(b, "sum", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("sum", args, 1, 2) {
			return 0
		}
		total := r.newInt64(0)
		if len(args) == 2 {
			r.decref(total)
			total = r.incref(args[1])
		}
		ok := r.forEach(args[0], func(item Ptr) bool {
			next := r.binary("+", total, item)
			if next == 0 {
				return false
			}
			r.decref(total)
			total = next
			return true
		})
		if !ok || r.errType != 0 {
			r.decref(total)
			return 0
		}
		return total
	})
	r.defineFunc(b, "sorted", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("sorted", args, 1, 1) {
			return 0
		}
		items, ok := r.collect(args[0])
		if !ok {
			return 0
		}
		failed := false
		sort.SliceStable(items, func(i, j int) bool {
			if failed {
				return false
			}
			c, ok := r.order(items[i], items[j])
			if !ok {
				failed = true
				if r.errType == 0 {
					r.raise("TypeError", "'<' not supported between instances of '%s' and '%s'", r.typeName(items[i]), r.typeName(items[j]))
				}
			}
			return c < 0
		})
		if failed {
			r.decrefAll(items...)
			return 0
		}
		if p := kwArg(kw, "reverse"); p != 0 && r.IsTrue(p) == 1 {
			for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
				items[i], items[j] = items[j], items[i]
			}
		}
		return r.newList(items)
	})
	r.defineFunc(b, "eval", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("eval", args, 1, 3) {
			return 0
		}
		globals := r.globalsArg("eval", args)
		if globals == 0 {
			return 0
		}
		code := args[0]
		if r.isKind(code, kindStr) {
			code = r.CompileString(r.obj(code).str, "<string>", entities.StartEval)
			if code == 0 {
				return 0
			}
			defer r.decref(code)
		}
		if !r.isKind(code, kindCode) {
			r.raise("TypeError", "eval() arg 1 must be a string, bytes or code object")
			return 0
		}
		return r.run(r.obj(code).code, globals)
	})
	r.defineFunc(b, "exec", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("exec", args, 1, 3) {
			return 0
		}
		globals := r.globalsArg("exec", args)
		if globals == 0 {
			return 0
		}
		code := args[0]
		if r.isKind(code, kindStr) {
			code = r.CompileString(r.obj(code).str, "<string>", entities.StartFile)
			if code == 0 {
				return 0
			}
			defer r.decref(code)
		}
		if !r.isKind(code, kindCode) {
			r.raise("TypeError", "exec() arg 1 must be a string, bytes or code object")
			return 0
		}
		res := r.run(r.obj(code).code, globals)
		if res == 0 {
			return 0
		}
		r.decref(res)
		return r.newNone()
	})
}

// globalsArg returns the borrowed globals dict of an eval/exec call. Without
// a frame there is no implicit namespace, as in CPython.
func (r *Runtime) globalsArg(fn string, args []Ptr) Ptr {
	if len(args) < 2 || args[1] == r.none {
		r.raise("TypeError", "%s must be given globals and locals when called without a frame", fn)
		return 0
	}
	if !r.isKind(args[1], kindDict) {
		r.raise("TypeError", "%s() globals must be a dict, not %s", fn, r.typeName(args[1]))
		return 0
	}
	return args[1]
}
