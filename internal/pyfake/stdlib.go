package pyfake

import (
	"math"
	"math/big"

	"github.com/reglet-dev/pybridge/domain/entities"
)

// Logging levels of the fake logging module.
const (
	LevelDebug   = 10
	LevelInfo    = 20
	LevelWarning = 30
	LevelError   = 40
)

// binary applies an arithmetic operator to borrowed operands and returns a
// new reference.
func (r *Runtime) binary(op string, a, b Ptr) Ptr {
	oa, ob := r.obj(a), r.obj(b)
	isInt := func(o *object) bool { return o.kind == kindInt || o.kind == kindBool }

	switch {
	case isInt(oa) && isInt(ob):
		if res, ok := r.intOp(op, oa.num, ob.num); ok {
			return res
		}
		if r.errType != 0 {
			return 0
		}
	case r.isNumber(a) && r.isNumber(b):
		if res, ok := r.floatOp(op, r.floatOf(a), r.floatOf(b)); ok {
			return res
		}
		if r.errType != 0 {
			return 0
		}
	case oa.kind == ob.kind && op == "+":
		switch oa.kind {
		case kindStr:
			return r.newStr(oa.str + ob.str)
		case kindBytes:
			return r.newBytes(append(append([]byte(nil), oa.bytes...), ob.bytes...))
		case kindList, kindTuple:
			items := make([]Ptr, 0, len(oa.items)+len(ob.items))
			for _, p := range append(append([]Ptr(nil), oa.items...), ob.items...) {
				items = append(items, r.incref(p))
			}
			if oa.kind == kindList {
				return r.newList(items)
			}
			return r.newTuple(items)
		}
	case op == "*" && (isInt(ob) || isInt(oa)):
		seq, n := a, ob.num
		if isInt(oa) {
			seq, n = b, oa.num
		}
		if res := r.repeat(seq, n); res != 0 || r.errType != 0 {
			return res
		}
	}
	r.raise("TypeError", "unsupported operand type(s) for %s: '%s' and '%s'", op, r.typeName(a), r.typeName(b))
	return 0
}

func (r *Runtime) intOp(op string, x, y *big.Int) (Ptr, bool) {
	switch op {
	case "+":
		return r.newInt(new(big.Int).Add(x, y)), true
	case "-":
		return r.newInt(new(big.Int).Sub(x, y)), true
	case "*":
		return r.newInt(new(big.Int).Mul(x, y)), true
	case "/":
		if y.Sign() == 0 {
			r.raise("ZeroDivisionError", "division by zero")
			return 0, false
		}
		f, _ := new(big.Rat).SetFrac(x, y).Float64()
		return r.newFloat(f), true
	case "//", "%":
		if y.Sign() == 0 {
			r.raise("ZeroDivisionError", "integer division or modulo by zero")
			return 0, false
		}
		q, m := new(big.Int).DivMod(x, y, new(big.Int))
		if m.Sign() != 0 && y.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
			m.Add(m, y)
		}
		if op == "//" {
			return r.newInt(q), true
		}
		return r.newInt(m), true
	case "**":
		if y.Sign() < 0 {
			fx, _ := new(big.Float).SetInt(x).Float64()
			fy, _ := new(big.Float).SetInt(y).Float64()
			return r.floatOp(op, fx, fy)
		}
		return r.newInt(new(big.Int).Exp(x, y, nil)), true
	}
	return 0, false
}

func (r *Runtime) floatOp(op string, x, y float64) (Ptr, bool) {
	switch op {
	case "+":
		return r.newFloat(x + y), true
	case "-":
		return r.newFloat(x - y), true
	case "*":
		return r.newFloat(x * y), true
	case "/":
		if y == 0 {
			r.raise("ZeroDivisionError", "float division by zero")
			return 0, false
		}
		return r.newFloat(x / y), true
	case "//":
		if y == 0 {
			r.raise("ZeroDivisionError", "float floor division by zero")
			return 0, false
		}
		return r.newFloat(math.Floor(x / y)), true
	case "%":
		if y == 0 {
			r.raise("ZeroDivisionError", "float modulo by zero")
			return 0, false
		}
		m := math.Mod(x, y)
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return r.newFloat(m), true
	case "**":
		if x == 0 && y < 0 {
			r.raise("ZeroDivisionError", "0.0 cannot be raised to a negative power")
			return 0, false
		}
		return r.newFloat(math.Pow(x, y)), true
	}
	return 0, false
}

// repeat implements seq * n for str, bytes, list and tuple.
func (r *Runtime) repeat(seq Ptr, n *big.Int) Ptr {
	o := r.obj(seq)
	count := 0
	if n.Sign() > 0 {
		if !n.IsInt64() || n.Int64() > 1<<20 {
			r.raise("OverflowError", "repeated sequence is too long")
			return 0
		}
		count = int(n.Int64())
	}
	switch o.kind {
	case kindStr:
		var s []byte
		for range count {
			s = append(s, o.str...)
		}
		return r.newStr(string(s))
	case kindBytes:
		var s []byte
		for range count {
			s = append(s, o.bytes...)
		}
		return r.newBytes(s)
	case kindList, kindTuple:
		var items []Ptr
		for range count {
			for _, p := range o.items {
				items = append(items, r.incref(p))
			}
		}
		if o.kind == kindList {
			return r.newList(items)
		}
		return r.newTuple(items)
	}
	return 0
}

// negate implements unary minus.
func (r *Runtime) negate(p Ptr) Ptr {
	o := r.obj(p)
	switch o.kind {
	case kindInt, kindBool:
		return r.newInt(new(big.Int).Neg(o.num))
	case kindFloat:
		return r.newFloat(-o.float)
	}
	r.raise("TypeError", "bad operand type for unary -: '%s'", r.typeName(p))
	return 0
}

func (r *Runtime) installSys() {
	sys := r.newModule("sys")
	r.define(sys, "argv", r.newList([]Ptr{r.newStr("")}))
	r.define(sys, "path", r.newList(nil))
	r.define(sys, "modules", r.incref(r.sysModules))
	r.define(sys, "version", r.newStr("3.12.0 (pyfake)"))
	r.define(sys, "maxsize", r.newInt64(math.MaxInt64))
}

func (r *Runtime) installStdlib() {
	op := r.newModule("operator")
	for name, sym := range map[string]string{
		"add": "+", "sub": "-", "mul": "*", "truediv": "/", "floordiv": "//", "mod": "%", "pow": "**",
	} {
		r.defineFunc(op, name, func(args []Ptr, kw *dict) Ptr {
			if !r.arity(name, args, 2, 2) {
				return 0
			}
			return r.binary(sym, args[0], args[1])
		})
	}
	r.defineFunc(op, "neg", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("neg", args, 1, 1) {
			return 0
		}
		return r.negate(args[0])
	})
	r.defineFunc(op, "getitem", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("getitem", args, 2, 2) {
			return 0
		}
		return r.GetItem(args[0], args[1])
	})

	ft := r.newModule("functools")
	r.defineFunc(ft, "reduce", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("reduce", args, 2, 3) {
			return 0
		}
		var acc Ptr
		if len(args) == 3 {
			acc = r.incref(args[2])
		}
		ok := r.forEach(args[1], func(item Ptr) bool {
			if acc == 0 {
				acc = r.incref(item)
				return true
			}
			next := r.invoke(args[0], []Ptr{acc, item}, nil)
			r.decref(acc)
			acc = next
			return next != 0
		})
		if !ok || r.errType != 0 {
			r.decref(acc)
			return 0
		}
		if acc == 0 {
			r.raise("TypeError", "reduce() of empty iterable with no initial value")
		}
		return acc
	})

	it := r.newModule("itertools")
	r.defineFunc(it, "count", func(args []Ptr, kw *dict) Ptr {
		start, ok := r.intArg("count", argAt(args, 0), 0)
		if !ok {
			return 0
		}
		step, ok := r.intArg("count", argAt(args, 1), 1)
		if !ok {
			return 0
		}
		n := start
		return r.newIter(func() Ptr {
			v := r.newInt64(n)
			n += step
			return v
		})
	})

	types := r.newModule("types")
	r.define(types, "SimpleNamespace", r.incref(r.types["SimpleNamespace"]))
	r.define(types, "ModuleType", r.incref(r.types["module"]))

	tb := r.newModule("traceback")
	r.defineFunc(tb, "format_exception", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("format_exception", args, 1, 3) {
			return 0
		}
		var typ, value, trace Ptr
		if len(args) == 1 {
			value = args[0]
			typ = r.obj(value).typ
		} else {
			typ, value = args[0], args[1]
			if len(args) == 3 && args[2] != r.none {
				trace = args[2]
			}
		}
		lines := r.formatException(typ, value, trace)
		items := make([]Ptr, len(lines))
		for i, l := range lines {
			items[i] = r.newStr(l)
		}
		return r.newList(items)
	})

	runpy := r.newModule("runpy")
	r.defineFunc(runpy, "run_module", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("run_module", args, 1, 3) || !r.expectStr("run_module", args[0]) {
			return 0
		}
		name := r.obj(args[0]).str
		runName := name
		if p := argAt(args, 2); p != 0 && r.isKind(p, kindStr) {
			runName = r.obj(p).str
		}
		if p := kwArg(kw, "run_name"); p != 0 && r.isKind(p, kindStr) {
			runName = r.obj(p).str
		}
		src, ok := r.sources[name]
		if !ok {
			r.raise("ImportError", "No module named %s", name)
			return 0
		}
		code := r.CompileString(src, name+".py", entities.StartFile)
		if code == 0 {
			return 0
		}
		defer r.decref(code)
		globals := r.newDict()
		g := r.obj(globals).dict
		n := r.newStr(runName)
		r.dictSetString(g, "__name__", n)
		r.decref(n)
		r.dictSetString(g, "__builtins__", r.builtins)
		res := r.run(r.obj(code).code, globals)
		if res == 0 {
			r.decref(globals)
			return 0
		}
		r.decref(res)
		return globals
	})

	call := r.newModule("pyfake")
	r.defineFunc(call, "call", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("call", args, 1, -1) {
			return 0
		}
		return r.invoke(args[0], args[1:], kw)
	})
}

func argAt(args []Ptr, i int) Ptr {
	if i < len(args) {
		return args[i]
	}
	return 0
}

func (r *Runtime) installLogging() {
	mod := r.newModule("logging")
	for name, lvl := range map[string]int64{"DEBUG": LevelDebug, "INFO": LevelInfo, "WARNING": LevelWarning, "ERROR": LevelError} {
		r.define(mod, name, r.newInt64(lvl))
	}
	loggerT := r.types["Logger"]
	r.define(mod, "Logger", r.incref(loggerT))

	r.defineFunc(mod, "getLogger", func(args []Ptr, kw *dict) Ptr {
		name := "root"
		if p := argAt(args, 0); p != 0 && p != r.none {
			if !r.expectStr("getLogger", p) {
				return 0
			}
			name = r.obj(p).str
		}
		return r.incref(r.logger(name))
	})

	level := func(l Ptr) int64 {
		v, _ := r.intArg("", r.obj(r.obj(l).ns).dict.getString("level"), 0)
		return v
	}
	effective := func(l Ptr) int64 {
		if v := level(l); v != 0 {
			return v
		}
		return level(r.logger("root"))
	}
	emit := func(l Ptr, lvl int64, msg Ptr, kw *dict) Ptr {
		if lvl < effective(l) {
			return r.newNone()
		}
		rec := LogRecord{
			Logger:  r.str(r.obj(r.obj(l).ns).dict.getString("name")),
			Message: r.str(msg),
			Level:   int(lvl),
		}
		if extra := kwArg(kw, "extra"); extra != 0 && r.isKind(extra, kindDict) {
			rec.Extra = make(map[string]string)
			for _, e := range r.obj(extra).dict.entries {
				rec.Extra[r.str(e.key)] = r.str(e.value)
			}
		}
		r.records = append(r.records, rec)
		return r.newNone()
	}

	r.setMethod(loggerT, "log", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("log", args, 3, 3) {
			return 0
		}
		lvl, ok := r.intArg("log", args[1], 0)
		if !ok {
			return 0
		}
		return emit(args[0], lvl, args[2], kw)
	})
	for name, lvl := range map[string]int64{"debug": LevelDebug, "info": LevelInfo, "warning": LevelWarning, "error": LevelError} {
		r.setMethod(loggerT, name, func(args []Ptr, kw *dict) Ptr {
			if !r.arity(name, args, 2, 2) {
				return 0
			}
			return emit(args[0], lvl, args[1], kw)
		})
	}
	r.setMethod(loggerT, "setLevel", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("setLevel", args, 2, 2) {
			return 0
		}
		if _, ok := r.intArg("setLevel", args[1], 0); !ok {
			return 0
		}
		r.dictSetString(r.obj(r.obj(args[0]).ns).dict, "level", args[1])
		return r.newNone()
	})
	r.setMethod(loggerT, "getEffectiveLevel", func(args []Ptr, kw *dict) Ptr {
		return r.newInt64(effective(args[0]))
	})
	r.setMethod(loggerT, "isEnabledFor", func(args []Ptr, kw *dict) Ptr {
		if !r.arity("isEnabledFor", args, 2, 2) {
			return 0
		}
		lvl, ok := r.intArg("isEnabledFor", args[1], 0)
		if !ok {
			return 0
		}
		return r.newBool(lvl >= effective(args[0]))
	})
}

// logger returns the borrowed, cached logger for name.
func (r *Runtime) logger(name string) Ptr {
	if l, ok := r.loggers[name]; ok {
		return l
	}
	l := r.newInstance(r.types["Logger"])
	r.obj(l).immortal = true
	r.obj(r.obj(l).ns).immortal = true
	ns := r.obj(r.obj(l).ns).dict
	n := r.newStr(name)
	r.dictSetString(ns, "name", n)
	r.decref(n)
	var lvl int64
	if name == "root" {
		lvl = LevelWarning
	}
	v := r.newInt64(lvl)
	r.dictSetString(ns, "level", v)
	r.decref(v)
	r.loggers[name] = l
	return l
}

func (r *Runtime) ImportModule(name string) Ptr {
	if m := r.obj(r.sysModules).dict.getString(name); m != 0 {
		return r.incref(m)
	}
	src, ok := r.sources[name]
	if !ok {
		r.raise("ModuleNotFoundError", "No module named %s", quote(name))
		return 0
	}
	code := r.CompileString(src, name+".py", entities.StartFile)
	if code == 0 {
		return 0
	}
	defer r.decref(code)
	return r.ExecCodeModule(name, code)
}

func (r *Runtime) EvalGetBuiltins() Ptr { return r.builtinsDict }

func (r *Runtime) RunSimpleString(code string) int {
	c := r.CompileString(code, "<string>", entities.StartFile)
	if c == 0 {
		r.printError()
		return -1
	}
	defer r.decref(c)
	res := r.run(r.obj(c).code, r.obj(r.mainModule).ns)
	if res == 0 {
		r.printError()
		return -1
	}
	r.decref(res)
	return 0
}

func (r *Runtime) CompileString(source, filename string, mode entities.StartMode) Ptr {
	prog, err := compile(source, filename, mode)
	if err != nil {
		r.raise("SyntaxError", "%s (%s, line %d)", err.msg, filename, err.line)
		return 0
	}
	return r.alloc(&object{kind: kindCode, typ: r.types["code"], code: prog})
}

func (r *Runtime) ExecCodeModule(name string, code Ptr) Ptr {
	if !r.isKind(code, kindCode) {
		r.badInternalCall("PyImport_ExecCodeModule")
		return 0
	}
	modules := r.obj(r.sysModules).dict
	m := modules.getString(name)
	created := m == 0
	if created {
		m = r.newModule(name)
	}
	res := r.run(r.obj(code).code, r.obj(m).ns)
	if res == 0 {
		if created {
			e, _ := modules.remove(strHash(name))
			r.decref(e.key)
			r.decref(e.value)
		}
		return 0
	}
	r.decref(res)
	return r.incref(m)
}
