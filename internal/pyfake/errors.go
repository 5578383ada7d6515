package pyfake

import (
	"fmt"
	"strings"
)

// exceptionTree lists builtin exception classes as name → base, in
// definition order.
var exceptionTree = [][2]string{
	{"BaseException", "object"},
	{"SystemExit", "BaseException"},
	{"KeyboardInterrupt", "BaseException"},
	{"GeneratorExit", "BaseException"},
	{"Exception", "BaseException"},
	{"StopIteration", "Exception"},
	{"ArithmeticError", "Exception"},
	{"ZeroDivisionError", "ArithmeticError"},
	{"OverflowError", "ArithmeticError"},
	{"AssertionError", "Exception"},
	{"AttributeError", "Exception"},
	{"ImportError", "Exception"},
	{"ModuleNotFoundError", "ImportError"},
	{"LookupError", "Exception"},
	{"IndexError", "LookupError"},
	{"KeyError", "LookupError"},
	{"NameError", "Exception"},
	{"RuntimeError", "Exception"},
	{"NotImplementedError", "RuntimeError"},
	{"RecursionError", "RuntimeError"},
	{"SyntaxError", "Exception"},
	{"SystemError", "Exception"},
	{"TypeError", "Exception"},
	{"ValueError", "Exception"},
	{"UnicodeError", "ValueError"},
	{"UnicodeDecodeError", "UnicodeError"},
}

// raise sets the error indicator to a new exception of the named builtin class.
func (r *Runtime) raise(typeName, format string, args ...any) {
	msg := r.newStr(fmt.Sprintf(format, args...))
	r.raiseWith(typeName, msg)
	r.decref(msg)
}

// raiseWith raises the named builtin class with borrowed constructor args.
func (r *Runtime) raiseWith(typeName string, args ...Ptr) {
	cls := r.types[typeName]
	r.setError(r.incref(cls), r.newException(cls, args))
}

// setError replaces the indicator, stealing typ and value.
func (r *Runtime) setError(typ, value Ptr) {
	r.ErrClear()
	r.errType, r.errValue = typ, value
}

// newException builds an exception instance from borrowed args.
func (r *Runtime) newException(cls Ptr, args []Ptr) Ptr {
	inst := r.newInstance(cls)
	ns := r.obj(r.obj(inst).ns).dict
	items := make([]Ptr, len(args))
	for i, a := range args {
		items[i] = r.incref(a)
	}
	t := r.newTuple(items)
	r.dictSetString(ns, "args", t)
	r.decref(t)
	if r.isSubclass(cls, r.types["SystemExit"]) {
		var code Ptr
		switch len(args) {
		case 0:
			code = r.newNone()
		case 1:
			code = r.incref(args[0])
		default:
			code = r.incref(t)
		}
		r.dictSetString(ns, "code", code)
		r.decref(code)
	}
	return inst
}

func (r *Runtime) isSubclass(cls, base Ptr) bool {
	for c := cls; c != 0; c = r.obj(c).base {
		if c == base {
			return true
		}
	}
	return false
}

func (r *Runtime) isException(p Ptr) bool {
	return r.isSubclass(r.obj(p).typ, r.types["BaseException"])
}

// matches reports whether the pending error is an instance of the named class.
func (r *Runtime) matches(typeName string) bool {
	return r.errType != 0 && r.isSubclass(r.errType, r.types[typeName])
}

// exceptionArgs returns the borrowed args items of an exception instance.
func (r *Runtime) exceptionArgs(exc Ptr) []Ptr {
	o := r.obj(exc)
	if o.ns == 0 {
		return nil
	}
	t := r.obj(o.ns).dict.getString("args")
	if t == 0 || !r.isKind(t, kindTuple) {
		return nil
	}
	return r.obj(t).items
}

// exceptionStr renders str(exc).
func (r *Runtime) exceptionStr(exc Ptr) string {
	args := r.exceptionArgs(exc)
	switch len(args) {
	case 0:
		return ""
	case 1:
		if r.isSubclass(r.obj(exc).typ, r.types["KeyError"]) {
			return r.repr(args[0])
		}
		return r.str(args[0])
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = r.repr(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (r *Runtime) ErrOccurred() Ptr { return r.errType }

func (r *Runtime) ErrClear() {
	t, v, tb := r.errType, r.errValue, r.errTB
	r.errType, r.errValue, r.errTB = 0, 0, 0
	r.decrefAll(t, v, tb)
}

func (r *Runtime) ErrFetch() (typ, value, traceback Ptr) {
	typ, value, traceback = r.errType, r.errValue, r.errTB
	r.errType, r.errValue, r.errTB = 0, 0, 0
	return typ, value, traceback
}

func (r *Runtime) ErrNormalize(typ, value, traceback Ptr) (Ptr, Ptr, Ptr) {
	if typ == 0 || r.obj(typ).kind != kindType {
		return typ, value, traceback
	}
	if value != 0 && r.isSubclass(r.obj(value).typ, typ) {
		return typ, value, traceback
	}
	var args []Ptr
	switch {
	case value == 0 || value == r.none:
	case r.isKind(value, kindTuple):
		args = r.obj(value).items
	default:
		args = []Ptr{value}
	}
	inst := r.newException(typ, args)
	r.decref(value)
	return typ, inst, traceback
}

func (r *Runtime) ErrSetObject(typ, value Ptr) {
	r.setError(r.incref(typ), r.incref(value))
}

func (r *Runtime) ErrSetString(typ Ptr, message string) {
	r.setError(r.incref(typ), r.newStr(message))
}

// normalizeError normalizes the pending error in place.
func (r *Runtime) normalizeError() {
	r.errType, r.errValue, r.errTB = r.ErrNormalize(r.errType, r.errValue, r.errTB)
}

// attachTraceback records a traceback entry for the pending error if it has none.
func (r *Runtime) attachTraceback(filename string, line int) {
	if r.errType == 0 || r.errTB != 0 {
		return
	}
	tb := r.newInstance(r.types["traceback"])
	ns := r.obj(r.obj(tb).ns).dict
	fn := r.newStr(filename)
	ln := r.newInt64(int64(line))
	r.dictSetString(ns, "tb_filename", fn)
	r.dictSetString(ns, "tb_lineno", ln)
	r.decrefAll(fn, ln)
	r.errTB = tb
}

// formatException renders the traceback lines CPython would print.
func (r *Runtime) formatException(typ, value, tb Ptr) []string {
	var lines []string
	if tb != 0 && r.obj(tb).ns != 0 {
		ns := r.obj(r.obj(tb).ns).dict
		lines = append(lines,
			"Traceback (most recent call last):\n",
			fmt.Sprintf("  File \"%s\", line %s, in <module>\n", r.str(ns.getString("tb_filename")), r.str(ns.getString("tb_lineno"))),
		)
	}
	name := r.obj(typ).str
	msg := ""
	if value != 0 && r.isException(value) {
		msg = r.exceptionStr(value)
	} else if value != 0 && value != r.none {
		msg = r.str(value)
	}
	if msg == "" {
		return append(lines, name+"\n")
	}
	return append(lines, name+": "+msg+"\n")
}

// printError writes the pending error to Stderr and clears it.
func (r *Runtime) printError() {
	r.normalizeError()
	if r.matches("SystemExit") {
		// The real interpreter exits here; the fake only reports it.
		fmt.Fprintf(&r.Stderr, "SystemExit: %s\n", r.exceptionStr(r.errValue))
		r.ErrClear()
		return
	}
	for _, line := range r.formatException(r.errType, r.errValue, r.errTB) {
		r.Stderr.WriteString(line)
	}
	r.ErrClear()
}
