// Package pyfake is an in-process stand-in for the CPython C API.
//
// Runtime implements ports.ForeignRuntime over a small object model with
// exact reference counting, so tests can drive the bridge without libpython
// and assert on every increment and decrement it performs. The object model
// covers the builtin scalar and container types, the exception hierarchy, a
// handful of stdlib modules (sys, operator, functools, itertools, runpy,
// logging, types) and a numpy-like N-d array. Source text accepted by eval,
// exec and module compilation is a one-statement-per-line subset of the
// language: assignments, imports, raise, pass and expression statements.
package pyfake

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/ports"
)

// Ptr is the fake's object address.
type Ptr = entities.Ptr

var _ ports.ForeignRuntime = (*Runtime)(nil)

// Runtime is a fake foreign runtime. It is not safe for concurrent use; the
// bridge serializes access through Enter/Leave.
type Runtime struct {
	objects map[Ptr]*object
	types   map[string]Ptr
	loggers map[string]Ptr
	sources map[string]string

	trampoline ports.Trampoline

	// Stdout receives print() output; Stderr receives tracebacks printed by
	// RunSimpleString.
	Stdout bytes.Buffer
	Stderr bytes.Buffer

	records []LogRecord

	nextPtr Ptr

	none, ellipsis, pyTrue, pyFalse Ptr
	builtins, builtinsDict          Ptr
	sysModules, mainModule          Ptr

	errType, errValue, errTB Ptr

	incRefs   int
	decRefs   int
	enters    int
	depth     int
	initCount int
}

// LogRecord is one record emitted through the fake logging module.
type LogRecord struct {
	Extra   map[string]string
	Logger  string
	Message string
	Level   int
}

// New returns an uninitialized runtime. Call Initialize (or let the bridge
// do it) before using any other method.
func New() *Runtime {
	return &Runtime{
		objects: make(map[Ptr]*object),
		types:   make(map[string]Ptr),
		loggers: make(map[string]Ptr),
		sources: make(map[string]string),
		nextPtr: 0x1000,
	}
}

// Initialize builds the builtin object graph.
func (r *Runtime) Initialize() error {
	r.initCount++
	if r.builtins != 0 {
		return fmt.Errorf("pyfake: interpreter already initialized")
	}
	r.bootstrap()
	return nil
}

func (r *Runtime) IsInitialized() bool { return r.builtins != 0 }

func (r *Runtime) Enter() {
	r.enters++
	r.depth++
}

func (r *Runtime) Leave() {
	if r.depth == 0 {
		panic("pyfake: Leave without Enter")
	}
	r.depth--
}

// IncRef increments o's reference count and records the call.
func (r *Runtime) IncRef(o Ptr) {
	if o == 0 {
		return
	}
	r.incRefs++
	r.incref(o)
}

// DecRef decrements o's reference count, freeing it at zero, and records the call.
func (r *Runtime) DecRef(o Ptr) {
	if o == 0 {
		return
	}
	r.decRefs++
	r.decref(o)
}

// AddSource registers module source text that import and runpy can find.
func (r *Runtime) AddSource(module, code string) {
	r.sources[module] = code
}

// RefCount returns the current reference count of p, or 0 if p is not live.
func (r *Runtime) RefCount(p Ptr) int {
	if o, ok := r.objects[p]; ok {
		return o.refs
	}
	return 0
}

// Alive reports whether p still refers to a live object.
func (r *Runtime) Alive(p Ptr) bool {
	_, ok := r.objects[p]
	return ok
}

// Live returns the number of live mortal objects.
func (r *Runtime) Live() int {
	n := 0
	for _, o := range r.objects {
		if !o.immortal {
			n++
		}
	}
	return n
}

// IncRefs returns the number of IncRef calls made through the API.
func (r *Runtime) IncRefs() int { return r.incRefs }

// DecRefs returns the number of DecRef calls made through the API.
func (r *Runtime) DecRefs() int { return r.decRefs }

// Depth returns the current Enter/Leave nesting depth.
func (r *Runtime) Depth() int { return r.depth }

// Enters returns the total number of Enter calls.
func (r *Runtime) Enters() int { return r.enters }

// InitCount returns how many times Initialize was called.
func (r *Runtime) InitCount() int { return r.initCount }

// Records returns the records logged through the fake logging module.
func (r *Runtime) Records() []LogRecord {
	out := make([]LogRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Builtin returns a borrowed reference to a builtin by name, or 0.
func (r *Runtime) Builtin(name string) Ptr {
	return r.obj(r.builtinsDict).dict.getString(name)
}

// TypeName returns the type name of p, e.g. "list".
func (r *Runtime) TypeName(p Ptr) string {
	return r.typeName(p)
}

// ErrorPending reports whether the error indicator is set.
func (r *Runtime) ErrorPending() bool { return r.errType != 0 }

func (r *Runtime) alloc(o *object) Ptr {
	if o.refs == 0 {
		o.refs = 1
	}
	p := r.nextPtr
	r.nextPtr += 0x10
	r.objects[p] = o
	return p
}

func (r *Runtime) obj(p Ptr) *object {
	o, ok := r.objects[p]
	if !ok {
		panic(fmt.Sprintf("pyfake: use of unknown or freed object %s", p))
	}
	return o
}

func (r *Runtime) incref(p Ptr) Ptr {
	if p != 0 {
		r.obj(p).refs++
	}
	return p
}

func (r *Runtime) decref(p Ptr) {
	if p == 0 {
		return
	}
	o := r.obj(p)
	if o.refs <= 0 {
		panic(fmt.Sprintf("pyfake: reference count underflow on %s (%s)", p, r.typeName(p)))
	}
	o.refs--
	if o.refs > 0 || o.immortal {
		return
	}
	delete(r.objects, p)
	for _, child := range o.children() {
		r.decref(child)
	}
}

func (r *Runtime) decrefAll(ps ...Ptr) {
	for _, p := range ps {
		r.decref(p)
	}
}

// newInt returns a new reference to an int object.
func (r *Runtime) newInt(v *big.Int) Ptr {
	return r.alloc(&object{kind: kindInt, typ: r.types["int"], num: new(big.Int).Set(v)})
}

func (r *Runtime) newInt64(v int64) Ptr {
	return r.newInt(big.NewInt(v))
}

func (r *Runtime) newFloat(v float64) Ptr {
	return r.alloc(&object{kind: kindFloat, typ: r.types["float"], float: v})
}

func (r *Runtime) newStr(s string) Ptr {
	return r.alloc(&object{kind: kindStr, typ: r.types["str"], str: s})
}

func (r *Runtime) newBytes(b []byte) Ptr {
	return r.alloc(&object{kind: kindBytes, typ: r.types["bytes"], bytes: append([]byte(nil), b...)})
}

func (r *Runtime) newBool(v bool) Ptr {
	if v {
		return r.incref(r.pyTrue)
	}
	return r.incref(r.pyFalse)
}

func (r *Runtime) newNone() Ptr { return r.incref(r.none) }

// newList steals items.
func (r *Runtime) newList(items []Ptr) Ptr {
	return r.alloc(&object{kind: kindList, typ: r.types["list"], items: items})
}

// newTuple steals items.
func (r *Runtime) newTuple(items []Ptr) Ptr {
	return r.alloc(&object{kind: kindTuple, typ: r.types["tuple"], items: items})
}

func (r *Runtime) newDict() Ptr {
	return r.alloc(&object{kind: kindDict, typ: r.types["dict"], dict: newDict()})
}

func (r *Runtime) newSetOf(kind kind) Ptr {
	name := "set"
	if kind == kindFrozenSet {
		name = "frozenset"
	}
	return r.alloc(&object{kind: kind, typ: r.types[name], dict: newDict()})
}

// newFunc returns an immortal builtin function.
func (r *Runtime) newFunc(name string, fn builtin) Ptr {
	return r.alloc(&object{kind: kindFunc, typ: r.types["builtin_function_or_method"], str: name, call: fn, immortal: true})
}

// newMethod returns an immortal function that binds to instances on attribute access.
func (r *Runtime) newMethod(name string, fn builtin) Ptr {
	p := r.newFunc(name, fn)
	r.obj(p).method = true
	return p
}

// newIter returns an iterator that holds references to held and yields new
// references from next until it returns 0.
func (r *Runtime) newIter(next func() Ptr, held ...Ptr) Ptr {
	for _, h := range held {
		r.incref(h)
	}
	return r.alloc(&object{kind: kindIter, typ: r.types["iterator"], next: next, held: held})
}

// newInstance returns a new instance of cls with an empty namespace.
func (r *Runtime) newInstance(cls Ptr) Ptr {
	return r.alloc(&object{kind: kindInstance, typ: cls, ns: r.newDict()})
}

func (r *Runtime) typeName(p Ptr) string {
	return r.obj(r.obj(p).typ).str
}
