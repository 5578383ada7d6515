//go:build cgo && (linux || darwin)

package cpython

/*
#cgo linux LDFLAGS: -ldl
#include <stdlib.h>
#include "shim.h"
*/
import "C"

import (
	stdErrors "errors"
	"os"
	goruntime "runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
	"github.com/reglet-dev/pybridge/domain/ports"
)

type Ptr = entities.Ptr

// Runtime is the C API of one loaded libpython.
type Runtime struct {
	library    string
	home       string
	trampoline ports.Trampoline
}

var (
	openMu sync.Mutex
	loaded *Runtime

	// active serves calls arriving through pybridgeTrampoline.
	active atomic.Pointer[Runtime]
)

var _ ports.ForeignRuntime = (*Runtime)(nil)

// Open loads libpython and resolves its entry points. The interpreter is
// started later by Initialize. A process holds at most one library; later
// calls return the runtime already loaded.
func Open(opts ...Option) (ports.ForeignRuntime, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	openMu.Lock()
	defer openMu.Unlock()
	if loaded != nil {
		cfg.logger.Debug("pybridge: foreign runtime already loaded", "library", loaded.library)
		return loaded, nil
	}

	tried := candidates(cfg, goruntime.GOOS)
	var lastErr error
	for _, path := range tried {
		cpath := C.CString(path)
		var cerr, csym *C.char
		rc := C.pb_open(cpath, &cerr, &csym)
		C.free(unsafe.Pointer(cpath))
		if rc == 0 {
			cfg.logger.Info("pybridge: loaded foreign runtime", "library", path)
			loaded = &Runtime{library: path, home: cfg.home}
			active.Store(loaded)
			return loaded, nil
		}

		msg := "dlopen failed"
		if cerr != nil {
			msg = C.GoString(cerr)
		}
		if csym != nil {
			// The library exists but is not a usable interpreter.
			return nil, &errors.InitError{Err: stdErrors.New(msg), Library: path, Symbol: C.GoString(csym)}
		}
		cfg.logger.Debug("pybridge: candidate rejected", "library", path, "error", msg)
		lastErr = stdErrors.New(msg)
	}
	if lastErr == nil {
		lastErr = stdErrors.New("no candidate libraries")
	}
	return nil, &errors.InitError{Err: lastErr, Tried: tried}
}

// Library returns the path the runtime was loaded from.
func (r *Runtime) Library() string {
	return r.library
}

func ref(p Ptr) C.pb_ref {
	return C.pb_ref(p)
}

func ptr(r C.pb_ref) Ptr {
	return Ptr(r)
}

func status(rc C.int) int {
	return int(rc)
}

// Initialize starts the interpreter and releases the GIL it holds
// afterwards.
func (r *Runtime) Initialize() error {
	if r.home != "" {
		if err := os.Setenv("PYTHONHOME", r.home); err != nil {
			return err
		}
	}
	if C.pb_initialize() != 0 {
		return &errors.InitError{Library: r.library, Err: stdErrors.New("interpreter did not start")}
	}
	return nil
}

func (r *Runtime) IsInitialized() bool {
	return C.pb_is_initialized() != 0
}

// Enter pins the goroutine to its OS thread and takes the GIL.
func (r *Runtime) Enter() {
	goruntime.LockOSThread()
	C.pb_enter()
}

func (r *Runtime) Leave() {
	C.pb_leave()
	goruntime.UnlockOSThread()
}

func (r *Runtime) IncRef(o Ptr) { C.pb_incref(ref(o)) }
func (r *Runtime) DecRef(o Ptr) { C.pb_decref(ref(o)) }

func (r *Runtime) ErrOccurred() Ptr { return ptr(C.pb_err_occurred()) }
func (r *Runtime) ErrClear() { C.pb_err_clear() }

func (r *Runtime) ErrFetch() (typ, value, traceback Ptr) {
	var t, v, tb C.pb_ref
	C.pb_err_fetch(&t, &v, &tb)
	return ptr(t), ptr(v), ptr(tb)
}

func (r *Runtime) ErrNormalize(typ, value, traceback Ptr) (Ptr, Ptr, Ptr) {
	t, v, tb := ref(typ), ref(value), ref(traceback)
	C.pb_err_normalize(&t, &v, &tb)
	return ptr(t), ptr(v), ptr(tb)
}

func (r *Runtime) ErrSetObject(typ, value Ptr) {
	C.pb_err_set_object(ref(typ), ref(value))
}

func (r *Runtime) ErrSetString(typ Ptr, message string) {
	cmsg := C.CString(message)
	defer C.free(unsafe.Pointer(cmsg))
	C.pb_err_set_string(ref(typ), cmsg)
}

func (r *Runtime) ImportModule(name string) Ptr {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return ptr(C.pb_import(cname))
}

func (r *Runtime) EvalGetBuiltins() Ptr { return ptr(C.pb_builtins()) }

func (r *Runtime) RunSimpleString(code string) int {
	ccode := C.CString(code)
	defer C.free(unsafe.Pointer(ccode))
	return status(C.pb_run_simple(ccode))
}

func (r *Runtime) CompileString(source, filename string, mode entities.StartMode) Ptr {
	csrc := C.CString(source)
	defer C.free(unsafe.Pointer(csrc))
	cfile := C.CString(filename)
	defer C.free(unsafe.Pointer(cfile))
	return ptr(C.pb_compile(csrc, cfile, C.int(mode)))
}

func (r *Runtime) ExecCodeModule(name string, code Ptr) Ptr {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return ptr(C.pb_exec_code_module(cname, ref(code)))
}

func (r *Runtime) None() Ptr { return ptr(C.pb_none()) }
func (r *Runtime) Ellipsis() Ptr { return ptr(C.pb_ellipsis()) }

func (r *Runtime) ListNew(size int) Ptr { return ptr(C.pb_list_new(C.intptr_t(size))) }
func (r *Runtime) ListSize(list Ptr) int { return int(C.pb_list_size(ref(list))) }
func (r *Runtime) ListGetItem(list Ptr, index int) Ptr {
	return ptr(C.pb_list_get(ref(list), C.intptr_t(index)))
}
func (r *Runtime) ListSetItem(list Ptr, index int, item Ptr) int {
	return status(C.pb_list_set(ref(list), C.intptr_t(index), ref(item)))
}

func (r *Runtime) TupleNew(size int) Ptr { return ptr(C.pb_tuple_new(C.intptr_t(size))) }
func (r *Runtime) TupleSize(tuple Ptr) int { return int(C.pb_tuple_size(ref(tuple))) }
func (r *Runtime) TupleGetItem(tuple Ptr, index int) Ptr {
	return ptr(C.pb_tuple_get(ref(tuple), C.intptr_t(index)))
}
func (r *Runtime) TupleSetItem(tuple Ptr, index int, item Ptr) int {
	return status(C.pb_tuple_set(ref(tuple), C.intptr_t(index), ref(item)))
}

func (r *Runtime) DictNew() Ptr { return ptr(C.pb_dict_new()) }
func (r *Runtime) DictSetItem(dict, key, value Ptr) int {
	return status(C.pb_dict_set(ref(dict), ref(key), ref(value)))
}

func (r *Runtime) DictSetItemString(dict Ptr, key string, value Ptr) int {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	return status(C.pb_dict_set_string(ref(dict), ckey, ref(value)))
}

func (r *Runtime) DictGetItem(dict, key Ptr) Ptr {
	return ptr(C.pb_dict_get(ref(dict), ref(key)))
}

func (r *Runtime) DictGetItemString(dict Ptr, key string) Ptr {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	return ptr(C.pb_dict_get_string(ref(dict), ckey))
}

func (r *Runtime) DictDelItemString(dict Ptr, key string) int {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	return status(C.pb_dict_del_string(ref(dict), ckey))
}

func (r *Runtime) DictKeys(dict Ptr) Ptr { return ptr(C.pb_dict_keys(ref(dict))) }

func (r *Runtime) DictNext(dict Ptr, pos *int) (key, value Ptr, ok bool) {
	p := C.intptr_t(*pos)
	var k, v C.pb_ref
	found := C.pb_dict_next(ref(dict), &p, &k, &v)
	*pos = int(p)
	return ptr(k), ptr(v), found != 0
}

func (r *Runtime) SetNew(iterable Ptr) Ptr { return ptr(C.pb_set_new(ref(iterable))) }
func (r *Runtime) SetAdd(set, key Ptr) int { return status(C.pb_set_add(ref(set), ref(key))) }

func (r *Runtime) GetAttrString(o Ptr, name string) Ptr {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return ptr(C.pb_getattr(ref(o), cname))
}

func (r *Runtime) SetAttrString(o Ptr, name string, value Ptr) int {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return status(C.pb_setattr(ref(o), cname, ref(value)))
}

func (r *Runtime) HasAttrString(o Ptr, name string) bool {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.pb_hasattr(ref(o), cname) != 0
}

// DelAttrString deletes through SetAttrString with a NULL value.
func (r *Runtime) DelAttrString(o Ptr, name string) int {
	return r.SetAttrString(o, name, 0)
}

func (r *Runtime) GetItem(o, key Ptr) Ptr { return ptr(C.pb_getitem(ref(o), ref(key))) }
func (r *Runtime) SetItem(o, key, value Ptr) int {
	return status(C.pb_setitem(ref(o), ref(key), ref(value)))
}
func (r *Runtime) DelItem(o, key Ptr) int { return status(C.pb_delitem(ref(o), ref(key))) }
func (r *Runtime) Length(o Ptr) int { return int(C.pb_length(ref(o))) }

func (r *Runtime) Call(callable, args, kwargs Ptr) Ptr {
	return ptr(C.pb_call(ref(callable), ref(args), ref(kwargs)))
}
func (r *Runtime) IsCallable(o Ptr) bool { return C.pb_callable(ref(o)) != 0 }

func (r *Runtime) GetIter(o Ptr) Ptr { return ptr(C.pb_getiter(ref(o))) }
func (r *Runtime) IterNext(iter Ptr) Ptr { return ptr(C.pb_iternext(ref(iter))) }

func (r *Runtime) BoolFromLong(v int64) Ptr { return ptr(C.pb_bool(C.long(v))) }
func (r *Runtime) LongFromLongLong(v int64) Ptr { return ptr(C.pb_long(C.longlong(v))) }

func (r *Runtime) LongFromString(s string, base int) Ptr {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return ptr(C.pb_long_from_string(cs, C.int(base)))
}

func (r *Runtime) LongAsLongLongAndOverflow(o Ptr) (int64, int) {
	var overflow C.int
	v := C.pb_long_as_longlong(ref(o), &overflow)
	return int64(v), int(overflow)
}

func (r *Runtime) FloatFromDouble(v float64) Ptr { return ptr(C.pb_float(C.double(v))) }
func (r *Runtime) FloatAsDouble(o Ptr) float64 { return float64(C.pb_float_as_double(ref(o))) }

func (r *Runtime) UnicodeFromString(s string) Ptr {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return ptr(C.pb_unicode(cs, C.intptr_t(len(s))))
}

func (r *Runtime) UnicodeAsUTF8(o Ptr) (string, bool) {
	var n C.intptr_t
	s := C.pb_unicode_as_utf8(ref(o), &n)
	if s == nil {
		return "", false
	}
	return C.GoStringN(s, C.int(n)), true
}

func (r *Runtime) BytesFromString(b []byte) Ptr {
	if len(b) == 0 {
		return ptr(C.pb_bytes(nil, 0))
	}
	cb := C.CBytes(b)
	defer C.free(cb)
	return ptr(C.pb_bytes((*C.char)(cb), C.intptr_t(len(b))))
}

func (r *Runtime) BytesAsString(o Ptr) ([]byte, bool) {
	var s *C.char
	var n C.intptr_t
	if C.pb_bytes_as_string(ref(o), &s, &n) != 0 {
		return nil, false
	}
	return C.GoBytes(unsafe.Pointer(s), C.int(n)), true
}

func (r *Runtime) Str(o Ptr) Ptr { return ptr(C.pb_str(ref(o))) }
func (r *Runtime) Repr(o Ptr) Ptr { return ptr(C.pb_repr(ref(o))) }
func (r *Runtime) Type(o Ptr) Ptr { return ptr(C.pb_type(ref(o))) }
func (r *Runtime) IsInstance(o, cls Ptr) int {
	return status(C.pb_isinstance(ref(o), ref(cls)))
}
func (r *Runtime) IsTrue(o Ptr) int { return status(C.pb_istrue(ref(o))) }

func (r *Runtime) RichCompare(a, b Ptr, op entities.CompareOp) Ptr {
	return ptr(C.pb_richcompare(ref(a), ref(b), C.int(op)))
}

func (r *Runtime) RichCompareBool(a, b Ptr, op entities.CompareOp) int {
	return status(C.pb_richcompare_bool(ref(a), ref(b), C.int(op)))
}

func (r *Runtime) SliceNew(start, stop, step Ptr) Ptr {
	return ptr(C.pb_slice(ref(start), ref(stop), ref(step)))
}

func (r *Runtime) SetTrampoline(t ports.Trampoline) {
	r.trampoline = t
}

func (r *Runtime) NewCallable(name string, ctx uintptr) Ptr {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return ptr(C.pb_new_callable(cname, C.uintptr_t(ctx)))
}
