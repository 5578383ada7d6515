package ports

import "github.com/reglet-dev/pybridge/domain/entities"

// Ptr is re-exported for brevity in adapter signatures.
type Ptr = entities.Ptr

// Trampoline is invoked by the foreign runtime whenever a callable built by
// NewCallable is called. ctx is the opaque value passed to NewCallable, args is
// a borrowed tuple and kwargs a borrowed dict or NULL. It returns a new
// reference, or NULL with the error indicator set.
type Trampoline func(ctx uintptr, args, kwargs Ptr) Ptr

// ForeignRuntime is the table of foreign entry points the bridge consumes.
// An external loader produces it already bound to a loaded library; the bridge
// never discovers or loads libraries itself.
//
// Reference semantics follow the foreign C API: unless a method says it
// returns a borrowed reference, a returned Ptr is a new reference owned by the
// caller. Methods that "steal" take over the caller's reference to an argument.
// A NULL result (or -1 for int results) means the error indicator is set.
type ForeignRuntime interface {
	Lifecycle
	RefCounter
	ErrorState
	Evaluator
	Containers
	Accessor
	Caller
	Iterator
	Numbers
	Codecs
	Protocol
	CallableFactory
}

// Lifecycle covers one-time initialization and thread-state attachment.
type Lifecycle interface {
	// Initialize starts the interpreter. Calling it again is unsupported.
	Initialize() error
	IsInitialized() bool

	// Enter attaches the calling goroutine to the interpreter; every Enter is
	// paired with a Leave. Nested pairs are allowed.
	Enter()
	Leave()
}

// RefCounter adjusts foreign reference counts.
type RefCounter interface {
	IncRef(o Ptr)
	DecRef(o Ptr)
}

// ErrorState queries and manipulates the per-thread error indicator.
type ErrorState interface {
	// ErrOccurred returns the current exception type (borrowed) or NULL.
	ErrOccurred() Ptr
	ErrClear()

	// ErrFetch moves the indicator into three new references (any may be NULL)
	// and clears it.
	ErrFetch() (typ, value, traceback Ptr)

	// ErrNormalize steals the triple and returns its normalized form.
	ErrNormalize(typ, value, traceback Ptr) (Ptr, Ptr, Ptr)

	// ErrSetObject raises typ with value. Neither argument is stolen.
	ErrSetObject(typ, value Ptr)
	ErrSetString(typ Ptr, message string)
}

// Evaluator imports modules and runs source text.
type Evaluator interface {
	ImportModule(name string) Ptr

	// EvalGetBuiltins returns the builtins dict (borrowed).
	EvalGetBuiltins() Ptr

	// RunSimpleString executes code in __main__; 0 on success, -1 on failure.
	// The failure is printed by the runtime and the indicator is cleared.
	RunSimpleString(code string) int

	CompileString(source, filename string, mode entities.StartMode) Ptr
	ExecCodeModule(name string, code Ptr) Ptr

	// None and Ellipsis return the singletons (borrowed).
	None() Ptr
	Ellipsis() Ptr
}

// Containers builds and mutates lists, tuples, dicts and sets.
type Containers interface {
	ListNew(size int) Ptr
	ListSize(list Ptr) int
	// ListGetItem returns a borrowed reference.
	ListGetItem(list Ptr, index int) Ptr
	// ListSetItem steals item.
	ListSetItem(list Ptr, index int, item Ptr) int

	TupleNew(size int) Ptr
	TupleSize(tuple Ptr) int
	// TupleGetItem returns a borrowed reference.
	TupleGetItem(tuple Ptr, index int) Ptr
	// TupleSetItem steals item.
	TupleSetItem(tuple Ptr, index int, item Ptr) int

	DictNew() Ptr
	DictSetItem(dict, key, value Ptr) int
	DictSetItemString(dict Ptr, key string, value Ptr) int
	// DictGetItem returns a borrowed reference, NULL without an error when absent.
	DictGetItem(dict, key Ptr) Ptr
	// DictGetItemString returns a borrowed reference, NULL without an error when absent.
	DictGetItemString(dict Ptr, key string) Ptr
	DictDelItemString(dict Ptr, key string) int
	DictKeys(dict Ptr) Ptr
	// DictNext iterates entries from *pos; key and value are borrowed.
	DictNext(dict Ptr, pos *int) (key, value Ptr, ok bool)

	// SetNew builds a set from iterable, or an empty set when iterable is NULL.
	SetNew(iterable Ptr) Ptr
	SetAdd(set, key Ptr) int
}

// Accessor reads and writes attributes and items.
type Accessor interface {
	GetAttrString(o Ptr, name string) Ptr
	SetAttrString(o Ptr, name string, value Ptr) int
	// HasAttrString never leaves the error indicator set.
	HasAttrString(o Ptr, name string) bool
	DelAttrString(o Ptr, name string) int

	GetItem(o, key Ptr) Ptr
	SetItem(o, key, value Ptr) int
	DelItem(o, key Ptr) int

	// Length returns len(o), or -1 with the indicator set.
	Length(o Ptr) int
}

// Caller invokes foreign callables.
type Caller interface {
	// Call invokes callable with a positional tuple and an optional kwargs dict.
	Call(callable, args, kwargs Ptr) Ptr
	IsCallable(o Ptr) bool
}

// Iterator drives the foreign iteration protocol.
type Iterator interface {
	GetIter(o Ptr) Ptr
	// IterNext returns the next item, or NULL. NULL without the indicator set
	// means the iterator is exhausted.
	IterNext(iter Ptr) Ptr
}

// Numbers converts between host numbers and foreign numeric objects.
type Numbers interface {
	BoolFromLong(v int64) Ptr
	LongFromLongLong(v int64) Ptr
	// LongFromString parses an arbitrary-precision integer literal.
	LongFromString(s string, base int) Ptr
	// LongAsLongLongAndOverflow sets overflow to -1 or +1 when o does not fit.
	LongAsLongLongAndOverflow(o Ptr) (v int64, overflow int)
	FloatFromDouble(v float64) Ptr
	// FloatAsDouble returns -1 with the indicator set on failure.
	FloatAsDouble(o Ptr) float64
}

// Codecs converts strings and bytes.
type Codecs interface {
	// UnicodeFromString decodes UTF-8 text.
	UnicodeFromString(s string) Ptr
	// UnicodeAsUTF8 encodes a str object; ok is false with the indicator set on failure.
	UnicodeAsUTF8(o Ptr) (s string, ok bool)
	BytesFromString(b []byte) Ptr
	BytesAsString(o Ptr) (b []byte, ok bool)
}

// Protocol covers the generic object protocol.
type Protocol interface {
	Str(o Ptr) Ptr
	Repr(o Ptr) Ptr
	Type(o Ptr) Ptr
	// IsInstance returns 1, 0, or -1 with the indicator set.
	IsInstance(o, cls Ptr) int
	// IsTrue returns 1, 0, or -1 with the indicator set.
	IsTrue(o Ptr) int
	RichCompare(a, b Ptr, op entities.CompareOp) Ptr
	// RichCompareBool returns 1, 0, or -1 with the indicator set.
	RichCompareBool(a, b Ptr, op entities.CompareOp) int
	// SliceNew builds a slice object; NULL arguments mean None. Arguments are not stolen.
	SliceNew(start, stop, step Ptr) Ptr
}

// CallableFactory builds foreign callables backed by the host.
type CallableFactory interface {
	// SetTrampoline installs the single entry point for host callables.
	SetTrampoline(t Trampoline)
	// NewCallable returns a callable that forwards to the trampoline with ctx.
	NewCallable(name string, ctx uintptr) Ptr
}
