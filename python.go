package pybridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
	"github.com/reglet-dev/pybridge/domain/ports"
	"github.com/reglet-dev/pybridge/hostfuncs"
)

// bound records which runtimes already have a bridge. The foreign runtime
// can be initialized once per process, so a second bridge is refused.
var bound sync.Map // ports.ForeignRuntime -> *Python

// Python is a bridge to one foreign interpreter.
type Python struct {
	rt        ports.ForeignRuntime
	logger    *slog.Logger
	callbacks *hostfuncs.Table

	// pending holds pointers of proxies collected without Release.
	pending   []entities.Ptr
	pendingMu sync.Mutex

	// live holds every callback not yet destroyed, by table id.
	live map[uintptr]*Callback

	// invoking is the context of the innermost running callback. Only the
	// thread holding the interpreter lock touches it.
	invoking context.Context

	builtins *Object
	types    map[string]*Object
}

// New binds a bridge to rt, initializing the interpreter if needed.
//
// Example usage:
//
//	rt, err := cpython.Open()
//	py, err := pybridge.New(rt, pybridge.WithLogger(logger))
func New(rt ports.ForeignRuntime, opts ...Option) (*Python, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Python{
		rt:     rt,
		logger: cfg.logger,
		live:   make(map[uintptr]*Callback),
		types:  make(map[string]*Object),
	}
	if _, loaded := bound.LoadOrStore(rt, p); loaded {
		return nil, errors.ErrAlreadyBound
	}

	mw := append([]hostfuncs.Middleware{
		hostfuncs.PanicRecoveryMiddleware(),
		hostfuncs.LoggingMiddleware(cfg.logger),
	}, cfg.middleware...)
	p.callbacks = hostfuncs.NewTable(hostfuncs.WithMiddleware(mw...))

	if !rt.IsInitialized() {
		if err := rt.Initialize(); err != nil {
			bound.Delete(rt)
			return nil, &errors.InitError{Err: err}
		}
	}
	rt.SetTrampoline(p.trampoline)

	p.enter()
	defer p.leave()
	b := rt.EvalGetBuiltins()
	if b == 0 {
		bound.Delete(rt)
		return nil, &errors.InitError{Err: fmt.Errorf("builtins unavailable")}
	}
	p.builtins = p.acquire(b)

	p.logger.Debug("pybridge: bridge ready")
	return p, nil
}

// Close destroys every callback, releases the bridge's cached objects and
// drains the pending queue. The interpreter itself stays alive and the
// runtime stays bound: it cannot be initialized a second time.
func (p *Python) Close() {
	p.DestroyCallbacks()
	for _, t := range p.types {
		t.Release()
	}
	p.types = make(map[string]*Object)
	p.builtins.Release()
	p.ReleasePending()
}

// Runtime returns the runtime the bridge is bound to.
func (p *Python) Runtime() ports.ForeignRuntime {
	return p.rt
}

// enter attaches to the interpreter and drains the pending queue. Every
// enter is paired with a leave.
func (p *Python) enter() {
	p.rt.Enter()
	p.drain()
}

func (p *Python) leave() {
	p.rt.Leave()
}

// enqueue schedules ptr for a decrement on the next entry. It is called
// from GC cleanups and never touches the runtime.
func (p *Python) enqueue(ptr entities.Ptr) {
	p.pendingMu.Lock()
	p.pending = append(p.pending, ptr)
	p.pendingMu.Unlock()
}

func (p *Python) drain() {
	p.pendingMu.Lock()
	ptrs := p.pending
	p.pending = nil
	p.pendingMu.Unlock()
	for _, ptr := range ptrs {
		p.rt.DecRef(ptr)
	}
	if len(ptrs) > 0 {
		p.logger.Debug("pybridge: released collected objects", "count", len(ptrs))
	}
}

// ReleasePending decrements every object queued by the garbage collector.
// It returns the number of objects released.
func (p *Python) ReleasePending() int {
	p.pendingMu.Lock()
	n := len(p.pending)
	p.pendingMu.Unlock()
	p.enter()
	p.leave()
	return n
}

// result turns a new reference (or NULL) into an *Object or an error.
// The caller must be entered.
func (p *Python) result(ptr entities.Ptr) (*Object, error) {
	if ptr == 0 {
		return nil, p.failure()
	}
	return p.steal(ptr), nil
}

// status turns an int status (-1 on failure) into an error.
func (p *Python) status(rc int) error {
	if rc < 0 {
		return p.failure()
	}
	return nil
}

// failure returns the pending foreign exception, or ErrNullResult when the
// runtime failed silently.
func (p *Python) failure() error {
	if err := p.check(); err != nil {
		return err
	}
	return errors.ErrNullResult
}

// Builtins returns the builtins dict. The bridge owns the proxy.
func (p *Python) Builtins() *Object {
	p.enter()
	defer p.leave()
	p.builtinsPtr()
	return p.builtins
}

// builtinsPtr returns the builtins dict, fetching it again once Close has
// released it. The caller must be entered.
func (p *Python) builtinsPtr() entities.Ptr {
	if p.builtins.Released() {
		if b := p.rt.EvalGetBuiltins(); b != 0 {
			p.builtins = p.acquire(b)
		}
	}
	return p.builtins.Ptr()
}

// Builtin returns a builtin by name, e.g. "len" or "ValueError".
func (p *Python) Builtin(name string) (*Object, error) {
	p.enter()
	defer p.leave()
	return p.builtin(name)
}

func (p *Python) builtin(name string) (*Object, error) {
	v := p.rt.DictGetItemString(p.builtinsPtr(), name)
	if v == 0 {
		if err := p.check(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("pybridge: no builtin named %q", name)
	}
	return p.acquire(v), nil
}

// builtinType returns a cached builtin class for materialization checks.
func (p *Python) builtinType(name string) (*Object, error) {
	if t, ok := p.types[name]; ok {
		return t, nil
	}
	var (
		t   *Object
		err error
	)
	if name == "NoneType" {
		t, err = p.result(p.rt.Type(p.rt.None()))
	} else {
		t, err = p.builtin(name)
	}
	if err != nil {
		return nil, err
	}
	p.types[name] = t
	return t, nil
}

// Import imports a module by dotted name.
func (p *Python) Import(name string) (*Object, error) {
	p.enter()
	defer p.leave()
	return p.result(p.rt.ImportModule(name))
}

// Run executes code in __main__. The interpreter prints a failure itself and
// clears it, so the returned error carries no exception details.
func (p *Python) Run(code string) error {
	p.enter()
	defer p.leave()
	if p.rt.RunSimpleString(code) != 0 {
		return fmt.Errorf("pybridge: run failed; the interpreter reported the exception")
	}
	return nil
}

// RunModule compiles code and executes it as the module name, returning the
// module.
func (p *Python) RunModule(code, name string) (*Object, error) {
	p.enter()
	defer p.leave()
	compiled := p.rt.CompileString(code, name+".py", entities.StartFile)
	if compiled == 0 {
		return nil, p.failure()
	}
	defer p.rt.DecRef(compiled)
	return p.result(p.rt.ExecCodeModule(name, compiled))
}

// Eval evaluates expr with the globals of __main__.
func (p *Python) Eval(expr string) (*Object, error) {
	main, err := p.Import("__main__")
	if err != nil {
		return nil, err
	}
	defer main.Release()
	globals, err := main.GetAttr("__dict__")
	if err != nil {
		return nil, err
	}
	defer globals.Release()
	eval, err := p.Builtin("eval")
	if err != nil {
		return nil, err
	}
	defer eval.Release()
	return eval.Call(expr, globals)
}

// RunMain runs module as a script through runpy with sys.argv set to
// [module, argv...]. A SystemExit with a zero or None code is treated as
// success; any other SystemExit is returned as a *PythonError.
func (p *Python) RunMain(module string, argv ...string) error {
	return p.withArgv(append([]string{module}, argv...), func() error {
		runpy, err := p.Import("runpy")
		if err != nil {
			return err
		}
		defer runpy.Release()

		globals, err := runpy.CallMethod("run_module", module, KW("run_name", "__main__"), KW("alter_sys", true))
		if err != nil {
			return exitStatus(err)
		}
		globals.Release()
		return nil
	})
}

// RunScript executes code as __main__ with sys.argv set to
// [filename, argv...]. Tracebacks name filename. SystemExit is handled as in
// RunMain.
func (p *Python) RunScript(code, filename string, argv ...string) error {
	return p.withArgv(append([]string{filename}, argv...), func() error {
		p.enter()
		defer p.leave()
		compiled := p.rt.CompileString(code, filename, entities.StartFile)
		if compiled == 0 {
			return p.failure()
		}
		defer p.rt.DecRef(compiled)
		mod, err := p.result(p.rt.ExecCodeModule("__main__", compiled))
		if err != nil {
			return exitStatus(err)
		}
		mod.Release()
		return nil
	})
}

// withArgv runs fn with sys.argv replaced, restoring the previous value
// afterwards.
func (p *Python) withArgv(argv []string, fn func() error) error {
	sys, err := p.Import("sys")
	if err != nil {
		return err
	}
	defer sys.Release()

	saved, err := sys.GetAttr("argv")
	if err != nil {
		return err
	}
	defer saved.Release()
	if err := sys.SetAttr("argv", argv); err != nil {
		return err
	}
	defer func() {
		if err := sys.SetAttr("argv", saved); err != nil {
			p.logger.Error("pybridge: restoring sys.argv failed", "error", err)
		}
	}()
	return fn()
}

// exitStatus maps SystemExit(0) and SystemExit(None) to success.
func exitStatus(err error) error {
	if pe, ok := AsPythonError(err); ok && pe.Matches("SystemExit") {
		if code, cerr := pe.ExitCode(); cerr == nil && code == 0 {
			pe.Release()
			return nil
		}
	}
	return err
}

// None returns the None singleton.
func (p *Python) None() *Object {
	p.enter()
	defer p.leave()
	return p.acquire(p.rt.None())
}

// Bool returns True or False.
func (p *Python) Bool(v bool) *Object {
	o, _ := p.From(v)
	return o
}

// Int converts v to a foreign int.
func (p *Python) Int(v int64) *Object {
	o, _ := p.From(v)
	return o
}

// Float converts v to a foreign float.
func (p *Python) Float(v float64) *Object {
	o, _ := p.From(v)
	return o
}

// Str converts s to a foreign str. s must be valid UTF-8.
func (p *Python) Str(s string) (*Object, error) {
	return p.From(s)
}

// Bytes converts b to a foreign bytes object.
func (p *Python) Bytes(b []byte) *Object {
	o, _ := p.From(b)
	return o
}

// List builds a foreign list from items.
func (p *Python) List(items ...any) (*Object, error) {
	return p.From(items)
}

// Tuple builds a foreign tuple from items.
func (p *Python) Tuple(items ...any) (*Object, error) {
	return p.From(Tuple(items))
}

// Dict builds a foreign dict from alternating keys and values.
func (p *Python) Dict(pairs ...any) (*Object, error) {
	if len(pairs)%2 != 0 {
		return nil, &errors.MarshalError{Value: pairs, Reason: "odd number of key/value arguments"}
	}
	d := NewDict()
	for i := 0; i < len(pairs); i += 2 {
		d.Set(pairs[i], pairs[i+1])
	}
	return p.From(d)
}

// Set builds a foreign set from items.
func (p *Python) Set(items ...any) (*Object, error) {
	return p.From(NewSet(items...))
}
