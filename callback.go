package pybridge

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
	"github.com/reglet-dev/pybridge/hostfuncs"
)

// CallbackFunc is the native callback signature. args and the values in
// kwargs are *Object proxies that are released when the callback returns;
// keep one with NewRef. The result is marshalled with From.
type CallbackFunc func(ctx context.Context, args []*Object, kwargs Kwargs) (any, error)

// Callback is a foreign callable backed by a host function. It is never
// released by the garbage collector: call Destroy once the foreign side no
// longer needs it.
type Callback struct {
	py        *Python
	obj       *Object
	name      string
	id        uintptr
	destroyed atomic.Bool
}

type callbackConfig struct {
	name string
}

// CallbackOption is a functional option for configuring a callback.
type CallbackOption func(*callbackConfig)

// WithName sets the name the callable reports as its __name__ and the name
// used in logs. It defaults to the Go function name.
func WithName(name string) CallbackOption {
	return func(c *callbackConfig) {
		c.name = name
	}
}

// Callback wraps fn as a foreign callable.
//
// fn is a CallbackFunc or any Go func. Other funcs are adapted by
// reflection: an optional leading context.Context, then positional
// parameters (materialized and converted, *Object receives the proxy and
// any receives the materialized value), an optional variadic tail, and an
// optional trailing Kwargs. It may return nothing, a value, an error, or a
// value and an error.
//
// Example usage:
//
//	cb, err := py.Callback(func(a int64, kw pybridge.Kwargs) int64 {
//	    return a + 8
//	})
//	defer cb.Destroy()
func (p *Python) Callback(fn any, opts ...CallbackOption) (*Callback, error) {
	cfg := callbackConfig{name: funcName(fn)}
	for _, opt := range opts {
		opt(&cfg)
	}
	call, err := adapt(fn)
	if err != nil {
		return nil, err
	}
	p.enter()
	defer p.leave()
	return p.newCallback(call, cfg.name)
}

// ownedCallback wraps a func met while marshalling. The caller must be
// entered.
func (p *Python) ownedCallback(fn any) (*Callback, error) {
	call, err := adapt(fn)
	if err != nil {
		return nil, &errors.MarshalError{Value: fn, Err: err}
	}
	return p.newCallback(call, funcName(fn))
}

func (p *Python) newCallback(fn CallbackFunc, name string) (*Callback, error) {
	cb := &Callback{py: p, name: name}
	cb.id = p.callbacks.Add(name, p.handler(fn))
	ptr := p.rt.NewCallable(name, cb.id)
	if ptr == 0 {
		p.callbacks.Remove(cb.id)
		return nil, p.failure()
	}
	// No cleanup: the callable may outlive every host reference to it.
	cb.obj = &Object{h: &handle{py: p, ptr: ptr}, py: p}
	p.live[cb.id] = cb
	p.logger.Debug("pybridge: callback created", "callback", name, "id", cb.id)
	return cb, nil
}

// handler adapts fn to the callback table. It runs inside the trampoline,
// already entered.
func (p *Python) handler(fn CallbackFunc) hostfuncs.Handler {
	return func(ctx context.Context, inv hostfuncs.Invocation) (entities.Ptr, error) {
		n := p.rt.TupleSize(inv.Args)
		if n < 0 {
			return 0, p.failure()
		}
		args := make([]*Object, n)
		for i := range n {
			args[i] = p.acquire(p.rt.TupleGetItem(inv.Args, i))
		}
		defer func() {
			for _, a := range args {
				a.Release()
			}
		}()

		var kwargs Kwargs
		defer func() {
			for _, kw := range kwargs {
				kw.Value.(*Object).Release()
			}
		}()
		if inv.Kwargs != 0 {
			var pos int
			for {
				k, v, ok := p.rt.DictNext(inv.Kwargs, &pos)
				if !ok {
					break
				}
				name, ok := p.rt.UnicodeAsUTF8(k)
				if !ok {
					return 0, p.failure()
				}
				kwargs = append(kwargs, KW(name, p.acquire(v)))
			}
		}

		outer := p.invoking
		p.invoking = ctx
		defer func() { p.invoking = outer }()

		res, err := fn(ctx, args, kwargs)
		if err != nil {
			return 0, err
		}
		return p.toForeign(res)
	}
}

// trampoline is installed in the runtime as the single entry point for
// every callable built by newCallback. A callback reached from inside
// another one gets a context nested under the outer call's.
func (p *Python) trampoline(id uintptr, args, kwargs entities.Ptr) entities.Ptr {
	parent := p.invoking
	if parent == nil {
		parent = context.Background()
	}
	res, err := p.callbacks.Invoke(parent, id, hostfuncs.Invocation{Args: args, Kwargs: kwargs})
	if err != nil {
		p.raise(err)
		return 0
	}
	return res
}

// ID returns the callback's id in the bridge's callback table.
func (c *Callback) ID() uintptr { return c.id }

// Name returns the callback name.
func (c *Callback) Name() string { return c.name }

// Object returns a new proxy for the callable.
func (c *Callback) Object() (*Object, error) {
	if c.destroyed.Load() {
		return nil, errors.ErrCallbackDestroyed
	}
	return c.obj.NewRef()
}

// Call invokes the callable through the foreign runtime.
func (c *Callback) Call(args ...any) (*Object, error) {
	if c.destroyed.Load() {
		return nil, errors.ErrCallbackDestroyed
	}
	return c.obj.Call(args...)
}

// Destroyed reports whether Destroy was called.
func (c *Callback) Destroyed() bool {
	return c.destroyed.Load()
}

// Destroy retires the host function and drops the bridge's reference to
// the callable. Foreign code still holding the callable gets a RuntimeError
// when calling it. Destroying twice is a no-op.
func (c *Callback) Destroy() {
	if !c.destroyed.CompareAndSwap(false, true) {
		return
	}
	c.py.callbacks.Remove(c.id)
	delete(c.py.live, c.id)
	c.obj.Release()
	c.py.logger.Debug("pybridge: callback destroyed", "callback", c.name, "id", c.id)
}

// DestroyCallbacks destroys every live callback of the bridge, including
// those created implicitly when marshalling funcs. It returns how many were
// destroyed.
func (p *Python) DestroyCallbacks() int {
	cbs := make([]*Callback, 0, len(p.live))
	for _, id := range p.callbacks.IDs() {
		if cb, ok := p.live[id]; ok {
			cbs = append(cbs, cb)
		}
	}
	for _, cb := range cbs {
		cb.Destroy()
	}
	return len(cbs)
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
	objectType  = reflect.TypeFor[*Object]()
	kwargsType  = reflect.TypeFor[Kwargs]()
)

// adapt turns fn into a CallbackFunc.
func adapt(fn any) (CallbackFunc, error) {
	switch f := fn.(type) {
	case nil:
		return nil, errors.ErrNotCallable
	case CallbackFunc:
		return f, nil
	case func(context.Context, []*Object, Kwargs) (any, error):
		return f, nil
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, errors.ErrNotCallable
	}
	sig, err := newSignature(rv.Type())
	if err != nil {
		return nil, err
	}
	name := funcName(fn)
	return func(ctx context.Context, args []*Object, kwargs Kwargs) (any, error) {
		in, err := sig.bind(name, ctx, args, kwargs)
		if err != nil {
			return nil, err
		}
		return sig.results(rv.Call(in))
	}, nil
}

// signature describes how foreign arguments map onto a Go func.
type signature struct {
	typ      reflect.Type
	params   []reflect.Type
	variadic reflect.Type
	withCtx  bool
	withKw   bool
}

func newSignature(t reflect.Type) (*signature, error) {
	s := &signature{typ: t}
	first, last := 0, t.NumIn()
	if last > 0 && t.In(0) == contextType {
		s.withCtx = true
		first++
	}
	if last > first && !t.IsVariadic() && t.In(last-1) == kwargsType {
		s.withKw = true
		last--
	}
	for i := first; i < last; i++ {
		s.params = append(s.params, t.In(i))
	}
	if t.IsVariadic() {
		s.variadic = s.params[len(s.params)-1].Elem()
		s.params = s.params[:len(s.params)-1]
	}

	switch t.NumOut() {
	case 0, 1:
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("%w: second result of %s must be error", errors.ErrNotCallable, t)
		}
	default:
		return nil, fmt.Errorf("%w: %s returns more than two values", errors.ErrNotCallable, t)
	}
	return s, nil
}

func (s *signature) bind(name string, ctx context.Context, args []*Object, kwargs Kwargs) ([]reflect.Value, error) {
	switch {
	case s.variadic == nil && len(args) != len(s.params):
		return nil, hostfuncs.Raise("TypeError", fmt.Sprintf("%s() takes %d positional arguments but %d were given", name, len(s.params), len(args)))
	case s.variadic != nil && len(args) < len(s.params):
		return nil, hostfuncs.Raise("TypeError", fmt.Sprintf("%s() takes at least %d positional arguments but %d were given", name, len(s.params), len(args)))
	case !s.withKw && len(kwargs) > 0:
		return nil, hostfuncs.Raise("TypeError", fmt.Sprintf("%s() got an unexpected keyword argument '%s'", name, kwargs[0].Name))
	}

	in := make([]reflect.Value, 0, s.typ.NumIn()+len(args))
	if s.withCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, a := range args {
		t := s.variadic
		if i < len(s.params) {
			t = s.params[i]
		}
		v, err := convertArg(a, t)
		if err != nil {
			return nil, hostfuncs.Raise("TypeError", fmt.Sprintf("%s() argument %d: %v", name, i+1, err))
		}
		in = append(in, v)
	}
	if s.withKw {
		in = append(in, reflect.ValueOf(kwargs))
	}
	return in, nil
}

func (s *signature) results(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if s.typ.Out(0) == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	}
	if err := asError(out[1]); err != nil {
		return nil, err
	}
	return out[0].Interface(), nil
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// convertArg converts a foreign argument to a Go parameter of type t.
func convertArg(o *Object, t reflect.Type) (reflect.Value, error) {
	if t == objectType {
		return reflect.ValueOf(o), nil
	}
	v, err := o.Materialize()
	if err != nil {
		return reflect.Value{}, err
	}
	return assign(v, t)
}

// assign converts a materialized value to t, element-wise for slices and
// maps.
func assign(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("None is not %s", t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, ok := v.(int64); ok {
			out := reflect.New(t).Elem()
			if out.OverflowInt(i) {
				return reflect.Value{}, &errors.OverflowError{Value: fmt.Sprint(i), Target: t.String()}
			}
			out.SetInt(i)
			return out, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if i, ok := v.(int64); ok {
			out := reflect.New(t).Elem()
			if i < 0 || out.OverflowUint(uint64(i)) {
				return reflect.Value{}, &errors.OverflowError{Value: fmt.Sprint(i), Target: t.String()}
			}
			out.SetUint(uint64(i))
			return out, nil
		}
	case reflect.Float32, reflect.Float64:
		switch f := v.(type) {
		case float64:
			return reflect.ValueOf(f).Convert(t), nil
		case int64:
			return reflect.ValueOf(float64(f)).Convert(t), nil
		}
	case reflect.String:
		if s, ok := v.(string); ok {
			return reflect.ValueOf(s).Convert(t), nil
		}
	case reflect.Bool:
		if b, ok := v.(bool); ok {
			return reflect.ValueOf(b).Convert(t), nil
		}
	case reflect.Slice:
		var items []any
		switch x := v.(type) {
		case []any:
			items = x
		case Tuple:
			items = x
		case *Set:
			items = x.Items()
		}
		if items != nil {
			out := reflect.MakeSlice(t, len(items), len(items))
			for i, item := range items {
				e, err := assign(item, t.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(e)
			}
			return out, nil
		}
	case reflect.Map:
		if d, ok := v.(*Dict); ok {
			out := reflect.MakeMapWithSize(t, d.Len())
			var err error
			d.Each(func(key, value any) bool {
				var k, e reflect.Value
				if k, err = assign(key, t.Key()); err != nil {
					return false
				}
				if e, err = assign(value, t.Elem()); err != nil {
					return false
				}
				out.SetMapIndex(k, e)
				return true
			})
			if err != nil {
				return reflect.Value{}, err
			}
			return out, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, t)
}

// funcName returns the unqualified name of a Go func, or "callback".
func funcName(fn any) string {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return "callback"
	}
	f := runtime.FuncForPC(rv.Pointer())
	if f == nil {
		return "callback"
	}
	name := strings.TrimSuffix(f.Name(), "-fm")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || strings.HasPrefix(name, "func") {
		return "callback"
	}
	return name
}
