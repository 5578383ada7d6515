package pybridge

import (
	"runtime"
	"sync/atomic"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
)

// handle owns exactly one foreign reference.
type handle struct {
	py       *Python
	cleanup  runtime.Cleanup
	ptr      entities.Ptr
	released atomic.Bool
}

// collect is the GC cleanup of an *Object. It runs on the collector's
// goroutine, so it only queues the pointer.
func (h *handle) collect() {
	if h.released.CompareAndSwap(false, true) {
		h.py.enqueue(h.ptr)
	}
}

// acquire wraps a borrowed reference, taking a new reference of its own.
// The caller must be entered.
func (p *Python) acquire(ptr entities.Ptr) *Object {
	p.rt.IncRef(ptr)
	return p.steal(ptr)
}

// steal wraps a new reference without incrementing it. It returns nil for
// NULL.
func (p *Python) steal(ptr entities.Ptr) *Object {
	if ptr == 0 {
		return nil
	}
	h := &handle{py: p, ptr: ptr}
	o := &Object{h: h, py: p}
	h.cleanup = runtime.AddCleanup(o, (*handle).collect, h)
	return o
}

// ptr returns the foreign pointer, or ErrReleased.
func (o *Object) ptr() (entities.Ptr, error) {
	if o == nil {
		return 0, errors.ErrReleased
	}
	if o.h.released.Load() {
		return 0, errors.ErrReleased
	}
	return o.h.ptr, nil
}

// use enters the interpreter on behalf of o, or fails with ErrReleased.
// The returned func leaves and keeps o reachable until it runs.
func (o *Object) use() (func(), error) {
	if _, err := o.ptr(); err != nil {
		return nil, err
	}
	o.py.enter()
	return func() {
		o.py.leave()
		runtime.KeepAlive(o)
	}, nil
}

// Release drops the proxy's reference. Further use of o fails with
// errors.ErrReleased; releasing twice is a no-op.
func (o *Object) Release() {
	if o == nil || !o.h.released.CompareAndSwap(false, true) {
		return
	}
	o.h.cleanup.Stop()
	o.py.enter()
	o.py.rt.DecRef(o.h.ptr)
	o.py.leave()
}

// Released reports whether Release was called.
func (o *Object) Released() bool {
	return o == nil || o.h.released.Load()
}

// Ptr returns the raw foreign pointer without transferring ownership. The
// pointer is valid only while o is not released.
func (o *Object) Ptr() entities.Ptr {
	if o.Released() {
		return 0
	}
	return o.h.ptr
}

// NewRef returns an independent proxy with its own reference to the same
// foreign object.
func (o *Object) NewRef() (*Object, error) {
	ptr, err := o.ptr()
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(o)
	o.py.enter()
	defer o.py.leave()
	return o.py.acquire(ptr), nil
}
