package hostfuncs

import (
	"context"
)

// HostContext is the context a handler receives for one foreign call. It
// identifies the callback being invoked and carries values that middleware
// stores for the duration of that call.
type HostContext interface {
	context.Context

	// CallbackID returns the table id of the invoked callback.
	CallbackID() uintptr

	// CallbackName returns the name the callback was registered under.
	CallbackName() string

	// Depth is 1 for a callback entered from foreign code that was itself
	// called from the host, and grows by one per nested callback.
	Depth() int

	// SetValue stores a value visible to later middleware and the handler
	// of the same call only.
	SetValue(key, value any)

	// GetValue retrieves a value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

type hostContext struct {
	context.Context
	values map[any]any
	name   string
	id     uintptr
	depth  int
}

// NewHostContext derives the context for invoking callback id. When parent
// already belongs to a callback, the new context is nested one level deeper
// and does not inherit the parent's stored values.
func NewHostContext(parent context.Context, id uintptr, name string) HostContext {
	depth := 1
	if hc, ok := parent.(HostContext); ok {
		depth = hc.Depth() + 1
	}
	return &hostContext{Context: parent, id: id, name: name, depth: depth}
}

func (c *hostContext) CallbackID() uintptr  { return c.id }
func (c *hostContext) CallbackName() string { return c.name }
func (c *hostContext) Depth() int           { return c.depth }

func (c *hostContext) SetValue(key, value any) {
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = value
}

func (c *hostContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}
