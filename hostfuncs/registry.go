package hostfuncs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
)

// Table maps callback ids to host functions. Unlike a static registry,
// entries come and go for the life of the bridge: Add hands out a fresh id,
// Remove retires it, and ids are never reused.
type Table struct {
	entries    map[uintptr]*entry
	middleware []Middleware
	mu         sync.RWMutex
	next       uintptr
}

type entry struct {
	handler Handler
	name    string
}

// tableConfig accumulates configuration during table construction.
type tableConfig struct {
	middleware []Middleware
}

// TableOption is a functional option for configuring a Table.
type TableOption func(*tableConfig)

// WithMiddleware adds middleware to the table.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) TableOption {
	return func(c *tableConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// NewTable creates an empty Table.
//
// Example usage:
//
//	table := NewTable(
//	    WithMiddleware(PanicRecoveryMiddleware(), LoggingMiddleware(slog.Default())),
//	)
//	id := table.Add("reduce", handler)
func NewTable(opts ...TableOption) *Table {
	cfg := &tableConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Table{
		entries:    make(map[uintptr]*entry),
		middleware: cfg.middleware,
	}
}

// Add registers a handler under name and returns its id. Ids start at 1.
func (t *Table) Add(name string, handler Handler) uintptr {
	wrapped := handler
	// Apply middleware in reverse order so first middleware wraps outermost
	for i := len(t.middleware) - 1; i >= 0; i-- {
		wrapped = t.middleware[i](wrapped)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.entries[t.next] = &entry{name: name, handler: wrapped}
	return t.next
}

// Remove retires id. It reports whether the id was live.
func (t *Table) Remove(id uintptr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[id]
	delete(t.entries, id)
	return ok
}

// Has returns true if id is live.
func (t *Table) Has(id uintptr) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[id]
	return ok
}

// Name returns the name id was registered under.
func (t *Table) Name(id uintptr) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	if !ok {
		return "", false
	}
	return e.name, true
}

// IDs returns the live ids in ascending order.
func (t *Table) IDs() []uintptr {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]uintptr, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Invoke dispatches a foreign call to the handler registered under id.
// A retired id yields a *errors.CallbackError wrapping errors.ErrCallbackDestroyed.
func (t *Table) Invoke(ctx context.Context, id uintptr, inv Invocation) (entities.Ptr, error) {
	t.mu.RLock()
	e, ok := t.entries[id]
	t.mu.RUnlock()
	if !ok {
		return 0, &errors.CallbackError{Name: fmt.Sprintf("#%d", id), Err: errors.ErrCallbackDestroyed}
	}

	return e.handler(NewHostContext(ctx, id, e.name), inv)
}
