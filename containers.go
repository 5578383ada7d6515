package pybridge

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/reglet-dev/pybridge/domain/entities"
)

// Tuple marshals to a foreign tuple; plain slices marshal to lists.
type Tuple []any

// NamedArgument marks a call argument as a keyword argument.
type NamedArgument = entities.NamedArgument

// Kwargs is an ordered list of keyword arguments. Passed among the
// arguments of Call it is merged into the keyword mapping; as the last
// parameter of a callback it receives the caller's keyword arguments.
type Kwargs []NamedArgument

// KW returns a keyword argument.
//
//	fn.Call(1, pybridge.KW("reduce", 1))
func KW(name string, value any) NamedArgument {
	return NamedArgument{Name: name, Value: value}
}

// Get returns the value of the first argument called name.
func (k Kwargs) Get(name string) (any, bool) {
	for _, kw := range k {
		if kw.Name == name {
			return kw.Value, true
		}
	}
	return nil, false
}

// Dict is an insertion-ordered mapping that marshals to a foreign dict.
// Keys must be comparable.
type Dict struct {
	m *orderedmap.OrderedMap[any, any]
}

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{m: orderedmap.New[any, any]()}
}

// Set stores value under key, keeping the original position of an existing key.
func (d *Dict) Set(key, value any) *Dict {
	d.m.Set(key, value)
	return d
}

// Get returns the value stored under key.
func (d *Dict) Get(key any) (any, bool) {
	return d.m.Get(key)
}

// Delete removes key.
func (d *Dict) Delete(key any) {
	d.m.Delete(key)
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	return d.m.Len()
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []any {
	keys := make([]any, 0, d.m.Len())
	for pair := d.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Each calls fn for every entry in insertion order until fn returns false.
func (d *Dict) Each(fn func(key, value any) bool) {
	for pair := d.m.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Set is an insertion-ordered set that marshals to a foreign set.
type Set struct {
	m *orderedmap.OrderedMap[any, struct{}]
}

// NewSet returns a Set holding items.
func NewSet(items ...any) *Set {
	s := &Set{m: orderedmap.New[any, struct{}]()}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts item.
func (s *Set) Add(item any) {
	s.m.Set(item, struct{}{})
}

// Has reports whether item is present.
func (s *Set) Has(item any) bool {
	_, ok := s.m.Get(item)
	return ok
}

// Len returns the number of items.
func (s *Set) Len() int {
	return s.m.Len()
}

// Items returns the items in insertion order.
func (s *Set) Items() []any {
	items := make([]any, 0, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		items = append(items, pair.Key)
	}
	return items
}
