package pyfake

import (
	"math/big"
)

type kind uint8

const (
	kindNone kind = iota
	kindBool
	kindInt
	kindFloat
	kindStr
	kindBytes
	kindList
	kindTuple
	kindDict
	kindSet
	kindFrozenSet
	kindSlice
	kindEllipsis
	kindType
	kindFunc
	kindModule
	kindInstance
	kindIter
	kindCode
	kindArray
)

// builtin is the native body of a function or type. args are borrowed and
// kw may be nil; it returns a new reference or 0 with the error indicator set.
type builtin func(args []Ptr, kw *dict) Ptr

type object struct {
	num   *big.Int
	dict  *dict
	call  builtin
	next  func() Ptr
	code  *program
	arr   *ndarray
	str   string
	bytes []byte
	items []Ptr
	held  []Ptr
	float float64
	typ   Ptr
	ns    Ptr
	base  Ptr
	self  Ptr
	refs  int
	kind  kind

	immortal bool
	method   bool
}

// children lists the references o owns.
func (o *object) children() []Ptr {
	var out []Ptr
	for _, p := range o.items {
		if p != 0 {
			out = append(out, p)
		}
	}
	if o.dict != nil {
		for _, e := range o.dict.entries {
			out = append(out, e.key)
			if e.value != 0 {
				out = append(out, e.value)
			}
		}
	}
	if o.arr != nil {
		out = append(out, o.arr.data...)
	}
	out = append(out, o.held...)
	for _, p := range []Ptr{o.ns, o.self} {
		if p != 0 {
			out = append(out, p)
		}
	}
	return out
}

// dict is an insertion-ordered hash table. Keys are identified by a hash
// string computed from their value; sets store a zero value.
type dict struct {
	index   map[string]int
	entries []entry
}

type entry struct {
	hash  string
	key   Ptr
	value Ptr
}

func newDict() *dict {
	return &dict{index: make(map[string]int)}
}

func (d *dict) lookup(hash string) (entry, bool) {
	i, ok := d.index[hash]
	if !ok {
		return entry{}, false
	}
	return d.entries[i], true
}

// put stores key and value, both already owned by the caller, and returns
// the references the table released (the replaced value and the duplicate key).
func (d *dict) put(hash string, key, value Ptr) []Ptr {
	if i, ok := d.index[hash]; ok {
		old := d.entries[i].value
		d.entries[i].value = value
		return []Ptr{key, old}
	}
	d.index[hash] = len(d.entries)
	d.entries = append(d.entries, entry{hash: hash, key: key, value: value})
	return nil
}

// remove drops hash and returns the released key and value.
func (d *dict) remove(hash string) (entry, bool) {
	i, ok := d.index[hash]
	if !ok {
		return entry{}, false
	}
	e := d.entries[i]
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	delete(d.index, hash)
	for j := i; j < len(d.entries); j++ {
		d.index[d.entries[j].hash] = j
	}
	return e, true
}

func (d *dict) getString(name string) Ptr {
	e, ok := d.lookup(strHash(name))
	if !ok {
		return 0
	}
	return e.value
}

func (d *dict) len() int { return len(d.entries) }

func strHash(s string) string { return "s:" + s }
