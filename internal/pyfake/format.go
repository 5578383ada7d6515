package pyfake

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// repr renders repr(p). The fake's objects never fail to render.
func (r *Runtime) repr(p Ptr) string {
	return r.reprIn(p, map[Ptr]bool{})
}

// str renders str(p).
func (r *Runtime) str(p Ptr) string {
	o := r.obj(p)
	switch o.kind {
	case kindStr:
		return o.str
	case kindInstance:
		if r.isException(p) {
			return r.exceptionStr(p)
		}
	}
	return r.repr(p)
}

func (r *Runtime) reprIn(p Ptr, seen map[Ptr]bool) string {
	o := r.obj(p)
	switch o.kind {
	case kindNone:
		return "None"
	case kindBool:
		if o.num.Sign() != 0 {
			return "True"
		}
		return "False"
	case kindInt:
		return o.num.String()
	case kindFloat:
		return formatFloat(o.float)
	case kindStr:
		return quote(o.str)
	case kindBytes:
		return quoteBytes(o.bytes)
	case kindEllipsis:
		return "Ellipsis"
	case kindType:
		return fmt.Sprintf("<class '%s'>", o.str)
	case kindFunc:
		if o.self != 0 {
			return fmt.Sprintf("<bound method %s of %s>", o.str, r.reprIn(o.self, seen))
		}
		return fmt.Sprintf("<built-in function %s>", o.str)
	case kindModule:
		return fmt.Sprintf("<module '%s'>", o.str)
	case kindCode:
		return fmt.Sprintf("<code object <module> at %s, file \"%s\">", p, o.code.filename)
	case kindIter:
		return fmt.Sprintf("<iterator object at %s>", p)
	}

	if seen[p] {
		switch o.kind {
		case kindList:
			return "[...]"
		case kindDict:
			return "{...}"
		}
		return "..."
	}
	seen[p] = true
	defer delete(seen, p)

	join := func(items []Ptr) string {
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = r.reprIn(it, seen)
		}
		return strings.Join(parts, ", ")
	}

	switch o.kind {
	case kindList:
		return "[" + join(o.items) + "]"
	case kindTuple:
		if len(o.items) == 1 {
			return "(" + r.reprIn(o.items[0], seen) + ",)"
		}
		return "(" + join(o.items) + ")"
	case kindSlice:
		return "slice(" + join(o.items) + ")"
	case kindDict:
		parts := make([]string, 0, o.dict.len())
		for _, e := range o.dict.entries {
			parts = append(parts, r.reprIn(e.key, seen)+": "+r.reprIn(e.value, seen))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case kindSet, kindFrozenSet:
		keys := make([]Ptr, 0, o.dict.len())
		for _, e := range o.dict.entries {
			keys = append(keys, e.key)
		}
		body := "{" + join(keys) + "}"
		if len(keys) == 0 {
			body = ""
		}
		if o.kind == kindFrozenSet {
			return "frozenset(" + body + ")"
		}
		if body == "" {
			return "set()"
		}
		return body
	case kindArray:
		return "array(" + r.arrayRepr(o.arr, seen) + ")"
	case kindInstance:
		name := r.obj(o.typ).str
		if r.isException(p) {
			return name + "(" + join(r.exceptionArgs(p)) + ")"
		}
		if name == "SimpleNamespace" {
			ns := r.obj(o.ns).dict
			parts := make([]string, 0, ns.len())
			for _, e := range ns.entries {
				parts = append(parts, r.obj(e.key).str+"="+r.reprIn(e.value, seen))
			}
			return "namespace(" + strings.Join(parts, ", ") + ")"
		}
		return fmt.Sprintf("<%s object at %s>", name, p)
	}
	return fmt.Sprintf("<object at %s>", p)
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func quote(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}
	var b strings.Builder
	b.WriteByte(q)
	for _, c := range s {
		switch {
		case c == rune(q) || c == '\\':
			b.WriteByte('\\')
			b.WriteRune(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\r':
			b.WriteString(`\r`)
		case !unicode.IsPrint(c):
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteByte(q)
	return b.String()
}

func quoteBytes(bs []byte) string {
	var b strings.Builder
	b.WriteString("b'")
	for _, c := range bs {
		switch {
		case c == '\'' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
