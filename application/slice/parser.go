// Package slice parses the textual subscript grammar accepted by proxy keys,
// e.g. "1:3", "::2", "-1" or "1:, ..., ::2".
package slice

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
)

var (
	rangeAxis = regexp.MustCompile(`^\s*(-?\d+)?\s*:\s*(-?\d+)?\s*(?::\s*(-?\d+)?\s*)?$`)
	indexAxis = regexp.MustCompile(`^\s*(-?\d+)\s*$`)
	ellipsis  = regexp.MustCompile(`^\s*\.\.\.\s*$`)
)

// Parse interprets expr as a subscript.
//
// ok is false when expr is not subscript-shaped at all (identifier-like
// names, empty strings); callers then treat the key as an attribute name.
// A subscript-shaped expression that does not follow the grammar returns a
// *errors.SyntaxError. Bounds are never checked.
func Parse(expr string) (entities.Subscript, bool, error) {
	if !Looks(expr) {
		return nil, false, nil
	}

	var (
		sub    entities.Subscript
		offset int
	)
	for _, part := range strings.Split(expr, ",") {
		axis, err := parseAxis(expr, part, offset)
		if err != nil {
			return nil, true, err
		}
		sub = append(sub, axis)
		offset += len(part) + 1
	}
	return sub, true, nil
}

// Looks reports whether expr is built only from subscript characters
// (digits, signs, colons, commas, dots and blanks) and has at least one
// digit, colon or dot.
func Looks(expr string) bool {
	significant := false
	for _, r := range expr {
		switch {
		case r >= '0' && r <= '9', r == ':', r == '.':
			significant = true
		case r == '-', r == ',', r == ' ', r == '\t':
		default:
			return false
		}
	}
	return significant
}

func parseAxis(expr, part string, offset int) (entities.SliceSpec, error) {
	if strings.TrimSpace(part) == "" {
		return entities.SliceSpec{}, &errors.SyntaxError{Expr: expr, Pos: offset, Reason: "empty axis"}
	}
	if ellipsis.MatchString(part) {
		return entities.EllipsisAxis(), nil
	}
	if m := indexAxis.FindStringSubmatch(part); m != nil {
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return entities.SliceSpec{}, &errors.SyntaxError{Expr: expr, Pos: offset, Reason: "index out of range"}
		}
		return entities.IndexAxis(v), nil
	}
	m := rangeAxis.FindStringSubmatch(part)
	if m == nil {
		return entities.SliceSpec{}, &errors.SyntaxError{Expr: expr, Pos: offset + leadingBlanks(part), Reason: "expected start:stop:step, an index or ..."}
	}

	var bounds [3]*int64
	for i, s := range m[1:] {
		if s == "" {
			continue
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return entities.SliceSpec{}, &errors.SyntaxError{Expr: expr, Pos: offset, Reason: "bound out of range"}
		}
		bounds[i] = &v
	}
	return entities.RangeAxis(bounds[0], bounds[1], bounds[2]), nil
}

func leadingBlanks(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t"))
}
