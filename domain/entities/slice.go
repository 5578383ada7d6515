package entities

import (
	"strconv"
	"strings"
)

// AxisKind tells which form one axis of a subscript takes.
type AxisKind int

const (
	// AxisIndex selects a single position, e.g. "0" or "-1".
	AxisIndex AxisKind = iota
	// AxisRange is a start:stop:step slice with optional components.
	AxisRange
	// AxisEllipsis is the "..." placeholder for skipped axes.
	AxisEllipsis
)

// SliceSpec is one parsed axis of a subscript expression.
// Start, Stop and Step are nil when omitted; the bridge maps nil to the
// foreign "unspecified" sentinel (None).
type SliceSpec struct {
	Start *int64
	Stop  *int64
	Step  *int64
	Index int64
	Kind  AxisKind
}

// IndexAxis returns a direct-index axis.
func IndexAxis(i int64) SliceSpec {
	return SliceSpec{Kind: AxisIndex, Index: i}
}

// RangeAxis returns a start:stop:step axis. Pass nil for omitted parts.
func RangeAxis(start, stop, step *int64) SliceSpec {
	return SliceSpec{Kind: AxisRange, Start: start, Stop: stop, Step: step}
}

// EllipsisAxis returns the "..." axis.
func EllipsisAxis() SliceSpec {
	return SliceSpec{Kind: AxisEllipsis}
}

// String renders the axis back in subscript syntax.
func (s SliceSpec) String() string {
	switch s.Kind {
	case AxisIndex:
		return strconv.FormatInt(s.Index, 10)
	case AxisEllipsis:
		return "..."
	}
	var b strings.Builder
	writeOpt(&b, s.Start)
	b.WriteByte(':')
	writeOpt(&b, s.Stop)
	if s.Step != nil {
		b.WriteByte(':')
		writeOpt(&b, s.Step)
	}
	return b.String()
}

func writeOpt(b *strings.Builder, v *int64) {
	if v != nil {
		b.WriteString(strconv.FormatInt(*v, 10))
	}
}

// Subscript is an ordered, multi-axis subscript. A single axis is used as a
// bare key; several axes are combined into one tuple key.
type Subscript []SliceSpec

func (s Subscript) String() string {
	parts := make([]string, len(s))
	for i, ax := range s {
		parts[i] = ax.String()
	}
	return strings.Join(parts, ", ")
}
