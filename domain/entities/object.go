package entities

import "fmt"

// Ptr is the address of one foreign object. The zero Ptr is the foreign
// runtime's NULL and signals failure wherever an object was expected.
type Ptr uintptr

// IsNull reports whether p is the NULL pointer.
func (p Ptr) IsNull() bool {
	return p == 0
}

func (p Ptr) String() string {
	return fmt.Sprintf("0x%x", uintptr(p))
}

// CompareOp is a rich-comparison opcode. The values match the foreign
// runtime's Py_LT..Py_GE constants and are passed through unchanged.
type CompareOp int

const (
	CompareLT CompareOp = 0
	CompareLE CompareOp = 1
	CompareEQ CompareOp = 2
	CompareNE CompareOp = 3
	CompareGT CompareOp = 4
	CompareGE CompareOp = 5
)

var compareSymbols = [...]string{"<", "<=", "==", "!=", ">", ">="}

// String returns the operator symbol, e.g. "<=".
func (op CompareOp) String() string {
	if op < CompareLT || op > CompareGE {
		return fmt.Sprintf("CompareOp(%d)", int(op))
	}
	return compareSymbols[op]
}

// Valid reports whether op is one of the six defined opcodes.
func (op CompareOp) Valid() bool {
	return op >= CompareLT && op <= CompareGE
}

// StartMode selects the grammar used when compiling foreign source.
// Values match Py_single_input, Py_file_input and Py_eval_input.
type StartMode int

const (
	StartSingle StartMode = 256
	StartFile   StartMode = 257
	StartEval   StartMode = 258
)
