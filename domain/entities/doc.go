// Package entities provides the core value types shared by the bridge layers:
// foreign object pointers, comparison opcodes, parsed subscripts, keyword
// arguments, structured error details and the bridge configuration.
//
// Nothing in this package talks to the foreign runtime.
package entities
