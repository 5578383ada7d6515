package entities

// NamedArgument marks a call argument as a foreign keyword argument.
// Any number of them may appear among the arguments of one call; they are
// removed from the positional sequence and merged, in order, into a single
// keyword mapping.
type NamedArgument struct {
	Value any
	Name  string
}
