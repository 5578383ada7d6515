package entities

import "strings"

// ValidationResult is the outcome of validating one configuration document.
type ValidationResult struct {
	Errors ValidationErrors
	Valid  bool
}

// ValidationError is one problem found in a configuration document. Field
// is the dotted YAML path, empty when the problem is not tied to a field.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors lists every problem found in a document, in the order
// they were found.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Message
		if e.Field != "" {
			parts[i] = e.Field + ": " + e.Message
		}
	}
	return strings.Join(parts, "; ")
}
