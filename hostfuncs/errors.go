package hostfuncs

import (
	stdErrors "errors"

	"github.com/reglet-dev/pybridge/domain/errors"
)

// DefaultException is the builtin exception raised for host errors that do
// not name one.
const DefaultException = "RuntimeError"

// ForeignException is implemented by host errors that want to surface as a
// specific builtin exception class, e.g. "ValueError" or "KeyError".
type ForeignException interface {
	error
	ForeignException() string
}

// ExceptionName picks the builtin exception class used to raise err inside
// the foreign runtime.
func ExceptionName(err error) string {
	var fe ForeignException
	if stdErrors.As(err, &fe) {
		if name := fe.ForeignException(); name != "" {
			return name
		}
	}
	return DefaultException
}

// Raise returns an error that ExceptionName maps to the builtin class name.
func Raise(name, message string) error {
	return &raised{name: name, message: message}
}

type raised struct {
	name    string
	message string
}

func (r *raised) Error() string            { return r.message }
func (r *raised) ForeignException() string { return r.name }

// IsDestroyed reports whether err came from invoking a retired callback.
func IsDestroyed(err error) bool {
	return stdErrors.Is(err, errors.ErrCallbackDestroyed)
}
