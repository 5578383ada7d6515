// Package errors provides the host-side error types of the bridge.
// All error types support error unwrapping via errors.As() and errors.Is().
//
// Bridged foreign exceptions are not defined here: they carry live foreign
// objects and live next to the proxy layer as pybridge.PythonError.
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/pybridge/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

var (
	// ErrReleased is returned when an object is used after Release.
	ErrReleased = stdErrors.New("foreign object already released")

	// ErrCallbackDestroyed is returned when a destroyed callback is invoked.
	ErrCallbackDestroyed = stdErrors.New("callback has been destroyed")

	// ErrAlreadyBound is returned when a second bridge is created for a runtime.
	ErrAlreadyBound = stdErrors.New("foreign runtime already has a bridge; repeated initialization is unsupported")

	// ErrNotCallable is returned when a host value cannot be adapted as a callback.
	ErrNotCallable = stdErrors.New("value is not a function")

	// ErrNullResult is returned when the foreign runtime reports failure
	// without setting an exception.
	ErrNullResult = stdErrors.New("foreign call failed without setting an exception")
)

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail. New error types only need to implement this
// interface without modifying ToErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// This function recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	// If the error is already a *ErrorDetail (entity), use it directly.
	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	switch {
	case stdErrors.Is(err, ErrReleased):
		return &entities.ErrorDetail{Message: err.Error(), Type: entities.ErrTypeInternal, Code: "released"}
	case stdErrors.Is(err, ErrCallbackDestroyed):
		return &entities.ErrorDetail{Message: err.Error(), Type: entities.ErrTypeCallback, Code: "destroyed"}
	}

	// Generic error - categorize as internal
	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    entities.ErrTypeInternal,
	}
}

// MarshalError represents a host value with no foreign representation.
type MarshalError struct {
	Err    error
	Value  any
	Reason string
}

func (e *MarshalError) Error() string {
	msg := fmt.Sprintf("cannot marshal %T", e.Value)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *MarshalError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *MarshalError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrTypeMarshal, Code: fmt.Sprintf("%T", e.Value)}
}

// SyntaxError represents a malformed subscript expression.
type SyntaxError struct {
	Expr   string
	Reason string
	Pos    int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid subscript %q at offset %d: %s", e.Expr, e.Pos, e.Reason)
}

// ToErrorDetail implements DetailedError.
func (e *SyntaxError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrTypeSyntax, Code: "subscript"}
}

// OverflowError represents a foreign number that does not fit the requested host type.
type OverflowError struct {
	Value  string // decimal rendering of the foreign value
	Target string // host type, e.g. "int64"
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("value %s overflows %s", e.Value, e.Target)
}

// ToErrorDetail implements DetailedError.
func (e *OverflowError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrTypeOverflow, Code: e.Target}
}

// InitError represents a fatal failure to load or start the foreign runtime.
type InitError struct {
	Err     error
	Library string
	Symbol  string
	Tried   []string
}

func (e *InitError) Error() string {
	switch {
	case e.Symbol != "":
		return fmt.Sprintf("foreign runtime %s: missing entry point %s: %v", e.Library, e.Symbol, e.Err)
	case e.Library != "":
		return fmt.Sprintf("foreign runtime %s: %v", e.Library, e.Err)
	case len(e.Tried) > 0:
		return fmt.Sprintf("could not load foreign runtime (tried %d candidates): %v", len(e.Tried), e.Err)
	}
	return fmt.Sprintf("foreign runtime initialization failed: %v", e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *InitError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrTypeInit, Code: e.Symbol}
	if len(e.Tried) > 0 {
		detail.Details = map[string]any{"tried": e.Tried}
	}
	return detail
}

// CallbackError represents a failure raised by a host callback.
type CallbackError struct {
	Err  error
	Name string
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback %s failed: %v", e.Name, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *CallbackError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrTypeCallback, Code: e.Name}
	if stdErrors.Is(e.Err, ErrCallbackDestroyed) {
		detail.Code = "destroyed"
	}
	return detail
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrTypeConfig, Code: e.Field}
}

// SchemaError represents a schema generation or validation error.
type SchemaError struct {
	Err  error
	Type string
}

func (e *SchemaError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema error for type %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("schema error: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SchemaError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrTypeConfig, Code: "schema"}
}

// PanicError represents a panic recovered at the callback boundary.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	switch v := e.Value.(type) {
	case error:
		return "panic: " + v.Error()
	case string:
		return "panic: " + v
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a panicked error value to errors.Is and errors.As.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ToErrorDetail implements DetailedError.
func (e *PanicError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrTypePanic, Stack: e.Stack}
}
