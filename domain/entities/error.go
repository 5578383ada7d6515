package entities

import "fmt"

// Error categories carried in ErrorDetail.Type.
const (
	ErrTypeForeign  = "foreign"
	ErrTypeMarshal  = "marshal"
	ErrTypeSyntax   = "syntax"
	ErrTypeOverflow = "overflow"
	ErrTypeInit     = "init"
	ErrTypeCallback = "callback"
	ErrTypeConfig   = "config"
	ErrTypePanic    = "panic"
	ErrTypeInternal = "internal"
)

// ErrorDetail is the serializable form of any bridge error. The CLI prints
// it inside JSON envelopes, so field names are part of the output format.
type ErrorDetail struct {
	Details   map[string]any `json:"details,omitempty"`
	Wrapped   *ErrorDetail   `json:"wrapped,omitempty"`
	Type      string         `json:"type"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Traceback string         `json:"traceback,omitempty"` // formatted foreign traceback
	Stack     []byte         `json:"stack,omitempty"`     // host stack of a recovered panic
}

func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != ErrTypeInternal {
		msg = e.Type + ": " + msg
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// NewErrorDetail returns a detail of the given category.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{Type: errorType, Message: message}
}
