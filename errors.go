package pybridge

import (
	stdErrors "errors"
	"runtime"
	"strings"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/hostfuncs"
)

// PythonError is a foreign exception fetched from the interpreter. Type,
// Value and Traceback own their references; Traceback may be nil.
type PythonError struct {
	Type      *Object
	Value     *Object
	Traceback *Object

	py       *Python
	typeName string
	message  string
}

// AsPythonError finds a *PythonError in err's chain.
func AsPythonError(err error) (*PythonError, bool) {
	var pe *PythonError
	if stdErrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// check converts a set error indicator into a *PythonError and clears it.
// It returns nil when no exception is pending. The caller must be entered.
func (p *Python) check() error {
	if p.rt.ErrOccurred() == 0 {
		return nil
	}
	typ, value, tb := p.rt.ErrFetch()
	typ, value, tb = p.rt.ErrNormalize(typ, value, tb)

	e := &PythonError{
		py:        p,
		Type:      p.steal(typ),
		Value:     p.steal(value),
		Traceback: p.steal(tb),
	}
	e.typeName = p.rawString(typ, "__name__")
	if e.typeName == "" {
		e.typeName = "Exception"
	}
	e.message = p.rawString(value, "")
	return e
}

// rawString returns str(o) or str(o.attr) without raising. Failures yield "".
func (p *Python) rawString(o entities.Ptr, attr string) string {
	if o == 0 {
		return ""
	}
	if attr != "" {
		a := p.rt.GetAttrString(o, attr)
		if a == 0 {
			p.rt.ErrClear()
			return ""
		}
		defer p.rt.DecRef(a)
		o = a
	}
	s := p.rt.Str(o)
	if s == 0 {
		p.rt.ErrClear()
		return ""
	}
	defer p.rt.DecRef(s)
	text, ok := p.rt.UnicodeAsUTF8(s)
	if !ok {
		p.rt.ErrClear()
		return ""
	}
	return text
}

// Error returns "TypeName: message", or just the type name when the
// exception has no message.
func (e *PythonError) Error() string {
	if e.message == "" {
		return e.typeName
	}
	return e.typeName + ": " + e.message
}

// TypeName returns the exception class name, e.g. "ZeroDivisionError".
func (e *PythonError) TypeName() string {
	return e.typeName
}

// Message returns str() of the exception value.
func (e *PythonError) Message() string {
	return e.message
}

// IsInstance reports whether the exception value is an instance of cls.
func (e *PythonError) IsInstance(cls *Object) bool {
	if e.Value == nil {
		return e.Type.Is(cls)
	}
	ok, err := e.Value.IsInstance(cls)
	return err == nil && ok
}

// Matches reports whether the exception is an instance of the builtin
// exception class name, e.g. "KeyError" also matches "LookupError".
func (e *PythonError) Matches(name string) bool {
	p := e.py
	p.enter()
	defer p.leave()
	cls := p.rt.DictGetItemString(p.builtinsPtr(), name)
	if cls == 0 {
		return e.typeName == name
	}
	subject, err := e.Value.ptr()
	if err != nil {
		return e.typeName == name
	}
	defer runtime.KeepAlive(e.Value)
	res := p.rt.IsInstance(subject, cls)
	if res < 0 {
		p.rt.ErrClear()
		return false
	}
	return res == 1
}

// ExitCode extracts the integer payload of the exception: the value itself
// when it is an int, otherwise its code attribute (SystemExit), otherwise
// args[0]. A None payload is 0; a payload that is not an int is 1, which is
// what the interpreter itself exits with for SystemExit("message").
func (e *PythonError) ExitCode() (int, error) {
	code, _, err := e.exitCode()
	return code, err
}

// ExitMessage returns the text the interpreter prints when exiting with e:
// the message of a payload that is neither an int nor None, otherwise "".
func (e *PythonError) ExitMessage() string {
	if _, numeric, err := e.exitCode(); err == nil && numeric {
		return ""
	}
	return e.Message()
}

// exitCode also reports whether the payload was an int or None.
func (e *PythonError) exitCode() (int, bool, error) {
	if e.Value == nil {
		return 1, false, nil
	}
	if v, err := e.Value.AsInt64(); err == nil {
		return int(v), true, nil
	}
	payload, err := e.Value.GetAttr("code")
	if err != nil {
		releaseError(err)
		args, aerr := e.Value.GetAttr("args")
		if aerr != nil {
			return 0, false, aerr
		}
		defer args.Release()
		n, lerr := args.Len()
		if lerr != nil {
			return 0, false, lerr
		}
		if n == 0 {
			return 0, true, nil
		}
		if payload, err = args.GetItem(0); err != nil {
			return 0, false, err
		}
	}
	defer payload.Release()
	if payload.IsNone() {
		return 0, true, nil
	}
	v, err := payload.AsInt64()
	if err != nil {
		releaseError(err)
		return 1, false, nil
	}
	return int(v), true, nil
}

// Format renders the exception with traceback.format_exception.
func (e *PythonError) Format() (string, error) {
	tbmod, err := e.py.Import("traceback")
	if err != nil {
		return "", err
	}
	defer tbmod.Release()
	var tb any
	if e.Traceback != nil {
		tb = e.Traceback
	}
	lines, err := tbmod.CallMethod("format_exception", e.Type, e.Value, tb)
	if err != nil {
		return "", err
	}
	defer lines.Release()
	var b strings.Builder
	for line, err := range lines.Iter() {
		if err != nil {
			return "", err
		}
		s, serr := line.Str()
		line.Release()
		if serr != nil {
			return "", serr
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// ToErrorDetail implements errors.DetailedError.
func (e *PythonError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrTypeForeign, Code: e.typeName}
	if !e.Type.Released() {
		if tb, err := e.Format(); err == nil {
			detail.Traceback = tb
		}
	}
	return detail
}

// Release drops the references held by the exception.
func (e *PythonError) Release() {
	e.Type.Release()
	e.Value.Release()
	e.Traceback.Release()
}

// raise sets the error indicator from a host error: a wrapped *PythonError
// is re-raised as itself; other errors become the builtin exception named by
// hostfuncs.ExceptionName. The caller must be entered.
func (p *Python) raise(err error) {
	if pe, ok := AsPythonError(err); ok && pe.py == p {
		typ, terr := pe.Type.ptr()
		value, verr := pe.Value.ptr()
		if terr == nil && verr == nil {
			p.rt.ErrSetObject(typ, value)
			runtime.KeepAlive(pe)
			return
		}
	}
	cls := p.rt.DictGetItemString(p.builtinsPtr(), hostfuncs.ExceptionName(err))
	if cls == 0 {
		cls = p.rt.DictGetItemString(p.builtinsPtr(), hostfuncs.DefaultException)
	}
	p.rt.ErrSetString(cls, err.Error())
}
