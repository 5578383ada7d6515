package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalError(t *testing.T) {
	err := &MarshalError{
		Value:  make(chan int),
		Reason: "unsupported kind chan",
	}

	assert.Equal(t, "cannot marshal chan int: unsupported kind chan", err.Error())

	var marshalErr *MarshalError
	require.True(t, errors.As(fmt.Errorf("call: %w", err), &marshalErr))
	assert.Equal(t, "unsupported kind chan", marshalErr.Reason)
}

func TestMarshalError_Wrapped(t *testing.T) {
	baseErr := fmt.Errorf("invalid UTF-8")
	err := &MarshalError{Value: "\xff", Err: baseErr}

	assert.Equal(t, "cannot marshal string: invalid UTF-8", err.Error())
	assert.True(t, errors.Is(err, baseErr))
}

func TestSyntaxError(t *testing.T) {
	err := &SyntaxError{Expr: "1:2:3:4", Pos: 5, Reason: "too many components"}

	assert.Equal(t, `invalid subscript "1:2:3:4" at offset 5: too many components`, err.Error())

	detail := err.ToErrorDetail()
	assert.Equal(t, "syntax", detail.Type)
	assert.Equal(t, "subscript", detail.Code)
}

func TestOverflowError(t *testing.T) {
	err := &OverflowError{Value: "18446744073709551616", Target: "int64"}

	assert.Equal(t, "value 18446744073709551616 overflows int64", err.Error())
	assert.Equal(t, "overflow", err.ToErrorDetail().Type)
}

func TestInitError(t *testing.T) {
	baseErr := fmt.Errorf("cannot open shared object file")

	tests := []struct {
		name string
		err  *InitError
		want string
	}{
		{
			name: "library",
			err:  &InitError{Library: "libpython3.12.so", Err: baseErr},
			want: "foreign runtime libpython3.12.so: cannot open shared object file",
		},
		{
			name: "symbol",
			err:  &InitError{Library: "libpython3.12.so", Symbol: "Py_Initialize", Err: baseErr},
			want: "foreign runtime libpython3.12.so: missing entry point Py_Initialize: cannot open shared object file",
		},
		{
			name: "search",
			err:  &InitError{Tried: []string{"a.so", "b.so"}, Err: baseErr},
			want: "could not load foreign runtime (tried 2 candidates): cannot open shared object file",
		},
		{
			name: "bare",
			err:  &InitError{Err: baseErr},
			want: "foreign runtime initialization failed: cannot open shared object file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, errors.Is(tt.err, baseErr))
			assert.Equal(t, "init", tt.err.ToErrorDetail().Type)
		})
	}
}

func TestInitError_TriedDetails(t *testing.T) {
	err := &InitError{Tried: []string{"a.so"}, Err: fmt.Errorf("not found")}
	detail := err.ToErrorDetail()
	require.NotNil(t, detail.Details)
	assert.Equal(t, []string{"a.so"}, detail.Details["tried"])
}

func TestCallbackError(t *testing.T) {
	err := &CallbackError{Name: "reduce", Err: ErrCallbackDestroyed}

	assert.Equal(t, "callback reduce failed: callback has been destroyed", err.Error())
	assert.True(t, errors.Is(err, ErrCallbackDestroyed))
	assert.Equal(t, "destroyed", err.ToErrorDetail().Code)

	other := &CallbackError{Name: "reduce", Err: fmt.Errorf("boom")}
	assert.Equal(t, "reduce", other.ToErrorDetail().Code)
}

func TestConfigError(t *testing.T) {
	baseErr := fmt.Errorf("invalid format")
	err := &ConfigError{
		Field: "log_level",
		Err:   baseErr,
	}

	assert.Equal(t, "config validation failed for field 'log_level': invalid format", err.Error())
	assert.True(t, errors.Is(err, baseErr))

	var confErr *ConfigError
	require.True(t, errors.As(err, &confErr))
	assert.Equal(t, "log_level", confErr.Field)
}

func TestConfigError_NoField(t *testing.T) {
	baseErr := fmt.Errorf("missing required fields")
	err := &ConfigError{
		Err: baseErr,
	}

	assert.Equal(t, "config validation failed: missing required fields", err.Error())
}

func TestSchemaError(t *testing.T) {
	baseErr := fmt.Errorf("unsupported type")
	err := &SchemaError{
		Type: "BridgeConfig",
		Err:  baseErr,
	}

	assert.Equal(t, "schema error for type BridgeConfig: unsupported type", err.Error())
	assert.True(t, errors.Is(err, baseErr))

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "BridgeConfig", schemaErr.Type)
}

func TestSchemaError_NoType(t *testing.T) {
	err := &SchemaError{Err: fmt.Errorf("invalid schema")}

	assert.Equal(t, "schema error: invalid schema", err.Error())
}

func TestPanicError(t *testing.T) {
	baseErr := fmt.Errorf("nil map")

	assert.Equal(t, "panic: nil map", (&PanicError{Value: baseErr}).Error())
	assert.Equal(t, "panic: oops", (&PanicError{Value: "oops"}).Error())
	assert.Equal(t, "panic: 42", (&PanicError{Value: 42}).Error())

	assert.True(t, errors.Is(&PanicError{Value: baseErr}, baseErr))
	assert.Nil(t, (&PanicError{Value: "oops"}).Unwrap())

	detail := (&PanicError{Value: "oops", Stack: []byte("goroutine 1")}).ToErrorDetail()
	assert.Equal(t, "panic", detail.Type)
	assert.Equal(t, []byte("goroutine 1"), detail.Stack)
}

func TestToErrorDetail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType string
		wantCode string
	}{
		{"nil-safe generic", fmt.Errorf("plain"), "internal", ""},
		{"released", fmt.Errorf("get: %w", ErrReleased), "internal", "released"},
		{"destroyed", ErrCallbackDestroyed, "callback", "destroyed"},
		{"marshal", &MarshalError{Value: 1.5}, "marshal", "float64"},
		{"wrapped config", fmt.Errorf("load: %w", &ConfigError{Field: "argv", Err: errors.New("x")}), "config", "argv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail := ToErrorDetail(tt.err)
			require.NotNil(t, detail)
			assert.Equal(t, tt.wantType, detail.Type)
			assert.Equal(t, tt.wantCode, detail.Code)
		})
	}

	assert.Nil(t, ToErrorDetail(nil))
}

func TestToErrorDetail_PassesEntityThrough(t *testing.T) {
	entity := entities.NewErrorDetail("foreign", "ValueError: bad")
	assert.Same(t, entity, ToErrorDetail(fmt.Errorf("wrap: %w", entity)))
}

func TestErrorUnwrapping(t *testing.T) {
	baseErr := fmt.Errorf("base error")

	tests := []struct {
		name string
		err  error
	}{
		{"MarshalError", &MarshalError{Value: 1, Err: baseErr}},
		{"InitError", &InitError{Library: "test", Err: baseErr}},
		{"CallbackError", &CallbackError{Name: "test", Err: baseErr}},
		{"ConfigError", &ConfigError{Field: "test", Err: baseErr}},
		{"SchemaError", &SchemaError{Type: "test", Err: baseErr}},
		{"PanicError", &PanicError{Value: baseErr}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, baseErr), "errors.Is should find base error")
			unwrapped := errors.Unwrap(tt.err)
			assert.Equal(t, baseErr, unwrapped, "errors.Unwrap should return base error")
		})
	}
}
