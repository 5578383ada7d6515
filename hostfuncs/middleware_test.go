package hostfuncs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/reglet-dev/pybridge/domain/entities"
	domainerrors "github.com/reglet-dev/pybridge/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicRecoveryMiddleware(t *testing.T) {
	panicHandler := func(ctx context.Context, inv Invocation) (entities.Ptr, error) {
		panic("test panic")
	}

	wrapped := PanicRecoveryMiddleware()(panicHandler)

	// Should not panic, should return a structured error
	ret, err := wrapped(context.Background(), Invocation{})
	require.Error(t, err)
	assert.Zero(t, ret)

	var panicErr *domainerrors.PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "test panic", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
	assert.Equal(t, DefaultException, ExceptionName(err))
}

func TestPanicRecoveryMiddleware_NoPanic(t *testing.T) {
	wrapped := PanicRecoveryMiddleware()(constHandler(7))

	ret, err := wrapped(context.Background(), Invocation{})
	require.NoError(t, err)
	assert.Equal(t, entities.Ptr(7), ret)
}

func TestMiddlewareOrder_FIFO(t *testing.T) {
	var callOrder []string

	trace := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, inv Invocation) (entities.Ptr, error) {
				callOrder = append(callOrder, name+"-before")
				ret, err := next(ctx, inv)
				callOrder = append(callOrder, name+"-after")
				return ret, err
			}
		}
	}

	table := NewTable(WithMiddleware(trace("mw1"), trace("mw2")), WithMiddleware(trace("mw3")))
	id := table.Add("test", func(ctx context.Context, inv Invocation) (entities.Ptr, error) {
		callOrder = append(callOrder, "handler")
		return 0, nil
	})

	_, err := table.Invoke(context.Background(), id, Invocation{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"mw1-before", "mw2-before", "mw3-before",
		"handler",
		"mw3-after", "mw2-after", "mw1-after",
	}, callOrder)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	table := NewTable(WithMiddleware(LoggingMiddleware(logger)))
	ok := table.Add("adder", constHandler(1))
	bad := table.Add("broken", func(ctx context.Context, inv Invocation) (entities.Ptr, error) {
		return 0, errors.New("boom")
	})

	_, err := table.Invoke(context.Background(), ok, Invocation{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "callback=adder")
	assert.Contains(t, buf.String(), "callback completed")

	_, err = table.Invoke(context.Background(), bad, Invocation{})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "callback=broken")
	assert.Contains(t, buf.String(), "error=boom")
}

func TestExceptionName(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("x"), "RuntimeError"},
		{"raised", Raise("ValueError", "bad value"), "ValueError"},
		{"wrapped", &domainerrors.CallbackError{Name: "cb", Err: Raise("KeyError", "k")}, "KeyError"},
		{"empty name", Raise("", "anon"), "RuntimeError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExceptionName(tt.err))
		})
	}
}
