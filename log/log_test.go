package log

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pybridge/internal/pyfake"
	"github.com/reglet-dev/pybridge/internal/testutil"
)

func TestExtraText(t *testing.T) {
	tests := []struct {
		name  string
		value slog.Value
		want  string
	}{
		{"string", slog.StringValue("value"), "value"},
		{"int64", slog.Int64Value(-123), "-123"},
		{"uint64", slog.Uint64Value(7), "7"},
		{"bool", slog.BoolValue(true), "true"},
		{"float64", slog.Float64Value(1.23), "1.23"},
		{"time", slog.TimeValue(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), "2024-01-01T00:00:00Z"},
		{"duration", slog.DurationValue(time.Hour), "1h0m0s"},
		{"error", slog.AnyValue(errors.New("test error")), "test error"},
		{"nil", slog.AnyValue(nil), "None"},
		{"bytes", slog.AnyValue([]byte("raw")), "raw"},
		{"json", slog.AnyValue(struct {
			Field string `json:"field"`
		}{"data"}), `{"field":"data"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extraText(tt.value.Resolve()))
		})
	}
}

func TestExtraText_LogValuer(t *testing.T) {
	v := slog.AnyValue(logValuer{val: "resolved"}).Resolve()
	assert.Equal(t, "resolved", extraText(v))

	// json.Marshal rejects channels; the fallback prints the pointer.
	assert.Contains(t, extraText(slog.AnyValue(make(chan int))), "0x")
}

type logValuer struct {
	val string
}

func (l logValuer) LogValue() slog.Value {
	return slog.StringValue(l.val)
}

func TestForeignLevel(t *testing.T) {
	assert.Equal(t, 10, ForeignLevel(slog.LevelDebug))
	assert.Equal(t, 20, ForeignLevel(slog.LevelInfo))
	assert.Equal(t, 30, ForeignLevel(slog.LevelWarn))
	assert.Equal(t, 40, ForeignLevel(slog.LevelError))
	assert.Equal(t, 35, ForeignLevel(slog.LevelWarn+2))
}

func newHandler(t *testing.T, opts ...HandlerOption) (*Handler, *pyfake.Runtime) {
	t.Helper()
	py, rt := testutil.NewBridge(t)

	h, err := NewNamedHandler(py, "app", opts...)
	require.NoError(t, err)
	t.Cleanup(h.Close)

	res, err := h.Logger().CallMethod("setLevel", 10)
	require.NoError(t, err)
	res.Release()
	return h, rt
}

func TestNewHandler_Defaults(t *testing.T) {
	h, _ := newHandler(t)
	assert.True(t, h.Enabled(context.TODO(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.TODO(), slog.LevelDebug))
}

func TestHandler_ForwardsRecords(t *testing.T) {
	h, rt := newHandler(t, WithLevel(slog.LevelDebug))

	logger := slog.New(h).With("service", "billing").WithGroup("req")
	logger.Debug("starting", "id", 7)
	logger.Error("failed", slog.Group("db", "table", "users"), "err", errors.New("timeout"))

	records := rt.Records()
	require.Len(t, records, 2)

	assert.Equal(t, "app", records[0].Logger)
	assert.Equal(t, "starting", records[0].Message)
	assert.Equal(t, pyfake.LevelDebug, records[0].Level)
	assert.Equal(t, map[string]string{"service": "billing", "req.id": "7"}, records[0].Extra)

	assert.Equal(t, pyfake.LevelError, records[1].Level)
	assert.Equal(t, map[string]string{
		"service":      "billing",
		"req.db.table": "users",
		"req.err":      "timeout",
	}, records[1].Extra)
}

func TestHandler_FiltersBelowLevel(t *testing.T) {
	h, rt := newHandler(t, WithLevel(slog.LevelWarn))

	logger := slog.New(h)
	logger.Info("dropped")
	logger.Warn("kept")

	records := rt.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Message)
}

func TestHandler_ReservedKeysAndSource(t *testing.T) {
	h, rt := newHandler(t, WithSource(true))

	slog.New(h).Info("hello", "name", "x", "message", "y")

	records := rt.Records()
	require.Len(t, records, 1)
	extra := records[0].Extra
	assert.Equal(t, "x", extra["attr_name"])
	assert.Equal(t, "y", extra["attr_message"])
	assert.Contains(t, extra["source"], "log_test.go:")
}
