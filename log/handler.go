// Package log provides a slog.Handler that forwards records to a logger of
// the foreign runtime's logging module.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/reglet-dev/pybridge"
)

// Handler implements slog.Handler by calling logging.Logger.log on a foreign
// logger. Attributes travel in the record's extra mapping.
type Handler struct {
	logger *pybridge.Object
	opts   handlerConfig
	attrs  []slog.Attr
	group  string
}

// HandlerOption configures the Handler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Level
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level are dropped before reaching the foreign logger,
// which still applies its own level afterwards.
func WithLevel(level slog.Level) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file:line) as the
// "source" extra.
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// NewHandler creates a Handler writing to logger. The handler borrows the
// proxy; the caller keeps ownership.
func NewHandler(logger *pybridge.Object, opts ...HandlerOption) *Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Handler{logger: logger, opts: cfg}
}

// NewNamedHandler creates a Handler for logging.getLogger(name). Close
// releases the logger.
func NewNamedHandler(py *pybridge.Python, name string, opts ...HandlerOption) (*Handler, error) {
	logging, err := py.Import("logging")
	if err != nil {
		return nil, err
	}
	defer logging.Release()
	logger, err := logging.CallMethod("getLogger", name)
	if err != nil {
		return nil, fmt.Errorf("getting logger %q: %w", name, err)
	}
	return NewHandler(logger, opts...), nil
}

// Logger returns the foreign logger the handler writes to.
func (h *Handler) Logger() *pybridge.Object {
	return h.logger
}

// Close releases the foreign logger.
func (h *Handler) Close() {
	h.logger.Release()
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level
}

// Handle forwards record to the foreign logger.
func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	extra := pybridge.NewDict()
	for _, attr := range h.attrs {
		addExtra(extra, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		addExtra(extra, h.group, attr)
		return true
	})
	if h.opts.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := frames.Next()
		addExtra(extra, "", slog.String("source", fmt.Sprintf("%s:%d", f.File, f.Line)))
	}

	res, err := h.logger.CallMethod("log", ForeignLevel(record.Level), record.Message, pybridge.KW("extra", extra))
	if err != nil {
		return err
	}
	res.Release()
	return nil
}

// WithAttrs returns a new Handler that includes the given attributes.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, qualify(h.group, a))
	}
	return &next
}

// WithGroup returns a new Handler that qualifies later attribute keys with
// name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = qualifyKey(h.group, name)
	return &next
}

// ForeignLevel maps a slog level to the logging module's numeric levels:
// Debug 10, Info 20, Warn 30, Error 40, with intermediate levels scaled.
func ForeignLevel(level slog.Level) int {
	return 20 + int(level)*10/4
}

// reserved are LogRecord attributes that extra must not overwrite.
var reserved = map[string]bool{
	"args": true, "asctime": true, "created": true, "exc_info": true,
	"exc_text": true, "filename": true, "funcName": true, "levelname": true,
	"levelno": true, "lineno": true, "message": true, "module": true,
	"msecs": true, "msg": true, "name": true, "pathname": true,
	"process": true, "processName": true, "relativeCreated": true,
	"stack_info": true, "taskName": true, "thread": true, "threadName": true,
}

func addExtra(extra *pybridge.Dict, group string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	if attr.Value.Kind() == slog.KindGroup {
		prefix := qualifyKey(group, attr.Key)
		for _, a := range attr.Value.Group() {
			addExtra(extra, prefix, a)
		}
		return
	}
	key := qualifyKey(group, attr.Key)
	if reserved[key] {
		key = "attr_" + key
	}
	extra.Set(key, extraText(attr.Value))
}

func qualify(group string, attr slog.Attr) slog.Attr {
	attr.Key = qualifyKey(group, attr.Key)
	return attr
}

func qualifyKey(group, key string) string {
	if group == "" {
		return key
	}
	if key == "" {
		return group
	}
	return strings.Join([]string{group, key}, ".")
}
