package wazero

import (
	"context"
)

// contextKey is a private type for context keys.
type contextKey struct {
	name string
}

var scriptNameKey = &contextKey{name: "script_name"}

// WithScriptName labels a run for logging. RunFile sets it to the script's
// base name.
func WithScriptName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, scriptNameKey, name)
}

// ScriptNameFromContext retrieves the label set by WithScriptName.
func ScriptNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(scriptNameKey).(string)
	return name, ok
}
