// Package template renders configuration files before they are parsed.
package template

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/reglet-dev/pybridge/domain/ports"
)

// templateConfig holds configuration for the GoTemplateEngine.
type templateConfig struct {
	name   string
	strict bool // Fail on missing keys
}

func defaultTemplateConfig() templateConfig {
	return templateConfig{
		name:   "config",
		strict: true,
	}
}

// TemplateOption configures a GoTemplateEngine.
type TemplateOption func(*templateConfig)

// WithStrict enables/disables strict mode for missing keys.
// When enabled (default), template rendering fails if a referenced key is missing.
func WithStrict(enabled bool) TemplateOption {
	return func(c *templateConfig) {
		c.strict = enabled
	}
}

// WithName sets the template name reported in parse and execution errors,
// usually the configuration file path.
func WithName(name string) TemplateOption {
	return func(c *templateConfig) {
		c.name = name
	}
}

// GoTemplateEngine implements TemplateEngine using standard text/template.
// Values are exposed as {{.env.KEY}}; the env and default functions help
// with optional keys.
type GoTemplateEngine struct {
	config templateConfig
}

// NewGoTemplateEngine creates a new GoTemplateEngine.
func NewGoTemplateEngine(opts ...TemplateOption) ports.TemplateEngine {
	cfg := defaultTemplateConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GoTemplateEngine{config: cfg}
}

// Render processes the raw configuration bytes with the provided values.
func (e *GoTemplateEngine) Render(raw []byte, values map[string]any) ([]byte, error) {
	tmpl := template.New(e.config.name).Funcs(template.FuncMap{
		"env": func(key string) string {
			if v, ok := values[key]; ok {
				return fmt.Sprint(v)
			}
			return ""
		},
		"default": func(fallback, v any) any {
			if s, ok := v.(string); (ok && s == "") || v == nil {
				return fallback
			}
			return v
		},
	})

	if e.config.strict {
		tmpl = tmpl.Option("missingkey=error")
	}

	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config template: %w", err)
	}

	var buf bytes.Buffer
	data := map[string]any{
		"env": values,
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute config template: %w", err)
	}

	return buf.Bytes(), nil
}

// Environ returns the process environment as template values.
func Environ() map[string]any {
	env := os.Environ()
	values := make(map[string]any, len(env))
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			values[k] = v
		}
	}
	return values
}
