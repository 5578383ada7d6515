package host

import (
	"fmt"
	"os"

	"github.com/reglet-dev/pybridge/application/config"
	apptemplate "github.com/reglet-dev/pybridge/application/template"
	"github.com/reglet-dev/pybridge/application/validation"
	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
	"github.com/reglet-dev/pybridge/domain/ports"
	"github.com/reglet-dev/pybridge/infrastructure/parser"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	templateEngine  ports.TemplateEngine
	parser          ports.ConfigParser
	validator       ports.ConfigValidator
	overrides       config.Values
	strictTemplates bool // Fail on missing template keys
	validate        bool
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		parser:          parser.NewYamlConfigParser(),
		strictTemplates: true,
		validate:        true,
	}
}

// Loader orchestrates the configuration loading pipeline: render the
// template, parse YAML, validate, then apply overrides.
type Loader struct {
	config loaderConfig
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithParser sets a custom configuration parser.
func WithParser(p ports.ConfigParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithTemplateEngine sets a template engine.
func WithTemplateEngine(t ports.TemplateEngine) LoaderOption {
	return func(c *loaderConfig) {
		c.templateEngine = t
	}
}

// WithValidator sets a custom validator.
func WithValidator(v ports.ConfigValidator) LoaderOption {
	return func(c *loaderConfig) {
		c.validator = v
	}
}

// WithValidation enables/disables validation (default enabled).
func WithValidation(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.validate = enabled
	}
}

// WithOverrides applies dotted-path values, as parsed from --set, after the
// file is loaded.
func WithOverrides(values config.Values) LoaderOption {
	return func(c *loaderConfig) {
		c.overrides = values
	}
}

// WithStrictTemplates enables/disables strict template mode.
// When enabled (default), template rendering fails if a referenced key is missing.
func WithStrictTemplates(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.strictTemplates = enabled
	}
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.templateEngine == nil {
		cfg.templateEngine = apptemplate.NewGoTemplateEngine(
			apptemplate.WithStrict(cfg.strictTemplates),
		)
	}
	if cfg.validator == nil && cfg.validate {
		cfg.validator = validation.NewConfigValidator()
	}
	return &Loader{config: cfg}
}

// LoadConfig renders raw with values, parses and validates it. A nil values
// renders with the process environment.
func (l *Loader) LoadConfig(raw []byte, values map[string]any) (*entities.BridgeConfig, error) {
	if values == nil {
		values = apptemplate.Environ()
	}
	data, err := l.config.templateEngine.Render(raw, values)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}

	cfg, err := l.config.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if l.config.validate {
		res, err := l.config.validator.Validate(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("validation error: %w", err)
		}
		if err := validationFailure(res.Errors); err != nil {
			return nil, err
		}
	}

	if len(l.config.overrides) > 0 {
		if err := config.Apply(cfg, l.config.overrides); err != nil {
			return nil, err
		}
		if l.config.validate {
			if err := validationFailure(config.ValidateStruct(cfg)); err != nil {
				return nil, err
			}
		}
	}
	return cfg, nil
}

// LoadConfigFile reads path and loads it with the process environment. An
// empty path loads the defaults, overrides included.
func (l *Loader) LoadConfigFile(path string) (*entities.BridgeConfig, error) {
	if path == "" {
		return l.LoadConfig(nil, nil)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigError{Err: err}
	}
	return l.LoadConfig(raw, nil)
}

func validationFailure(errs entities.ValidationErrors) error {
	if len(errs) == 0 {
		return nil
	}
	return &errors.ConfigError{Field: errs[0].Field, Err: errs}
}
