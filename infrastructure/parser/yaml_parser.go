// Package parser decodes bridge configuration files.
package parser

import (
	"bytes"
	stdErrors "errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
	"github.com/reglet-dev/pybridge/domain/ports"
)

// YamlConfigParser implements ports.ConfigParser for YAML.
type YamlConfigParser struct {
	strict bool
}

// ParserOption configures a YamlConfigParser.
type ParserOption func(*YamlConfigParser)

// WithStrict rejects keys that do not map to a configuration field.
// Strict mode is on by default.
func WithStrict(enabled bool) ParserOption {
	return func(p *YamlConfigParser) {
		p.strict = enabled
	}
}

// NewYamlConfigParser creates a new YamlConfigParser.
func NewYamlConfigParser(opts ...ParserOption) ports.ConfigParser {
	p := &YamlConfigParser{strict: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse unmarshals YAML bytes over entities.DefaultBridgeConfig, so keys
// absent from data keep their defaults. An empty document yields the
// defaults.
func (p *YamlConfigParser) Parse(data []byte) (*entities.BridgeConfig, error) {
	cfg := entities.DefaultBridgeConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(p.strict)
	if err := dec.Decode(&cfg); err != nil && !stdErrors.Is(err, io.EOF) {
		return nil, &errors.ConfigError{Err: err}
	}
	return &cfg, nil
}
