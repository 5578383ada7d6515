// Package validation checks bridge configuration documents against the
// generated JSON schema and the struct validation tags.
package validation

import (
	"bytes"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/pybridge/application/config"
	"github.com/reglet-dev/pybridge/application/schema"
	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
	"github.com/reglet-dev/pybridge/domain/ports"
)

const schemaURL = "pybridge-config.json"

// ConfigValidator implements ports.ConfigValidator.
type ConfigValidator struct {
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

// NewConfigValidator creates a new validator. The schema is compiled on
// first use.
func NewConfigValidator() ports.ConfigValidator {
	return &ConfigValidator{}
}

func (v *ConfigValidator) compile() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		doc, err := schema.ConfigSchema()
		if err != nil {
			v.err = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(doc)); err != nil {
			v.err = &errors.SchemaError{Type: "BridgeConfig", Err: err}
			return
		}
		if v.schema, err = compiler.Compile(schemaURL); err != nil {
			v.err = &errors.SchemaError{Type: "BridgeConfig", Err: err}
		}
	})
	return v.schema, v.err
}

// Validate checks raw (YAML) against the configuration schema, then cfg
// against its validate tags. Problems are reported in the result; the error
// is reserved for a schema that cannot be built or a document that cannot
// be read.
func (v *ConfigValidator) Validate(raw []byte, cfg *entities.BridgeConfig) (*entities.ValidationResult, error) {
	result := &entities.ValidationResult{Valid: true}

	sch, err := v.compile()
	if err != nil {
		return nil, err
	}

	doc, err := jsonDocument(raw)
	if err != nil {
		return nil, &errors.ConfigError{Err: err}
	}

	if err := sch.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if stdErrors.As(err, &ve) {
			for _, unit := range ve.BasicOutput().Errors {
				if unit.Error == "" || strings.HasPrefix(unit.Error, "doesn't validate with") {
					continue
				}
				result.Errors = append(result.Errors, entities.ValidationError{
					Field:   fieldName(unit.InstanceLocation),
					Message: unit.Error,
				})
			}
		}
		if len(result.Errors) == 0 {
			result.Errors = append(result.Errors, entities.ValidationError{Message: err.Error()})
		}
	}

	if cfg != nil {
		result.Errors = append(result.Errors, config.ValidateStruct(cfg)...)
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

// jsonDocument decodes YAML into the shapes encoding/json produces, which
// is what the schema validator accepts.
func jsonDocument(raw []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("config is not representable as JSON: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// fieldName turns a JSON pointer into a dotted field path.
func fieldName(pointer string) string {
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	return strings.Join(parts, ".")
}
