// Package config applies overrides to a bridge configuration and checks its
// struct validation tags.
package config

import (
	"bytes"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
)

// validate is a package-level singleton; building a validator caches struct
// metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Values are configuration overrides keyed by field name as written in the
// configuration file. Dotted keys reach nested fields ("sandbox.module").
type Values = map[string]any

// ParseAssignments parses KEY=VALUE strings, as given to --set. Values are
// read as YAML scalars or flow collections, so "3" is a number and
// "[a, b]" a list.
func ParseAssignments(pairs []string) (Values, error) {
	values := make(Values, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, &errors.ConfigError{Err: fmt.Errorf("override %q is not KEY=VALUE", pair)}
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, &errors.ConfigError{Field: key, Err: err}
		}
		values[key] = v
	}
	return values, nil
}

// Apply overlays values onto cfg. Unknown fields and values of the wrong
// type are a *errors.ConfigError; cfg is left untouched on error.
func Apply(cfg *entities.BridgeConfig, values Values) error {
	if len(values) == 0 {
		return nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for key, v := range values {
		if err := setPath(tree, strings.Split(key, "."), v); err != nil {
			return &errors.ConfigError{Field: key, Err: err}
		}
	}

	if data, err = json.Marshal(tree); err != nil {
		return &errors.ConfigError{Err: err}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var next entities.BridgeConfig
	if err := dec.Decode(&next); err != nil {
		return &errors.ConfigError{Err: err}
	}
	*cfg = next
	return nil
}

func setPath(tree map[string]any, path []string, v any) error {
	for _, part := range path[:len(path)-1] {
		child, ok := tree[part]
		if !ok || child == nil {
			next := map[string]any{}
			tree[part] = next
			tree = next
			continue
		}
		m, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("%s is not a mapping", part)
		}
		tree = m
	}
	tree[path[len(path)-1]] = v
	return nil
}

// ValidateStruct checks cfg against its validate tags. It returns nil when
// cfg is valid.
func ValidateStruct(cfg *entities.BridgeConfig) entities.ValidationErrors {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stdErrors.As(err, &fieldErrs) {
		return entities.ValidationErrors{{Message: err.Error()}}
	}
	out := make(entities.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		msg := fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed on the '%s=%s' rule", fe.Tag(), fe.Param())
		}
		out = append(out, entities.ValidationError{Field: field, Message: msg})
	}
	return out
}
