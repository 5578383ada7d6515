// Package schema generates the JSON schema of the bridge configuration.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/reglet-dev/pybridge/domain/entities"
)

// GenerateSchema creates a JSON schema (Draft 2020-12) from a Go struct.
// Nested structs are emitted under $defs.
func GenerateSchema(v any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	return marshal(reflector.Reflect(v))
}

// ConfigSchema returns the self-contained schema of entities.BridgeConfig:
// every definition is inlined and no $id is set, so the document can be
// compiled without a resolver.
func ConfigSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
		Anonymous:      true,
	}
	return marshal(reflector.Reflect(&entities.BridgeConfig{}))
}

func marshal(s *jsonschema.Schema) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
