package ports

import "github.com/reglet-dev/pybridge/domain/entities"

// ConfigValidator validates a bridge configuration.
type ConfigValidator interface {
	// Validate checks the raw document against the configuration schema and
	// the decoded struct against its validation tags.
	Validate(raw []byte, cfg *entities.BridgeConfig) (*entities.ValidationResult, error)
}
