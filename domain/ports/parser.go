package ports

import "github.com/reglet-dev/pybridge/domain/entities"

// ConfigParser parses raw configuration bytes into a BridgeConfig.
type ConfigParser interface {
	// Parse unmarshals bytes into a BridgeConfig, starting from defaults.
	Parse(data []byte) (*entities.BridgeConfig, error)
}
