package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pybridge/application/validation"
	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
)

func TestConfigValidator_Validate(t *testing.T) {
	validator := validation.NewConfigValidator()

	t.Run("Valid Config", func(t *testing.T) {
		raw := []byte("library: /usr/lib/libpython3.12.so\nlog_level: debug\nsandbox:\n  mounts:\n    - host: /data\n      guest: /data\n")
		cfg := entities.NewBridgeConfig(entities.WithLibrary("/usr/lib/libpython3.12.so"), entities.WithLogLevel("debug"))

		result, err := validator.Validate(raw, &cfg)
		require.NoError(t, err)
		assert.True(t, result.Valid, "%v", result.Errors)
		assert.Empty(t, result.Errors)
	})

	t.Run("Empty Document", func(t *testing.T) {
		result, err := validator.Validate(nil, nil)
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("Schema Violations", func(t *testing.T) {
		raw := []byte("log_level: loud\ninterpreter: cpython\nsandbox:\n  mounts:\n    - host: /data\n")

		result, err := validator.Validate(raw, nil)
		require.NoError(t, err)
		assert.False(t, result.Valid)
		require.NotEmpty(t, result.Errors)

		fields := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			fields = append(fields, e.Field)
		}
		assert.Contains(t, fields, "log_level")
		assert.Contains(t, fields, "sandbox.mounts.0")
	})

	t.Run("Struct Tags", func(t *testing.T) {
		cfg := entities.NewBridgeConfig()
		cfg.Versions = []string{"2.7"}

		result, err := validator.Validate([]byte("versions: ['2.7']\n"), &cfg)
		require.NoError(t, err)
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "Versions[0]", result.Errors[0].Field)
	})

	t.Run("Unreadable YAML", func(t *testing.T) {
		_, err := validator.Validate([]byte("log_level: [unclosed"), nil)
		var ce *errors.ConfigError
		assert.ErrorAs(t, err, &ce)
	})
}
