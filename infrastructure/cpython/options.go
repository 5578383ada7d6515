package cpython

import (
	"log/slog"

	"github.com/reglet-dev/pybridge/domain/entities"
)

// LibraryEnv names the environment variable that overrides library search.
const LibraryEnv = "PYBRIDGE_LIBRARY"

// DefaultVersions lists the interpreter versions probed, newest first.
var DefaultVersions = []string{"3.13", "3.12", "3.11", "3.10", "3.9", "3.8"}

type config struct {
	library  string
	versions []string
	home     string
	logger   *slog.Logger
}

func defaultConfig() config {
	return config{
		versions: DefaultVersions,
		logger:   slog.Default(),
	}
}

// Option configures Open.
type Option func(*config)

// WithLibrary loads the shared library at path instead of searching.
func WithLibrary(path string) Option {
	return func(c *config) {
		c.library = path
	}
}

// WithVersions restricts the search to the given "3.X" versions, in order.
func WithVersions(versions ...string) Option {
	return func(c *config) {
		if len(versions) > 0 {
			c.versions = versions
		}
	}
}

// WithHome sets PYTHONHOME for the interpreter and searches its lib
// directory first.
func WithHome(dir string) Option {
	return func(c *config) {
		c.home = dir
	}
}

// WithLogger sets the logger used while loading.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// FromConfig translates the loader part of a bridge configuration.
func FromConfig(cfg *entities.BridgeConfig) []Option {
	opts := []Option{WithVersions(cfg.Versions...)}
	if cfg.Library != "" {
		opts = append(opts, WithLibrary(cfg.Library))
	}
	if cfg.Home != "" {
		opts = append(opts, WithHome(cfg.Home))
	}
	return opts
}
