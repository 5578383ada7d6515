//go:build !cgo || !(linux || darwin)

package cpython

import (
	stdErrors "errors"

	"github.com/reglet-dev/pybridge/domain/errors"
	"github.com/reglet-dev/pybridge/domain/ports"
)

// Open always fails: loading libpython requires cgo on Linux or macOS.
func Open(opts ...Option) (ports.ForeignRuntime, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return nil, &errors.InitError{
		Err:   stdErrors.New("loading libpython requires cgo on linux or darwin"),
		Tried: candidates(cfg, "linux"),
	}
}
