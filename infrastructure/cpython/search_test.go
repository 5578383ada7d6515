package cpython

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reglet-dev/pybridge/domain/entities"
)

func TestCandidates(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		goos string
		want []string
	}{
		{
			name: "linux versions",
			opts: []Option{WithVersions("3.12", "3.11")},
			goos: "linux",
			want: []string{
				"libpython3.12.so.1.0", "libpython3.12.so",
				"libpython3.11.so.1.0", "libpython3.11.so",
			},
		},
		{
			name: "darwin",
			opts: []Option{WithVersions("3.12")},
			goos: "darwin",
			want: []string{
				"/Library/Frameworks/Python.framework/Versions/3.12/Python",
				"/opt/homebrew/opt/python@3.12/Frameworks/Python.framework/Versions/3.12/Python",
				"/usr/local/opt/python@3.12/Frameworks/Python.framework/Versions/3.12/Python",
				"libpython3.12.dylib",
			},
		},
		{
			name: "home first",
			opts: []Option{WithVersions("3.11"), WithHome("/opt/py")},
			goos: "linux",
			want: []string{
				"/opt/py/lib/libpython3.11.so.1.0", "/opt/py/lib/libpython3.11.so",
				"libpython3.11.so.1.0", "libpython3.11.so",
			},
		},
		{
			name: "explicit library",
			opts: []Option{WithLibrary("/tmp/libpython.so"), WithHome("/opt/py")},
			goos: "linux",
			want: []string{"/tmp/libpython.so"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			for _, opt := range tt.opts {
				opt(&cfg)
			}
			assert.Equal(t, tt.want, candidates(cfg, tt.goos))
		})
	}
}

func TestCandidates_EnvOverride(t *testing.T) {
	t.Setenv(LibraryEnv, "/env/libpython.so")

	cfg := defaultConfig()
	WithLibrary("/explicit.so")(&cfg)
	assert.Equal(t, []string{"/env/libpython.so"}, candidates(cfg, "linux"))
}

func TestCandidates_DefaultVersions(t *testing.T) {
	got := candidates(defaultConfig(), "linux")
	assert.Len(t, got, 2*len(DefaultVersions))
	assert.Equal(t, "libpython3.13.so.1.0", got[0])
}

func TestFromConfig(t *testing.T) {
	cfg := entities.DefaultBridgeConfig()
	cfg.Library = "/lib/libpython3.12.so"
	cfg.Home = "/py"

	c := defaultConfig()
	for _, opt := range FromConfig(&cfg) {
		opt(&c)
	}
	assert.Equal(t, "/lib/libpython3.12.so", c.library)
	assert.Equal(t, "/py", c.home)
	assert.Equal(t, DefaultVersions, c.versions)
}
