package entities

// BridgeConfig represents the settings used to locate, start and drive the
// foreign runtime. It is read from YAML by the host Loader.
type BridgeConfig struct {
	// Library is an explicit path to the foreign shared library.
	// When empty, the loader searches the platform defaults for Versions.
	Library string `yaml:"library" json:"library,omitempty" jsonschema:"description=Path to the libpython shared library"`

	// Versions lists the major.minor versions tried, in order, when Library is empty.
	Versions []string `yaml:"versions" json:"versions,omitempty" validate:"dive,startswith=3." jsonschema:"description=Python versions to search for"`

	// Home overrides the interpreter prefix (PYTHONHOME).
	Home string `yaml:"home" json:"home,omitempty"`

	// Path entries are prepended to sys.path after initialization.
	Path []string `yaml:"path" json:"path,omitempty"`

	// Argv becomes sys.argv after initialization.
	Argv []string `yaml:"argv" json:"argv,omitempty"`

	// LogLevel is the logging verbosity level ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level" json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`

	// Sandbox configures the WebAssembly runner.
	Sandbox SandboxConfig `yaml:"sandbox" json:"sandbox,omitempty"`
}

// SandboxConfig configures the WASI interpreter used by the sandbox runner.
type SandboxConfig struct {
	// Env is exposed to the sandboxed interpreter as its environment.
	Env map[string]string `yaml:"env" json:"env,omitempty"`

	// Module is the path to a WASI build of the interpreter (python.wasm).
	Module string `yaml:"module" json:"module,omitempty"`

	// Mounts maps guest paths to host directories, mounted read-only.
	Mounts []MountConfig `yaml:"mounts" json:"mounts,omitempty" validate:"dive"`
}

// MountConfig is one read-only directory mount inside the sandbox.
type MountConfig struct {
	Host  string `yaml:"host" json:"host" validate:"required"`
	Guest string `yaml:"guest" json:"guest" validate:"required,startswith=/"`
}

// DefaultBridgeConfig returns the configuration used when no file is given.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		Versions: []string{"3.13", "3.12", "3.11", "3.10", "3.9", "3.8"},
		LogLevel: "info",
	}
}

// BridgeConfigOption is a functional option for adjusting a BridgeConfig.
type BridgeConfigOption func(*BridgeConfig)

// WithLibrary pins the shared library path.
func WithLibrary(path string) BridgeConfigOption {
	return func(c *BridgeConfig) {
		c.Library = path
	}
}

// WithLogLevel sets the logging verbosity level.
func WithLogLevel(level string) BridgeConfigOption {
	return func(c *BridgeConfig) {
		c.LogLevel = level
	}
}

// WithArgv sets sys.argv.
func WithArgv(argv ...string) BridgeConfigOption {
	return func(c *BridgeConfig) {
		c.Argv = argv
	}
}

// WithPath prepends entries to sys.path.
func WithPath(entries ...string) BridgeConfigOption {
	return func(c *BridgeConfig) {
		c.Path = append(c.Path, entries...)
	}
}

// NewBridgeConfig creates a BridgeConfig from the defaults and the given options.
func NewBridgeConfig(opts ...BridgeConfigOption) BridgeConfig {
	cfg := DefaultBridgeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
