// Package registry collects host functions grouped into modules that
// foreign scripts can import.
package registry

import (
	"fmt"
	"regexp"
	"slices"
	"sync"

	"github.com/reglet-dev/pybridge"
)

// registryConfig holds configuration for the Registry.
type registryConfig struct {
	strictMode bool // Fail on duplicate registrations
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{
		strictMode: true,
	}
}

// RegistryOption configures a Registry instance.
type RegistryOption func(*registryConfig)

// WithStrictMode enables/disables strict mode for duplicate registrations.
// Default is true (fail on duplicates). When disabled, registering a module
// again merges its functions, replacing those with the same name.
func WithStrictMode(enabled bool) RegistryOption {
	return func(c *registryConfig) {
		c.strictMode = enabled
	}
}

var (
	identPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	modulePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
)

// Registry maps module names to the host functions they expose.
type Registry struct {
	config  registryConfig
	mu      sync.Mutex
	modules map[string]map[string]any
}

// NewRegistry creates a new Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{config: cfg, modules: make(map[string]map[string]any)}
}

// Register adds funcs as the attributes of module. Each value must be a Go
// func accepted by pybridge.Python.Callback; that is checked at Install.
func (r *Registry) Register(module string, funcs map[string]any) error {
	if !modulePattern.MatchString(module) {
		return fmt.Errorf("invalid module name %q", module)
	}
	for name := range funcs {
		if !identPattern.MatchString(name) {
			return fmt.Errorf("invalid function name %q in module %q", name, module)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	existing, exists := r.modules[module]
	if exists && r.config.strictMode {
		return fmt.Errorf("module %q already registered", module)
	}
	if existing == nil {
		existing = make(map[string]any, len(funcs))
		r.modules[module] = existing
	}
	for name, fn := range funcs {
		existing[name] = fn
	}
	return nil
}

// Functions returns the sorted function names of module.
func (r *Registry) Functions(module string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	funcs, ok := r.modules[module]
	if !ok {
		return nil, false
	}
	return sortedKeys(funcs), true
}

// List returns all registered module names, sorted.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.modules)
}

// Install builds every registered module in py and places it in
// sys.modules. The returned callbacks back the installed functions; destroy
// them to retire the modules' functions.
func (r *Registry) Install(py *pybridge.Python) ([]*pybridge.Callback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sys, err := py.Import("sys")
	if err != nil {
		return nil, err
	}
	defer sys.Release()
	modules, err := sys.GetAttr("modules")
	if err != nil {
		return nil, err
	}
	defer modules.Release()
	types, err := py.Import("types")
	if err != nil {
		return nil, err
	}
	defer types.Release()

	var installed []*pybridge.Callback
	fail := func(err error) ([]*pybridge.Callback, error) {
		for _, cb := range installed {
			cb.Destroy()
		}
		return nil, err
	}

	for _, module := range sortedKeys(r.modules) {
		ns, err := types.CallMethod("SimpleNamespace")
		if err != nil {
			return fail(err)
		}
		funcs := r.modules[module]
		for _, name := range sortedKeys(funcs) {
			cb, err := py.Callback(funcs[name], pybridge.WithName(name))
			if err != nil {
				ns.Release()
				return fail(fmt.Errorf("module %q function %q: %w", module, name, err))
			}
			installed = append(installed, cb)
			if err := ns.SetAttr(name, cb); err != nil {
				ns.Release()
				return fail(err)
			}
		}
		if err := ns.SetAttr("__name__", module); err != nil {
			ns.Release()
			return fail(err)
		}
		err = modules.SetItem(module, ns)
		ns.Release()
		if err != nil {
			return fail(err)
		}
	}
	return installed, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
