// Package host runs foreign scripts through the bridge.
//
// Loader turns a configuration file into an entities.BridgeConfig: the file
// is rendered as a template over the environment, parsed as YAML, checked
// against the configuration schema and overlaid with --set overrides.
// Executor loads libpython for that configuration, binds a pybridge.Python,
// prepares sys.path and sys.argv, installs host modules from a
// registry.Registry and runs files, strings or modules as __main__.
package host
