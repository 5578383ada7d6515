package main

import (
	"github.com/spf13/cobra"
)

// newRootCommand creates the pybridge command tree.
func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "pybridge",
		Short: "Run Python code through an embedded interpreter",
		Long: `pybridge loads libpython into the process and runs scripts, modules and
expressions through it. The sandbox command runs a WebAssembly build of the
interpreter instead, isolated from the host.

Examples:
  pybridge run script.py --flag     Run a script with arguments
  pybridge exec -c "print(1 + 1)"   Run a code string
  pybridge module http.server 8000  Run a module as __main__
  pybridge eval "[1, 2] * 2" --json Print an expression as JSON
  pybridge config check bridge.yaml Validate a configuration file`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "configuration file (YAML, rendered as a template over the environment)")
	root.PersistentFlags().StringVar(&a.library, "library", "", "path to the libpython shared library")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().StringArrayVar(&a.overrides, "set", nil, "override a configuration value (KEY=VALUE, dotted keys)")

	root.AddCommand(newRunCommand(a))
	root.AddCommand(newExecCommand(a))
	root.AddCommand(newModuleCommand(a))
	root.AddCommand(newEvalCommand(a))
	root.AddCommand(newConfigCommand(a))
	root.AddCommand(newSandboxCommand(a))
	return root
}
