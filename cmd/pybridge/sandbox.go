package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/pybridge/infrastructure/wazero"
)

func newSandboxCommand(a *app) *cobra.Command {
	var (
		module   string
		code     string
		cacheDir string
	)
	cmd := &cobra.Command{
		Use:   "sandbox [file] [args...]",
		Short: "Run a script with the WebAssembly build of the interpreter",
		Long: `Run a script, or a code string given with -c, inside a WASI build of the
interpreter. The sandbox sees only the directories listed under
sandbox.mounts (read-only), the script's own directory and sandbox.env.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" && len(args) == 0 {
				return fmt.Errorf("sandbox requires a file or -c")
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if module == "" {
				module = cfg.Sandbox.Module
			}
			if module == "" {
				return fmt.Errorf("no interpreter module: set sandbox.module or --module")
			}

			opts := append(wazero.FromConfig(cfg.Sandbox),
				wazero.WithStdin(cmd.InOrStdin()),
				wazero.WithStdout(a.stdout),
				wazero.WithStderr(a.stderr),
				wazero.WithLogger(a.logger(cfg)),
			)
			if cacheDir != "" {
				opts = append(opts, wazero.WithCacheDir(cacheDir))
			}

			ctx := cmd.Context()
			runner, err := wazero.NewRunnerFromFile(ctx, module, opts...)
			if err != nil {
				return err
			}
			defer runner.Close(ctx)

			if code != "" {
				return exitStatus(a.stderr, runner.RunString(ctx, code, args...))
			}
			return exitStatus(a.stderr, runner.RunFile(ctx, args[0], args[1:]...))
		},
	}
	cmd.Flags().StringVar(&module, "module", "", "path to the WASI interpreter (overrides sandbox.module)")
	cmd.Flags().StringVarP(&code, "command", "c", "", "code to run instead of a file")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "directory for cached compiled modules")
	cmd.Flags().SetInterspersed(false)
	return cmd
}
