package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/pybridge/host"
)

// withExecutor starts an executor, runs fn and maps its failure to an exit
// status.
func (a *app) withExecutor(ctx context.Context, fn func(*host.Executor) error) error {
	e, err := a.executor(ctx)
	if err != nil {
		return err
	}
	defer e.Close(ctx)
	return exitStatus(a.stderr, fn(e))
}

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file> [args...]",
		Short: "Run a script as __main__",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withExecutor(cmd.Context(), func(e *host.Executor) error {
				return e.RunFile(cmd.Context(), args[0], args[1:]...)
			})
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newExecCommand(a *app) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "exec -c <code> [args...]",
		Short: "Run a code string as __main__",
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" {
				return fmt.Errorf("exec requires -c")
			}
			return a.withExecutor(cmd.Context(), func(e *host.Executor) error {
				return e.RunString(cmd.Context(), code, args...)
			})
		},
	}
	cmd.Flags().StringVarP(&code, "command", "c", "", "code to run")
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newModuleCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module <name> [args...]",
		Short: "Run a module as __main__, like python -m",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withExecutor(cmd.Context(), func(e *host.Executor) error {
				return e.RunModule(cmd.Context(), args[0], args[1:]...)
			})
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}
