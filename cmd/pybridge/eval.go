package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/pybridge/wireformat"
)

func newEvalCommand(a *app) *cobra.Command {
	var asJSON, pretty bool
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression and print the result",
		Long: `Evaluate an expression in __main__ and print its repr.

With --json the result is printed as a JSON envelope holding the value,
its type and repr, or the error the evaluation raised.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.executor(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close(cmd.Context())

			obj, err := e.Eval(cmd.Context(), args[0])
			if !asJSON {
				if err != nil {
					return exitStatus(a.stderr, err)
				}
				defer obj.Release()
				repr, err := obj.Repr()
				if err != nil {
					return exitStatus(a.stderr, err)
				}
				fmt.Fprintln(a.stdout, repr)
				return nil
			}

			var res wireformat.ResultWire
			if err != nil {
				res = wireformat.ErrorResult(err)
			} else {
				res = wireformat.Result(obj)
				obj.Release()
			}
			return printEnvelope(a, res, pretty)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON envelope")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}

func printEnvelope(a *app, res wireformat.ResultWire, pretty bool) error {
	data, err := wireformat.Marshal(res, pretty)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, string(data))
	if res.Error != nil {
		return &ExitError{Code: 1}
	}
	return nil
}
