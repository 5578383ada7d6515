package main

import (
	stdErrors "errors"
	"fmt"
	"io"

	"github.com/reglet-dev/pybridge"
	"github.com/reglet-dev/pybridge/infrastructure/wazero"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitStatus converts a script failure into an ExitError the way the
// interpreter's own main does: SystemExit carries its code, any other
// exception prints a traceback and exits 1.
func exitStatus(stderr io.Writer, err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := pybridge.AsPythonError(err); ok {
		defer pe.Release()
		if pe.Matches("SystemExit") {
			code, cerr := pe.ExitCode()
			if cerr != nil {
				code = 1
			}
			if msg := pe.ExitMessage(); msg != "" {
				fmt.Fprintln(stderr, msg)
			}
			return &ExitError{Code: code}
		}
		if tb, ferr := pe.Format(); ferr == nil {
			fmt.Fprint(stderr, tb)
		} else {
			fmt.Fprintln(stderr, pe.Error())
		}
		return &ExitError{Code: 1}
	}

	var sandboxExit *wazero.ExitError
	if stdErrors.As(err, &sandboxExit) {
		return &ExitError{Code: int(sandboxExit.Code)}
	}
	return err
}
