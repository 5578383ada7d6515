// Command pybridge runs Python scripts, modules and expressions through the
// bridge, or inside the WebAssembly sandbox.
package main

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand(newApp(os.Stdout, os.Stderr)).ExecuteContext(ctx)
	stop()
	os.Exit(reportExit(os.Stderr, err))
}

// reportExit prints err unless it only carries an exit status, and returns
// the process exit code.
func reportExit(stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if stdErrors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintln(stderr, "pybridge:", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintln(stderr, "pybridge:", err)
	return 1
}
