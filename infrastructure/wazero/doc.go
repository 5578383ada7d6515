// Package wazero runs a WebAssembly (WASI) build of the interpreter inside
// the wazero runtime.
//
// The sandbox is an alternative to loading libpython in-process: scripts run
// with no access to the host beyond the read-only directories and the
// environment given to the Runner. No objects cross the boundary; the
// interpreter's output and exit status are all that come back.
//
// # Basic Usage
//
//	runner, err := wazero.NewRunnerFromFile(ctx, "python.wasm",
//	    wazero.WithMount("./lib", "/lib"),
//	    wazero.WithStdout(os.Stdout),
//	)
//	if err != nil {
//	    return err
//	}
//	defer runner.Close(ctx)
//
//	err = runner.RunString(ctx, "print('hello')")
//
// A non-zero exit status is reported as an *ExitError.
package wazero
