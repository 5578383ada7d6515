// Package cpython loads libpython at run time and exposes its C API as a
// ports.ForeignRuntime.
//
// The library is opened with dlopen, so nothing links against a particular
// interpreter at build time. Loading requires cgo on Linux or macOS; other
// builds get an Open that always fails with an InitError.
//
// Example usage:
//
//	rt, err := cpython.Open(cpython.WithVersions("3.12", "3.11"))
//	if err != nil {
//		return err
//	}
//	py, err := pybridge.New(rt)
package cpython
