// Package pybridge lets Go code drive objects that live inside a separately
// loaded CPython interpreter as if they were local values.
//
// A *Python bridge is bound to one ports.ForeignRuntime (see
// infrastructure/cpython for the libpython implementation). Every foreign
// value reaches Go as an *Object proxy that owns one reference to it:
//
//	py, err := pybridge.New(rt)
//	np, err := py.Import("numpy")
//	arr, err := np.CallMethod("arange", 9)
//	grid, err := arr.CallMethod("reshape", 3, 3)
//	corner, err := grid.Get("1:, ::2") // grid[1:, ::2]
//	defer corner.Release()
//
// Keys passed to Get, Set, Delete and Has are dispatched dynamically: a
// subscript-shaped string ("1:3", "::2", "-1", "...") indexes with the parsed
// slice, integers index directly, and any other string is tried as an
// attribute first and as an item when the attribute lookup raises
// AttributeError.
//
// Host values are converted with Python.From and foreign values are deep
// converted back with Object.Materialize. Foreign exceptions surface as
// *PythonError; Go errors returned from callbacks are raised inside the
// interpreter.
//
// Proxies should be released with Release. A proxy that is garbage
// collected without Release is queued and decremented on the bridge's next
// entry into the interpreter, never from the collector's goroutine.
//
// The bridge is single-threaded: callers must not use one bridge from
// several goroutines at once.
package pybridge
