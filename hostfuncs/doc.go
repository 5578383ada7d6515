// Package hostfuncs holds the host half of the callback bridge: a table of
// host functions addressed by integer ids, invoked through a middleware chain
// whenever the foreign runtime calls one of the callables built for them.
//
// The package has no knowledge of the foreign object model. Handlers receive
// the raw argument pointers; the pybridge package layers marshalling on top.
package hostfuncs
