// Package ports defines interfaces for infrastructure operations.
// These ports enable dependency inversion - the bridge depends on abstractions,
// and infrastructure adapters (the cgo libpython loader, the in-process fake
// used by tests, YAML parsing, templating) implement these interfaces.
package ports
