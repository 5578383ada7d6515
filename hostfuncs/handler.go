package hostfuncs

import (
	"context"

	"github.com/reglet-dev/pybridge/domain/entities"
)

// Invocation carries the raw arguments of one foreign call into a host function.
// Args is a borrowed tuple; Kwargs is a borrowed dict or NULL.
type Invocation struct {
	Args   entities.Ptr
	Kwargs entities.Ptr
}

// Handler runs a host function. It returns a new foreign reference owned by
// the caller, or an error that the bridge raises as a foreign exception.
type Handler func(ctx context.Context, inv Invocation) (entities.Ptr, error)
