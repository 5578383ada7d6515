package hostfuncs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/reglet-dev/pybridge/domain/entities"
	domainerrors "github.com/reglet-dev/pybridge/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constHandler(p entities.Ptr) Handler {
	return func(ctx context.Context, inv Invocation) (entities.Ptr, error) {
		return p, nil
	}
}

func TestNewTable_Empty(t *testing.T) {
	table := NewTable()
	require.NotNil(t, table)
	assert.Zero(t, table.Len())
	assert.Empty(t, table.IDs())
}

func TestTable_AddAssignsFreshIDs(t *testing.T) {
	table := NewTable()

	a := table.Add("a", constHandler(1))
	b := table.Add("b", constHandler(2))

	assert.Equal(t, uintptr(1), a)
	assert.Equal(t, uintptr(2), b)
	assert.Equal(t, []uintptr{1, 2}, table.IDs())

	name, ok := table.Name(b)
	require.True(t, ok)
	assert.Equal(t, "b", name)
}

func TestTable_RemoveNeverReusesIDs(t *testing.T) {
	table := NewTable()

	a := table.Add("a", constHandler(1))
	assert.True(t, table.Remove(a))
	assert.False(t, table.Remove(a), "second remove is a no-op")
	assert.False(t, table.Has(a))

	b := table.Add("b", constHandler(2))
	assert.NotEqual(t, a, b)
}

func TestTable_Invoke(t *testing.T) {
	table := NewTable()
	var seen Invocation
	id := table.Add("echo", func(ctx context.Context, inv Invocation) (entities.Ptr, error) {
		seen = inv
		return inv.Args, nil
	})

	ret, err := table.Invoke(context.Background(), id, Invocation{Args: 10, Kwargs: 20})
	require.NoError(t, err)
	assert.Equal(t, entities.Ptr(10), ret)
	assert.Equal(t, Invocation{Args: 10, Kwargs: 20}, seen)
}

func TestTable_InvokeRetired(t *testing.T) {
	table := NewTable()
	id := table.Add("reduce", constHandler(1))
	table.Remove(id)

	ret, err := table.Invoke(context.Background(), id, Invocation{})
	require.Error(t, err)
	assert.Zero(t, ret)
	assert.True(t, errors.Is(err, domainerrors.ErrCallbackDestroyed))
	assert.True(t, IsDestroyed(err))

	var cbErr *domainerrors.CallbackError
	require.True(t, errors.As(err, &cbErr))
	assert.Equal(t, "#1", cbErr.Name)
}

func TestTable_InvokePassesCallbackIdentity(t *testing.T) {
	table := NewTable()
	var (
		name  string
		seen  uintptr
		depth int
	)
	id := table.Add("named", func(ctx context.Context, inv Invocation) (entities.Ptr, error) {
		hc, ok := ctx.(HostContext)
		require.True(t, ok)
		name, seen, depth = hc.CallbackName(), hc.CallbackID(), hc.Depth()
		return 0, nil
	})

	_, err := table.Invoke(context.Background(), id, Invocation{})
	require.NoError(t, err)
	assert.Equal(t, "named", name)
	assert.Equal(t, id, seen)
	assert.Equal(t, 1, depth)
}

func TestTable_ConcurrentAddRemove(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := table.Add("c", constHandler(1))
			_, _ = table.Invoke(context.Background(), id, Invocation{})
			table.Remove(id)
		}()
	}
	wg.Wait()
	assert.Zero(t, table.Len())
}
