package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Tyrowin/relaychat/internal/store"
)

func newTestRegistry() (*Registry, *store.Memory) {
	mem := store.NewMemory()
	return NewRegistry(mem, zap.NewNop()), mem
}

func TestRegisterThenDeregister(t *testing.T) {
	registry, _ := newTestRegistry()
	ctx := context.Background()

	registry.Register(ctx, "conn-1", "alice")

	name, found := registry.Deregister(ctx, "conn-1")
	assert.True(t, found)
	assert.Equal(t, "alice", name)
}

func TestDeregisterUnknownConnection(t *testing.T) {
	registry, _ := newTestRegistry()
	ctx := context.Background()

	name, found := registry.Deregister(ctx, "never-registered")
	assert.False(t, found)
	assert.Empty(t, name)

	// Removing the same connection twice only succeeds once.
	registry.Register(ctx, "conn-1", "alice")
	_, found = registry.Deregister(ctx, "conn-1")
	assert.True(t, found)
	_, found = registry.Deregister(ctx, "conn-1")
	assert.False(t, found)
}

func TestRegisterSkipsEmptyArguments(t *testing.T) {
	registry, _ := newTestRegistry()
	ctx := context.Background()

	registry.Register(ctx, "", "alice")
	registry.Register(ctx, "conn-1", "")

	assert.Empty(t, registry.ListOnline(ctx))
}

func TestListOnlineSortedAndUnique(t *testing.T) {
	registry, _ := newTestRegistry()
	ctx := context.Background()

	// The same name logged in twice collapses to a single display entry.
	registry.Register(ctx, "conn-1", "bob")
	registry.Register(ctx, "conn-2", "alice")
	registry.Register(ctx, "conn-3", "bob")

	assert.Equal(t, []string{"alice", "bob"}, registry.ListOnline(ctx))
}

func TestListOnlineNeverNil(t *testing.T) {
	registry, _ := newTestRegistry()

	names := registry.ListOnline(context.Background())
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestBackendFailureDegrades(t *testing.T) {
	registry, mem := newTestRegistry()
	ctx := context.Background()

	registry.Register(ctx, "conn-1", "alice")
	mem.SetFailing(true)

	names := registry.ListOnline(ctx)
	assert.NotNil(t, names)
	assert.Empty(t, names)

	name, found := registry.Deregister(ctx, "conn-1")
	assert.False(t, found)
	assert.Empty(t, name)

	// The entry is still there once the backend recovers.
	mem.SetFailing(false)
	assert.Equal(t, []string{"alice"}, registry.ListOnline(ctx))
}
