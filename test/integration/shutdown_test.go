package integration

import (
	"testing"
	"time"

	"github.com/Tyrowin/relaychat/internal/account"
	"github.com/Tyrowin/relaychat/internal/store"
)

// TestShutdownClosesConnections verifies that hub shutdown terminates live
// WebSocket connections and completes within its timeout.
func TestShutdownClosesConnections(t *testing.T) {
	mem := store.NewMemory()
	accounts := account.NewMemory()
	accounts.AddSession("alice-token", "alice")
	inst := startInstance(t, mem, accounts)

	conn, reader := connect(t, inst, "alice-token")
	reader.Expect(t, "status", frameTimeout)
	reader.Expect(t, "user_list_update", frameTimeout)

	if err := inst.hub.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	// The connection is closed from the server side; the next read fails.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected read error after shutdown, connection still open")
	}
}

// TestShutdownIsIdempotentWithNoClients verifies shutdown on an idle hub.
func TestShutdownIsIdempotentWithNoClients(t *testing.T) {
	mem := store.NewMemory()
	accounts := account.NewMemory()
	inst := startInstance(t, mem, accounts)

	if err := inst.hub.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
}
