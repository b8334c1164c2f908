// Package unit contains unit tests for individual components of the chat relay.
//
// These tests focus on testing specific functions and methods in isolation,
// using in-memory collaborators where necessary to avoid dependencies on
// external systems.
package unit

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/relaychat/internal/server"
)

// TestNewHub tests the hub creation function.
// It verifies that NewHub returns a properly initialized Hub
// with all necessary channels and data structures.
func TestNewHub(t *testing.T) {
	hub := server.NewHub(zap.NewNop())

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}

	select {
	case hub.GetRegisterChan() <- nil:
	case <-time.After(10 * time.Millisecond):
	}
}

// TestHubChannels tests that all hub channels are properly initialized.
// It verifies that the register and unregister channels are not nil and
// accessible through their getter methods.
func TestHubChannels(t *testing.T) {
	hub := server.NewHub(zap.NewNop())

	if hub.GetRegisterChan() == nil {
		t.Error("Register channel is nil")
	}
	if hub.GetUnregisterChan() == nil {
		t.Error("Unregister channel is nil")
	}
}

// TestHubRunStartsWithoutPanic tests that the hub's Run method starts without
// panicking when launched in its own goroutine.
func TestHubRunStartsWithoutPanic(t *testing.T) {
	hub := server.NewHub(zap.NewNop())

	done := make(chan bool, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Hub.Run() panicked: %v", r)
			}
			done <- true
		}()
		go hub.Run()
		time.Sleep(10 * time.Millisecond)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Hub.Run() test timed out")
	}
}

// TestHubBroadcastDoesNotBlock tests that Broadcast hands a payload to a
// running hub without blocking the caller.
func TestHubBroadcastDoesNotBlock(t *testing.T) {
	hub := server.NewHub(zap.NewNop())
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	done := make(chan bool, 1)
	go func() {
		hub.Broadcast([]byte("test broadcast"))
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Broadcast blocked with a running hub")
	}
}

// TestNewClient tests the client creation function.
// It verifies that NewClient returns a properly initialized Client with a
// unique connection identifier and a usable send channel.
func TestNewClient(t *testing.T) {
	hub := server.NewHub(zap.NewNop())

	client := server.NewClient(nil, hub, "127.0.0.1:12345", zap.NewNop())
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}

	if client.ID() == "" {
		t.Error("Client has empty connection identifier")
	}
	if client.GetSendChan() == nil {
		t.Error("Client send channel is nil")
	}

	other := server.NewClient(nil, hub, "127.0.0.1:12346", zap.NewNop())
	if other.ID() == client.ID() {
		t.Error("Two clients share the same connection identifier")
	}
}

// TestClientSendChannelStartsEmpty verifies that a fresh client has nothing
// queued for delivery.
func TestClientSendChannelStartsEmpty(t *testing.T) {
	hub := server.NewHub(zap.NewNop())
	client := server.NewClient(nil, hub, "127.0.0.1:12345", zap.NewNop())

	select {
	case <-client.GetSendChan():
		t.Error("Expected empty send channel but received a payload")
	case <-time.After(10 * time.Millisecond):
	}
}

// TestConcurrentBroadcasts tests that the hub handles concurrent Broadcast
// calls safely from multiple goroutines.
func TestConcurrentBroadcasts(t *testing.T) {
	hub := server.NewHub(zap.NewNop())
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(id int) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Goroutine %d panicked: %v", id, r)
				}
				done <- true
			}()
			hub.Broadcast([]byte("concurrent payload"))
		}(i)
	}

	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(200 * time.Millisecond):
			t.Error("Concurrent broadcast test timed out")
			return
		}
	}
}

// TestHubShutdownCompletes tests that Shutdown stops a running hub within the
// timeout and that Broadcast returns immediately afterwards.
func TestHubShutdownCompletes(t *testing.T) {
	hub := server.NewHub(zap.NewNop())
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	if err := hub.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	done := make(chan bool, 1)
	go func() {
		hub.Broadcast([]byte("after shutdown"))
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Broadcast blocked after shutdown")
	}
}
