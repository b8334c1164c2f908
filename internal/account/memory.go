package account

import (
	"context"
	"sync"

	"github.com/Tyrowin/relaychat/internal/store"
)

// Memory is an in-process account store and authenticator for tests.
type Memory struct {
	mu       sync.Mutex
	failing  bool
	colors   map[string]string
	sessions map[string]string
}

var (
	_ Store         = (*Memory)(nil)
	_ Authenticator = (*Memory)(nil)
)

// NewMemory creates an empty in-memory account collaborator.
func NewMemory() *Memory {
	return &Memory{
		colors:   make(map[string]string),
		sessions: make(map[string]string),
	}
}

// AddSession binds a session token to a username.
func (m *Memory) AddSession(token, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = username
}

// SetStoredColor seeds a stored color preference directly.
func (m *Memory) SetStoredColor(username, color string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.colors[username] = color
}

// SetFailing toggles simulated backend unavailability.
func (m *Memory) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

// Color implements Store.
func (m *Memory) Color(_ context.Context, username string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return DefaultColor, store.ErrUnavailable
	}
	if color, ok := m.colors[username]; ok && color != "" {
		return color, nil
	}
	return DefaultColor, nil
}

// UpdateColor implements Store.
func (m *Memory) UpdateColor(_ context.Context, username, color string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return store.ErrUnavailable
	}
	m.colors[username] = color
	return nil
}

// Authenticate implements Authenticator.
func (m *Memory) Authenticate(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return "", store.ErrUnavailable
	}
	username, ok := m.sessions[token]
	if !ok || username == "" {
		return "", ErrUnknownSession
	}
	return username, nil
}
