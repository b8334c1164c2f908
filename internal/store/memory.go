package store

import (
	"context"
	"sync"
)

// Memory implements every store capability in-process. It backs the unit and
// integration tests, where several isolated "server instances" can share one
// Memory to exercise cross-instance fan-out without a network dependency.
type Memory struct {
	mu       sync.Mutex
	failing  bool
	presence map[string]string
	history  []string // newest first
	subs     []*memorySubscription
}

var (
	_ PresenceStore = (*Memory)(nil)
	_ HistoryStore  = (*Memory)(nil)
	_ PubSub        = (*Memory)(nil)
)

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{presence: make(map[string]string)}
}

// SetFailing toggles simulated backend unavailability. While failing, every
// operation returns ErrUnavailable.
func (m *Memory) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

// Put implements PresenceStore.
func (m *Memory) Put(_ context.Context, connID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return ErrUnavailable
	}
	m.presence[connID] = name
	return nil
}

// Remove implements PresenceStore.
func (m *Memory) Remove(_ context.Context, connID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return "", false, ErrUnavailable
	}
	name, ok := m.presence[connID]
	if !ok {
		return "", false, nil
	}
	delete(m.presence, connID)
	return name, true, nil
}

// Names implements PresenceStore.
func (m *Memory) Names(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, ErrUnavailable
	}
	names := make([]string, 0, len(m.presence))
	for _, name := range m.presence {
		names = append(names, name)
	}
	return names, nil
}

// Push implements HistoryStore.
func (m *Memory) Push(_ context.Context, record string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return ErrUnavailable
	}
	m.history = append([]string{record}, m.history...)
	return nil
}

// Trim implements HistoryStore.
func (m *Memory) Trim(_ context.Context, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return ErrUnavailable
	}
	if keep >= 0 && len(m.history) > keep {
		m.history = m.history[:keep]
	}
	return nil
}

// Range implements HistoryStore.
func (m *Memory) Range(_ context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, ErrUnavailable
	}
	n := len(m.history)
	if limit >= 0 && limit < n {
		n = limit
	}
	records := make([]string, n)
	copy(records, m.history[:n])
	return records, nil
}

// Subscribers reports the number of open subscriptions. Tests use it to wait
// for a bridge's subscription before driving traffic.
func (m *Memory) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Len reports the current number of stored history records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// Publish implements PubSub. Slow subscribers are dropped rather than blocked.
func (m *Memory) Publish(_ context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return ErrUnavailable
	}
	for _, sub := range m.subs {
		select {
		case sub.events <- payload:
		default:
		}
	}
	return nil
}

// Subscribe implements PubSub.
func (m *Memory) Subscribe(_ context.Context) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, ErrUnavailable
	}
	sub := &memorySubscription{
		parent: m,
		events: make(chan []byte, 64),
	}
	m.subs = append(m.subs, sub)
	return sub, nil
}

type memorySubscription struct {
	parent *Memory
	events chan []byte
	once   sync.Once
}

func (s *memorySubscription) Events() <-chan []byte {
	return s.events
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.parent.mu.Lock()
		for i, sub := range s.parent.subs {
			if sub == s {
				s.parent.subs = append(s.parent.subs[:i], s.parent.subs[i+1:]...)
				break
			}
		}
		s.parent.mu.Unlock()
		close(s.events)
	})
	return nil
}
