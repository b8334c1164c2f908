package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Tyrowin/relaychat/internal/account"
)

// State is the lifecycle position of one connection. Transitions only move
// forward: Unbound to Bound on a successful identity binding, and any state
// to Left on disconnect. Left is terminal.
type State int

const (
	// StateUnbound is the initial state: the transport is connected but the
	// connection has not joined the room.
	StateUnbound State = iota
	// StateBound means the identity is bound, presence is registered, and the
	// connection participates in broadcasts.
	StateBound
	// StateLeft is terminal; no further events are processed.
	StateLeft
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateLeft:
		return "left"
	default:
		return "unknown"
	}
}

// ErrNotAuthenticated reports a bind attempt without an authenticated
// identity. Such connections are refused before any state is mutated.
var ErrNotAuthenticated = errors.New("connection has no authenticated identity")

// DeliverFunc sends a payload to one connection only, bypassing broadcast.
// It reports whether the payload was accepted.
type DeliverFunc func(payload []byte) bool

// Session is the lifecycle state machine for a single connection. The
// transport delivers a connection's events serially, but disconnect can race
// an in-flight send, so transitions are mutex-guarded.
type Session struct {
	mu       sync.Mutex
	state    State
	connID   string
	username string
	room     *Room
	deliver  DeliverFunc
	log      *zap.Logger
}

// NewSession creates a session in StateUnbound for an authenticated username.
func (r *Room) NewSession(connID, username string, deliver DeliverFunc) *Session {
	return &Session{
		state:    StateUnbound,
		connID:   connID,
		username: username,
		room:     r,
		deliver:  deliver,
		log: r.log.With(
			zap.String("conn_id", connID),
			zap.String("username", username),
		),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Username returns the bound identity's display name.
func (s *Session) Username() string {
	return s.username
}

// Bind performs the Unbound to Bound transition: register presence, announce
// the join and a fresh user list to everyone, then replay history privately
// to this connection. A presence backend failure degrades silently; only a
// missing identity refuses the transition.
func (s *Session) Bind(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUnbound {
		return fmt.Errorf("bind from %s state", s.state)
	}
	if s.username == "" {
		return ErrNotAuthenticated
	}

	s.room.presence.Register(ctx, s.connID, s.username)
	s.state = StateBound
	s.log.Info("connection bound")

	s.room.publish(ctx, StatusFrame(s.username+" has joined the chat."))
	s.room.publishUserList(ctx)

	for _, rec := range s.room.history.Replay(ctx) {
		s.deliver(ChatMessageFrame(rec.Nickname, rec.Body, rec.Color))
	}
	return nil
}

// Message handles a send-message event while Bound. The body is whitespace
// trimmed; an empty result is a silent no-op. The sender's color is read
// fresh from the account store so a mid-session color change applies to the
// next message. History is recorded before the live broadcast.
func (s *Session) Message(ctx context.Context, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBound {
		s.log.Warn("message ignored in non-bound state",
			zap.String("state", s.state.String()))
		return
	}

	body = strings.TrimSpace(body)
	if body == "" {
		s.log.Debug("empty message ignored")
		return
	}

	color := s.room.color(ctx, s.username)
	s.room.history.Append(ctx, s.username, color, body)
	s.room.publish(ctx, ChatMessageFrame(s.username, body, color))
	s.log.Info("message relayed", zap.Int("bytes", len(body)))
}

// ConfirmJoin handles the optional explicit join confirmation by
// re-broadcasting a fresh user list. It is ignored outside StateBound.
func (s *Session) ConfirmJoin(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBound {
		return
	}
	s.room.publishUserList(ctx)
}

// SetColor validates and persists a new nickname color. Unlike the other
// degrading operations this one reports failures: it is a direct user action
// and the caller surfaces the error to the sender only.
func (s *Session) SetColor(ctx context.Context, color string) error {
	if !account.ValidColor(color) {
		s.log.Warn("invalid color rejected", zap.String("color", color))
		return account.ErrInvalidColor
	}
	if err := s.room.accounts.UpdateColor(ctx, s.username, color); err != nil {
		s.log.Error("color update failed", zap.Error(err))
		return err
	}
	return nil
}

// Leave performs the transition to Left. If the connection had a presence
// entry, its removal is announced and a fresh user list is broadcast; a
// connection that never joined leaves without any announcement. Leave is
// idempotent.
func (s *Session) Leave(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateLeft {
		return
	}
	s.state = StateLeft

	name, found := s.room.presence.Deregister(ctx, s.connID)
	if !found {
		s.log.Info("connection left without presence entry")
		return
	}

	s.log.Info("connection left")
	s.room.publish(ctx, StatusFrame(name+" has left the chat."))
	s.room.publishUserList(ctx)
}
