// Package room implements the single shared chat room: the per-connection
// lifecycle state machine, the broadcast fan-out over the state backend's
// pub/sub channel, and the wire frames exchanged with clients.
package room

import (
	"encoding/json"
	"fmt"
)

// Inbound event kinds accepted from clients.
const (
	EventJoin        = "join"
	EventSendMessage = "send_message"
	EventSetColor    = "set_color"
)

// Outbound frame types delivered to clients.
const (
	FrameStatus         = "status"
	FrameUserListUpdate = "user_list_update"
	FrameChatMessage    = "chat_message"
	FrameError          = "error"
)

// Inbound is one application-level event received from a client.
type Inbound struct {
	Type  string `json:"type"`
	Msg   string `json:"msg,omitempty"`
	Color string `json:"color,omitempty"`
}

// DecodeInbound parses a raw client payload.
func DecodeInbound(raw []byte) (Inbound, error) {
	var ev Inbound
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Inbound{}, fmt.Errorf("decode inbound event: %w", err)
	}
	if ev.Type == "" {
		return Inbound{}, fmt.Errorf("inbound event missing type")
	}
	return ev, nil
}

// StatusEvent announces joins and leaves.
type StatusEvent struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

// UserListEvent carries the sorted unique set of online display names.
type UserListEvent struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// ChatMessageEvent carries one chat message with the sender's display state.
type ChatMessageEvent struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
	Msg      string `json:"msg"`
	Color    string `json:"color"`
}

// ErrorEvent reports a user-visible failure to one client only.
type ErrorEvent struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

// StatusFrame encodes a status announcement.
func StatusFrame(msg string) []byte {
	return marshalFrame(StatusEvent{Type: FrameStatus, Msg: msg})
}

// UserListFrame encodes a user list update. The slice is never null on the
// wire, even when nobody is online.
func UserListFrame(users []string) []byte {
	if users == nil {
		users = []string{}
	}
	return marshalFrame(UserListEvent{Type: FrameUserListUpdate, Users: users})
}

// ChatMessageFrame encodes one chat message.
func ChatMessageFrame(nickname, msg, color string) []byte {
	return marshalFrame(ChatMessageEvent{
		Type:     FrameChatMessage,
		Nickname: nickname,
		Msg:      msg,
		Color:    color,
	})
}

// ErrorFrame encodes a user-visible error.
func ErrorFrame(msg string) []byte {
	return marshalFrame(ErrorEvent{Type: FrameError, Msg: msg})
}

// marshalFrame never fails for the plain structs above; a nil return is
// skipped by every consumer.
func marshalFrame(v any) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}
