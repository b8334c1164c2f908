// Package server implements the HTTP and WebSocket transport layer for the
// chat relay.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, routing, and HTTP handlers to keep the codebase
// maintainable and testable as the project grows. Room semantics (presence,
// history, fan-out) live in the internal/room package; this package only
// moves bytes between connections and the room.
package server
