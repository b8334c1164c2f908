// Package testhelpers provides common utilities and helper functions for testing the chat relay.
//
// This package contains reusable test utilities that are shared across unit and integration tests.
// It provides functions for creating test servers, dialing the WebSocket endpoint, and reading the
// newline-batched frames the write pump produces, to reduce code duplication in test files.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// WebSocketURL converts an httptest server URL into the chat endpoint URL,
// carrying the session token as the "token" query parameter.
func WebSocketURL(serverURL, token string) string {
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	if token != "" {
		wsURL += "?token=" + url.QueryEscape(token)
	}
	return wsURL
}

// ConnectWebSocket creates a WebSocket connection to the specified URL.
// It sends an Origin header matching the default allowed origins so the
// upgrade passes the origin check.
func ConnectWebSocket(wsURL string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	headers.Set("Origin", "http://localhost:8080")

	conn, resp, err := dialer.Dial(wsURL, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendEvent sends one inbound JSON event over the WebSocket connection.
func SendEvent(conn *websocket.Conn, event map[string]string) error {
	return conn.WriteJSON(event)
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// FrameReader yields application frames one at a time. The server's write
// pump batches queued payloads into a single WebSocket message separated by
// newlines, so one read can produce several frames.
type FrameReader struct {
	conn   *websocket.Conn
	queued [][]byte
}

// NewFrameReader wraps a connection for frame-by-frame reading.
func NewFrameReader(conn *websocket.Conn) *FrameReader {
	return &FrameReader{conn: conn}
}

// Next returns the next decoded frame, waiting up to the timeout for a
// WebSocket message when nothing is buffered.
func (r *FrameReader) Next(timeout time.Duration) (map[string]interface{}, error) {
	if len(r.queued) == 0 {
		if err := r.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		for _, part := range bytes.Split(data, []byte{'\n'}) {
			if len(part) > 0 {
				r.queued = append(r.queued, part)
			}
		}
	}

	raw := r.queued[0]
	r.queued = r.queued[1:]

	var frame map[string]interface{}
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// Expect reads the next frame and fails the test unless it has the expected
// type. It returns the frame for further field assertions.
func (r *FrameReader) Expect(t *testing.T, frameType string, timeout time.Duration) map[string]interface{} {
	t.Helper()

	frame, err := r.Next(timeout)
	if err != nil {
		t.Fatalf("Failed reading frame while expecting %q: %v", frameType, err)
	}
	if frame["type"] != frameType {
		t.Fatalf("Expected frame type %q, got %v (frame: %v)", frameType, frame["type"], frame)
	}
	return frame
}

// AssertFrameField checks a single string field on a decoded frame.
func AssertFrameField(t *testing.T, frame map[string]interface{}, field, expected string) {
	t.Helper()

	value, ok := frame[field].(string)
	if !ok {
		t.Errorf("Frame field %q missing or not a string: %v", field, frame)
		return
	}
	if value != expected {
		t.Errorf("Expected frame field %q to be %q, got %q", field, expected, value)
	}
}

// AssertUserList checks the users carried by a user_list_update frame.
func AssertUserList(t *testing.T, frame map[string]interface{}, expected []string) {
	t.Helper()

	raw, ok := frame["users"].([]interface{})
	if !ok {
		t.Errorf("Frame has no users array: %v", frame)
		return
	}

	users := make([]string, 0, len(raw))
	for _, entry := range raw {
		name, ok := entry.(string)
		if !ok {
			t.Errorf("User list entry is not a string: %v", entry)
			return
		}
		users = append(users, name)
	}

	if len(users) != len(expected) {
		t.Errorf("Expected user list %v, got %v", expected, users)
		return
	}
	for i := range expected {
		if users[i] != expected[i] {
			t.Errorf("Expected user list %v, got %v", expected, users)
			return
		}
	}
}
