// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and inbound event dispatch for each connection.
package server

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Tyrowin/relaychat/internal/account"
	"github.com/Tyrowin/relaychat/internal/room"
)

// backendCallTimeout bounds the total backend work triggered by one inbound
// event or by disconnect cleanup.
const backendCallTimeout = 5 * time.Second

// Client represents one WebSocket connection. It owns the connection state,
// the outbound send channel, and the room session bound to this connection.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	closed         bool
	session        *room.Session
	limiter        *rate.Limiter
	maxMessageSize int64
	log            *zap.Logger
}

// NewClient creates a Client for an upgraded connection. The connection
// identifier is a fresh UUID, unique per transport session and never reused.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, log *zap.Logger) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	limit := rate.Limit(float64(cfg.RateLimit.Burst) / cfg.RateLimit.RefillInterval.Seconds())
	id := uuid.NewString()

	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		addr:           addr,
		closed:         false,
		limiter:        rate.NewLimiter(limit, cfg.RateLimit.Burst),
		maxMessageSize: cfg.MaxMessageSize,
		log:            log.With(zap.String("conn_id", id), zap.String("addr", addr)),
	}
}

// ID returns the opaque connection identifier.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's outbound channel for reading.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// Deliver queues a payload for this connection only, bypassing broadcast.
// History replay and error events use it.
func (c *Client) Deliver(payload []byte) bool {
	if len(payload) == 0 {
		return false
	}
	return c.hub.safeSend(c, payload)
}

// bindSession attaches the room session before the pumps start.
func (c *Client) bindSession(s *room.Session) {
	c.session = s
}

// setupReadConnection configures read deadlines and the pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		c.log.Warn("error setting initial read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			c.log.Warn("error setting read deadline in pong handler", zap.Error(err))
		}
		return nil
	})
}

// handleReadError logs the error appropriately and reports whether the read
// loop should stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		c.log.Warn("message exceeded maximum size", zap.Int64("max_bytes", c.maxMessageSize))
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		c.log.Info("client disconnected", zap.Error(err))
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.log.Info("client connection closed", zap.Error(err))
		return true
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		c.log.Warn("unexpected websocket error", zap.Error(err))
		return true
	}

	c.log.Warn("websocket read error", zap.Error(err))
	return true
}

// checkRateLimit reports whether the next inbound event may be processed.
func (c *Client) checkRateLimit() bool {
	if c.limiter != nil && !c.limiter.Allow() {
		c.log.Warn("rate limit exceeded, discarding event")
		return false
	}
	return true
}

// processEvent decodes one inbound payload and dispatches it to the session.
func (c *Client) processEvent(raw []byte) {
	ev, err := room.DecodeInbound(raw)
	if err != nil {
		c.log.Warn("invalid inbound event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), backendCallTimeout)
	defer cancel()

	switch ev.Type {
	case room.EventSendMessage:
		c.session.Message(ctx, ev.Msg)
	case room.EventSetColor:
		if err := c.session.SetColor(ctx, ev.Color); err != nil {
			c.Deliver(room.ErrorFrame(setColorErrorText(err)))
		}
	case room.EventJoin:
		c.session.ConfirmJoin(ctx)
	default:
		c.log.Debug("unknown inbound event type", zap.String("type", ev.Type))
	}
}

// setColorErrorText maps a set-color failure to the text shown to the sender.
func setColorErrorText(err error) string {
	if errors.Is(err, account.ErrInvalidColor) {
		return "Invalid color format (#RRGGBB required)."
	}
	return "Server error saving color preference."
}

func (c *Client) readPump() {
	defer func() {
		// Disconnect must still attempt the leave transition, even mid-send.
		if c.session != nil {
			ctx, cancel := context.WithTimeout(context.Background(), backendCallTimeout)
			c.session.Leave(ctx)
			cancel()
		}
		// After hub shutdown nothing drains the unregister channel.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("error closing connection in readPump", zap.Error(err))
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processEvent(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case payload, ok := <-c.send:
		return c.handleOutbound(payload, ok)
	case <-ticker.C:
		return c.handlePing()
	case <-c.hub.ctx.Done():
		return false
	}
}

// closeConnection closes the WebSocket connection, ignoring expected errors.
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("error closing connection in writePump", zap.Error(err))
	}
}

// handleOutbound writes a payload and reports whether the pump continues.
func (c *Client) handleOutbound(payload []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		c.log.Warn("error setting write deadline", zap.Error(err))
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(payload)
}

// writeCloseMessage sends a close frame to the client.
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("error writing close message", zap.Error(err))
		}
	}
	return false
}

// writeTextMessage writes the payload and any queued payloads.
func (c *Client) writeTextMessage(payload []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.log.Warn("error creating writer", zap.Error(err))
		return false
	}

	if _, err := w.Write(payload); err != nil {
		c.log.Warn("error writing payload", zap.Error(err))
		return false
	}

	// Drain anything already queued into the same frame batch.
	n := len(c.send)
	for i := 0; i < n; i++ {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			c.log.Warn("error writing separator", zap.Error(err))
			return false
		}
		if _, err := w.Write(<-c.send); err != nil {
			c.log.Warn("error writing queued payload", zap.Error(err))
			return false
		}
	}

	if err := w.Close(); err != nil {
		c.log.Warn("error closing writer", zap.Error(err))
		return false
	}
	return true
}

// handlePing keeps the connection alive.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		c.log.Warn("error setting ping write deadline", zap.Error(err))
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Warn("error writing ping", zap.Error(err))
		return false
	}
	return true
}
