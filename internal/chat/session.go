package chat

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

// readPump processes inbound frames for one connection in receipt order.
// It exits on the first read error, which triggers teardown.
func (h *Hub) readPump(c *Conn) {
	defer h.teardown(c)
	c.sock.SetReadLimit(maxMessageSize)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.sock.ReadMessage()
		if err != nil {
			// normal close or read error; deferred teardown runs either way
			break
		}
		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			h.log.Warn("dropping undecodable frame", "conn", c.id, "err", err)
			continue
		}
		switch frame.Type {
		case FrameAuthenticate:
			h.handleAuthenticate(c, frame.Token)
		case FrameMessage:
			h.handleMessage(c, frame)
		default:
			h.log.Warn("dropping frame of unknown type", "conn", c.id, "frame_type", frame.Type)
		}
	}
}

// handleAuthenticate runs the handshake: resolve the token, register the
// connection, move to Authenticated. An unresolved token proceeds as an
// anonymous visitor; only an explicit decline closes the channel.
func (h *Hub) handleAuthenticate(c *Conn, token string) {
	if c.State() != StateConnecting {
		h.log.Warn("duplicate authenticate frame ignored", "conn", c.id)
		return
	}
	identity, err := h.resolver.Resolve(c.ctx, token)
	if err != nil {
		if errors.Is(err, ErrAuthenticationDeclined) {
			h.log.Info("authentication declined", "conn", c.id)
			h.closeWith(c, websocket.ClosePolicyViolation, ErrAuthenticationDeclined.Error())
			return
		}
		// the lookup is terminal for this attempt and the widget must work
		// without a login, so fall back to anonymous
		h.log.Error("identity lookup failed", "conn", c.id, "err", err)
		identity = nil
	}
	if !c.setAuthenticated(identity) {
		// the channel closed while the lookup was in flight; the late
		// result must not touch the registry
		h.log.Debug("discarding late handshake result", "conn", c.id)
		return
	}
	h.registry.Add(c)
	h.metrics.IncConn()

	ack := Frame{Type: FrameAuthenticated}
	if identity != nil {
		userID := identity.UserID
		ack.UserID = &userID
		ack.IsAdmin = identity.IsAdmin
		h.log.Info("connection authenticated", "conn", c.id, "user", identity.UserID, "admin", identity.IsAdmin)
	} else {
		h.log.Info("connection authenticated", "conn", c.id, "user", "anonymous")
	}
	h.sendFrame(c, ack)
}

// handleMessage ingests one content frame: validate state, persist, then
// broadcast. Persistence strictly precedes fan-out, so a crash in between
// loses real-time delivery only, never data.
func (h *Hub) handleMessage(c *Conn, frame Frame) {
	if c.State() != StateAuthenticated {
		h.metrics.IncProtocolViolation()
		h.log.Warn(ErrProtocolViolation.Error(), "conn", c.id, "state", c.State().String())
		return
	}
	if !h.limiter.Allow(c.id) {
		h.sendFrame(c, Frame{
			Type: FrameSystem,
			Body: "You're sending messages too quickly. Please wait a moment and try again.",
		})
		return
	}

	identity := c.Identity()
	// the client's isAdmin flag is advisory only; the registered identity
	// always wins, so a visitor can never inject an operator message
	isAdmin := identity != nil && identity.IsAdmin

	var senderID *int64
	switch {
	case isAdmin:
		// operators address a visitor conversation; no target means the
		// shared anonymous thread
		senderID = frame.UserID
	case identity != nil:
		userID := identity.UserID
		senderID = &userID
	}

	msg, err := h.store.Append(c.ctx, senderID, frame.Content, isAdmin)
	if err != nil {
		if errors.Is(err, ErrEmptyContent) {
			h.sendFrame(c, Frame{Type: FrameError, Error: ErrEmptyContent.Error()})
			return
		}
		// nothing was persisted, so nothing is broadcast; the client is
		// expected to retry the send
		h.log.Error("message append failed", "conn", c.id, "err", err)
		h.sendFrame(c, Frame{Type: FrameError, Error: "message not saved, please retry"})
		return
	}
	h.metrics.IncMessage()
	h.broadcast(msg, c)
}

// writePump drains the send queue onto the socket and keeps the channel
// alive with pings.
func (h *Hub) writePump(c *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.sock.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// teardown releases everything tied to a connection exactly once per
// pump exit: terminal state, registry entry, limiter state, send queue.
func (h *Hub) teardown(c *Conn) {
	prev := c.setClosed()
	if h.registry.Remove(c.id) {
		h.metrics.DecConn()
	}
	h.limiter.Forget(c.id)
	c.cancel()
	c.closeSend()
	_ = c.sock.Close()
	h.log.Debug("channel closed", "conn", c.id, "previous_state", prev.String())
}

// closeWith sends a close frame with the given code and tears the
// channel down.
func (h *Hub) closeWith(c *Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = c.sock.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = c.sock.Close()
}
