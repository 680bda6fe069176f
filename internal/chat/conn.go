package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnState is the session protocol state of a live connection. The only
// transitions are Connecting -> Authenticated -> Closed; nothing ever
// moves back.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateAuthenticated
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Conn wraps a single websocket channel with its protocol state, resolved
// identity and a buffered send queue. Conns live only in memory; a process
// restart forgets them all and clients reconnect on their own.
type Conn struct {
	id   string
	sock *websocket.Conn

	// ctx covers the connection's lifetime. Closing the channel cancels
	// it, which abandons any in-flight resolver lookup.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      ConnState
	identity   *Identity
	send       chan []byte
	sendClosed bool
}

func newConn(sock *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		id:     uuid.NewString(),
		sock:   sock,
		ctx:    ctx,
		cancel: cancel,
		state:  StateConnecting,
		send:   make(chan []byte, sendBufferSize),
	}
}

// ID returns the process-unique handle for this channel.
func (c *Conn) ID() string { return c.id }

// State reports the current protocol state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the resolved identity, nil for anonymous visitors.
func (c *Conn) Identity() *Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// setAuthenticated applies a handshake result. It reports false when the
// connection already left the Connecting state, which is how a resolver
// result that arrives after teardown gets discarded instead of applied.
func (c *Conn) setAuthenticated(identity *Identity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnecting {
		return false
	}
	c.state = StateAuthenticated
	c.identity = identity
	return true
}

// setClosed moves to the terminal state and reports the previous one.
func (c *Conn) setClosed() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.state
	c.state = StateClosed
	return prev
}

// trySend queues a payload without blocking. It reports false when the
// queue is full or the connection is gone; the caller decides whether
// that drops the consumer.
func (c *Conn) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendClosed || c.state == StateClosed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend shuts the send queue, which makes the write pump flush a
// close frame and exit. Safe to call more than once.
func (c *Conn) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.send)
}
