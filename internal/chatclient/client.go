// Package chatclient is the Go-side façade over the chat service: dial,
// authenticate, send, receive, and fetch history. The operator console
// is built on it; the site's browser widget speaks the same protocol.
package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marcelolino/seucodigo-chat/internal/chat"
)

const (
	handshakeTimeout = 10 * time.Second
	httpTimeout      = 5 * time.Second
	inboxBuffer      = 64
)

// Handle is a live, authenticated chat connection. Once the underlying
// channel closes the handle is spent: reconnection means dialing a new
// one, and catching up means fetching history again.
type Handle struct {
	sock     *websocket.Conn
	identity *chat.Identity

	writeMu  sync.Mutex
	messages chan chat.Message
	notices  chan string

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial opens the websocket channel and performs the authenticate
// handshake. An empty token connects as an anonymous visitor. It returns
// chat.ErrAuthenticationDeclined when the server rejects the token.
func Dial(ctx context.Context, baseURL, token string) (*Handle, error) {
	endpoint, err := wsEndpoint(baseURL)
	if err != nil {
		return nil, err
	}
	sock, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial chat: %w", err)
	}
	if err := sock.WriteJSON(chat.Frame{Type: chat.FrameAuthenticate, Token: token}); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("send handshake: %w", err)
	}

	// the first server frame acknowledges the handshake; a close frame
	// here means the resolver declined the token
	_ = sock.SetReadDeadline(time.Now().Add(handshakeTimeout))
	var ack chat.Frame
	for {
		if err := sock.ReadJSON(&ack); err != nil {
			_ = sock.Close()
			if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				return nil, chat.ErrAuthenticationDeclined
			}
			return nil, fmt.Errorf("read handshake ack: %w", err)
		}
		if ack.Type == chat.FrameAuthenticated {
			break
		}
	}
	_ = sock.SetReadDeadline(time.Time{})

	handle := &Handle{
		sock:     sock,
		messages: make(chan chat.Message, inboxBuffer),
		notices:  make(chan string, inboxBuffer),
		closed:   make(chan struct{}),
	}
	if ack.UserID != nil {
		handle.identity = &chat.Identity{UserID: *ack.UserID, IsAdmin: ack.IsAdmin}
	}
	go handle.readLoop()
	return handle, nil
}

// Identity returns the server-confirmed identity, nil when anonymous.
func (h *Handle) Identity() *chat.Identity {
	return h.identity
}

// Messages delivers broadcasts routed to this connection. The channel is
// closed when the connection goes away.
func (h *Handle) Messages() <-chan chat.Message {
	return h.messages
}

// Notices delivers system and error texts from the server.
func (h *Handle) Notices() <-chan string {
	return h.notices
}

// Done is closed once the connection is gone.
func (h *Handle) Done() <-chan struct{} {
	return h.closed
}

// Send submits a visitor message, or an operator message on the shared
// anonymous thread when the handle is an admin.
func (h *Handle) Send(content string) error {
	return h.send(chat.Frame{Type: chat.FrameMessage, Content: content})
}

// SendTo submits an operator reply addressed to userID's conversation.
// On a non-admin connection the server ignores the target.
func (h *Handle) SendTo(userID int64, content string) error {
	return h.send(chat.Frame{Type: chat.FrameMessage, Content: content, UserID: &userID})
}

func (h *Handle) send(frame chat.Frame) error {
	if strings.TrimSpace(frame.Content) == "" {
		return chat.ErrEmptyContent
	}
	select {
	case <-h.closed:
		return chat.ErrNotConnected
	default:
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := h.sock.WriteJSON(frame); err != nil {
		return fmt.Errorf("%w: %v", chat.ErrNotConnected, err)
	}
	return nil
}

// Close shuts the channel down politely.
func (h *Handle) Close() error {
	h.writeMu.Lock()
	_ = h.sock.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	h.writeMu.Unlock()
	return h.sock.Close()
}

func (h *Handle) readLoop() {
	defer func() {
		h.closeOnce.Do(func() { close(h.closed) })
		close(h.messages)
		close(h.notices)
		_ = h.sock.Close()
	}()
	for {
		var frame chat.Frame
		if err := h.sock.ReadJSON(&frame); err != nil {
			return
		}
		switch frame.Type {
		case chat.FrameMessage:
			if frame.Message != nil {
				h.messages <- *frame.Message
			}
		case chat.FrameSystem:
			h.notices <- frame.Body
		case chat.FrameError:
			h.notices <- frame.Error
		}
	}
}

// History fetches the full ordered log over HTTP, the same hydration the
// widget performs on connect.
func History(ctx context.Context, baseURL string) ([]chat.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(baseURL, "/")+"/api/messages", nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history request returned %d", resp.StatusCode)
	}
	var messages []chat.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func wsEndpoint(baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
		// already a websocket URL
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/api/chat"
	return parsed.String(), nil
}
