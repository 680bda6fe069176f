package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 256

	rateLimitBurst  = 5
	rateLimitWindow = 3 * time.Second
)

// Hub composes the store, resolver, registry and router behind the
// websocket endpoint. One goroutine pair per connection; shared state
// lives in the registry and the store, each guarding its own access.
type Hub struct {
	store    MessageStore
	resolver IdentityResolver
	registry *Registry
	router   *Router
	limiter  *RateLimiter
	metrics  *Metrics
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewHub(store MessageStore, resolver IdentityResolver, metrics *Metrics, log *slog.Logger) *Hub {
	registry := NewRegistry()
	return &Hub{
		store:    store,
		resolver: resolver,
		registry: registry,
		router:   NewRouter(registry),
		limiter:  NewRateLimiter(rateLimitBurst, rateLimitWindow),
		metrics:  metrics,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// the widget is served from the same site; cross-origin
				// policy is enforced upstream by the reverse proxy
				return true
			},
		},
	}
}

// Registry exposes the live-connection registry for read-only callers.
func (h *Hub) Registry() *Registry { return h.registry }

// ServeWS upgrades the request and starts the connection's pumps. The
// connection stays out of the registry until its handshake completes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "err", err)
		return
	}
	conn := newConn(sock)
	h.log.Debug("channel open", "conn", conn.id, "remote", sock.RemoteAddr().String())
	go h.writePump(conn)
	go h.readPump(conn)
}

// broadcast fans a persisted message out to the routed connections.
// Delivery is best-effort and at most once per connection: a consumer
// that cannot keep up is dropped and catches up via the history fetch,
// never via replay.
func (h *Hub) broadcast(msg Message, origin *Conn) {
	payload, err := json.Marshal(Frame{Type: FrameMessage, Message: &msg})
	if err != nil {
		h.log.Error("encode broadcast", "err", err)
		return
	}
	for _, target := range h.router.Route(msg, origin) {
		if !target.trySend(payload) {
			h.log.Warn("dropping slow consumer", "conn", target.id)
			target.closeSend()
		}
	}
	h.metrics.IncBroadcast()
}

func (h *Hub) sendFrame(c *Conn, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.log.Error("encode frame", "err", err, "type", frame.Type)
		return
	}
	_ = c.trySend(payload)
}
