package chat

// Frame types exchanged over the websocket, one JSON object per frame.
const (
	// client -> server
	FrameAuthenticate = "authenticate"
	FrameMessage      = "message"

	// server -> client
	FrameAuthenticated = "authenticated"
	FrameError         = "error"
	FrameSystem        = "system"
)

// Frame is the JSON envelope for every websocket frame. Which fields are
// set depends on Type.
type Frame struct {
	Type string `json:"type"`

	// authenticate: session token issued by the site's auth layer. Absent
	// or empty means the client explicitly connects as an anonymous
	// visitor. A client-supplied userId on this frame is never trusted
	// and therefore not modeled.
	Token string `json:"token,omitempty"`

	// message (inbound): content plus the advisory isAdmin flag, which the
	// server always overrides with the connection's registered identity.
	// UserID optionally addresses a visitor conversation and is honored
	// only on admin connections.
	Content string `json:"content,omitempty"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
	UserID  *int64 `json:"userId,omitempty"`

	// message (outbound): the persisted record as routed by the server.
	Message *Message `json:"message,omitempty"`

	// error / system
	Error string `json:"error,omitempty"`
	Body  string `json:"body,omitempty"`
}
