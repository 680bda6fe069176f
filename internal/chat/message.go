package chat

import (
	"context"
	"time"
)

// Message is one persisted entry of the support-chat log. SenderID holds
// the conversation's user id for both directions: for visitor messages it
// is the sender, for admin replies it is the addressed visitor. It is nil
// for the shared anonymous thread.
type Message struct {
	ID        int64     `json:"id"`
	SenderID  *int64    `json:"senderId"`
	Content   string    `json:"content"`
	IsAdmin   bool      `json:"isAdmin"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Identity is the resolved user behind an authenticated connection.
type Identity struct {
	UserID  int64
	IsAdmin bool
}

// MessageStore is the durable append-only log consumed by the hub and the
// HTTP API. Append assigns id and createdAt; existing entries are never
// reordered. MarkRead is idempotent and silently ignores unknown ids.
type MessageStore interface {
	Append(ctx context.Context, senderID *int64, content string, isAdmin bool) (Message, error)
	ListAll(ctx context.Context) ([]Message, error)
	MarkRead(ctx context.Context, id int64) error
}

// IdentityResolver maps a transport-level token to an identity. A nil
// identity with a nil error means the token did not resolve and the
// connection proceeds as an anonymous visitor. ErrAuthenticationDeclined
// is the only explicit rejection.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}
