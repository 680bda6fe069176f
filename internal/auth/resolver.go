package auth

import (
	"context"
	"strings"
	"time"

	"github.com/marcelolino/seucodigo-chat/internal/chat"
	"github.com/marcelolino/seucodigo-chat/internal/storage"
)

// Resolver maps session tokens to identities using the users/sessions
// tables written by the site's auth layer. It is a pure lookup: no side
// effects, no retries. A failed lookup is terminal for that handshake.
type Resolver struct {
	store *storage.Store
}

func NewResolver(store *storage.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the identity behind token, or nil when the token is
// absent or unknown; the caller then proceeds with an anonymous visitor,
// since the chat widget must work without a login. An expired session is
// the one explicit rejection and yields ErrAuthenticationDeclined.
func (r *Resolver) Resolve(ctx context.Context, token string) (*chat.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	sess, err := r.store.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if time.Now().After(sess.ExpiresAt) {
		return nil, chat.ErrAuthenticationDeclined
	}
	user, err := r.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return &chat.Identity{UserID: user.ID, IsAdmin: user.IsAdmin}, nil
}
