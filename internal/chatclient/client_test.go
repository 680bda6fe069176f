package chatclient

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/marcelolino/seucodigo-chat/internal/auth"
	"github.com/marcelolino/seucodigo-chat/internal/chat"
	"github.com/marcelolino/seucodigo-chat/internal/storage"
)

func newChatServer(t *testing.T) (*storage.Store, *httptest.Server) {
	t.Helper()
	store, err := storage.NewStore("sqlite://file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := chat.NewHub(store, auth.NewResolver(store), chat.NewMetrics(), log)
	api := chat.NewAPI(store, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		api.RegisterRoutes(r)
		r.Get("/chat", hub.ServeWS)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		_ = store.Close()
	})
	return store, srv
}

func TestDialSendReceive(t *testing.T) {
	req := require.New(t)
	_, srv := newChatServer(t)
	ctx := context.Background()

	handle, err := Dial(ctx, srv.URL, "")
	req.NoError(err)
	defer handle.Close()
	req.Nil(handle.Identity(), "no token means anonymous")

	req.NoError(handle.Send("hello out there"))

	select {
	case msg := <-handle.Messages():
		req.Equal("hello out there", msg.Content)
		req.Positive(msg.ID)
		req.False(msg.IsAdmin)
	case <-time.After(2 * time.Second):
		t.Fatal("echo never arrived")
	}
}

func TestDialWithOperatorToken(t *testing.T) {
	req := require.New(t)
	store, srv := newChatServer(t)
	ctx := context.Background()

	userID, err := store.CreateUser(ctx, "operator", []byte("hash"), true)
	req.NoError(err)
	req.NoError(store.CreateSession(ctx, userID, "tok-op", time.Now().Add(time.Hour)))

	handle, err := Dial(ctx, srv.URL, "tok-op")
	req.NoError(err)
	defer handle.Close()

	identity := handle.Identity()
	req.NotNil(identity)
	req.Equal(userID, identity.UserID)
	req.True(identity.IsAdmin)
}

func TestDialDeclinedOnExpiredToken(t *testing.T) {
	req := require.New(t)
	store, srv := newChatServer(t)
	ctx := context.Background()

	userID, err := store.CreateUser(ctx, "stale", []byte("hash"), false)
	req.NoError(err)
	req.NoError(store.CreateSession(ctx, userID, "tok-stale", time.Now().Add(-time.Minute)))

	handle, err := Dial(ctx, srv.URL, "tok-stale")
	req.ErrorIs(err, chat.ErrAuthenticationDeclined)
	req.Nil(handle)
}

func TestSendValidation(t *testing.T) {
	req := require.New(t)
	_, srv := newChatServer(t)

	handle, err := Dial(context.Background(), srv.URL, "")
	req.NoError(err)

	req.ErrorIs(handle.Send("   "), chat.ErrEmptyContent)

	req.NoError(handle.Close())
	select {
	case <-handle.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("handle never reported closed")
	}
	req.ErrorIs(handle.Send("too late"), chat.ErrNotConnected)
}

func TestHistory(t *testing.T) {
	req := require.New(t)
	store, srv := newChatServer(t)
	ctx := context.Background()

	_, err := store.Append(ctx, nil, "from before", false)
	req.NoError(err)

	messages, err := History(ctx, srv.URL)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("from before", messages[0].Content)
}

func TestWSEndpoint(t *testing.T) {
	req := require.New(t)

	cases := map[string]string{
		"http://localhost:8080":  "ws://localhost:8080/api/chat",
		"https://seucodigo.com":  "wss://seucodigo.com/api/chat",
		"https://seucodigo.com/": "wss://seucodigo.com/api/chat",
		"ws://localhost:8080":    "ws://localhost:8080/api/chat",
	}
	for in, want := range cases {
		got, err := wsEndpoint(in)
		req.NoError(err)
		req.Equal(want, got)
	}

	_, err := wsEndpoint("ftp://nope")
	req.Error(err)
}
