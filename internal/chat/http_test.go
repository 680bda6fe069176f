package chat_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/marcelolino/seucodigo-chat/internal/chat"
	"github.com/marcelolino/seucodigo-chat/internal/storage"
)

func newAPIServer(t *testing.T) (*storage.Store, *httptest.Server) {
	t.Helper()
	store, err := storage.NewStore("sqlite://file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	api := chat.NewAPI(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/api", api.RegisterRoutes)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		_ = store.Close()
	})
	return store, srv
}

func getMessages(t *testing.T, srv *httptest.Server) []chat.Message {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var messages []chat.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&messages))
	return messages
}

func TestListMessagesEmpty(t *testing.T) {
	req := require.New(t)
	_, srv := newAPIServer(t)

	resp, err := http.Get(srv.URL + "/api/messages")
	req.NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	// an empty log is an empty array, never null
	req.JSONEq("[]", string(body))
}

func TestListMessagesOrderedAndStable(t *testing.T) {
	req := require.New(t)
	store, srv := newAPIServer(t)
	ctx := context.Background()

	_, err := store.Append(ctx, nil, "first question", false)
	req.NoError(err)
	_, err = store.Append(ctx, lo.ToPtr(int64(3)), "operator reply", true)
	req.NoError(err)

	first := getMessages(t, srv)
	req.Len(first, 2)
	req.Equal("first question", first[0].Content)
	req.True(first[1].IsAdmin)
	req.Greater(first[1].ID, first[0].ID)

	second := getMessages(t, srv)
	req.Equal(first, second, "reads do not mutate the log")
}

func TestMarkReadEndpoint(t *testing.T) {
	req := require.New(t)
	store, srv := newAPIServer(t)

	msg, err := store.Append(context.Background(), nil, "unread", false)
	req.NoError(err)

	markRead := func(id string) int {
		resp, err := http.Post(srv.URL+"/api/messages/"+id+"/read", "application/json", nil)
		req.NoError(err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	req.Equal(http.StatusNoContent, markRead(strconv.FormatInt(msg.ID, 10)))
	req.True(getMessages(t, srv)[0].Read)

	// idempotent, and unknown ids succeed silently
	req.Equal(http.StatusNoContent, markRead(strconv.FormatInt(msg.ID, 10)))
	req.Equal(http.StatusNoContent, markRead("99999"))

	req.Equal(http.StatusBadRequest, markRead("not-a-number"))
}
