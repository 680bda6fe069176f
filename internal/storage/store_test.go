package storage

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/marcelolino/seucodigo-chat/internal/chat"
)

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ctx := context.Background()

	var lastID int64
	var lastCreated time.Time
	for i := 0; i < 20; i++ {
		msg, err := store.Append(ctx, nil, "hello", false)
		req.NoError(err)
		req.Greater(msg.ID, lastID, "ids must be strictly increasing")
		req.False(msg.CreatedAt.Before(lastCreated), "createdAt must be non-decreasing")
		lastID = msg.ID
		lastCreated = msg.CreatedAt
	}
}

func TestAppendRejectsEmptyContent(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, nil, "", false)
	req.ErrorIs(err, chat.ErrEmptyContent)
	_, err = store.Append(ctx, nil, "   \t\n", true)
	req.ErrorIs(err, chat.ErrEmptyContent)

	messages, err := store.ListAll(ctx)
	req.NoError(err)
	req.Empty(messages)
}

func TestListAllOrderAndIdempotence(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, lo.ToPtr(int64(3)), "first", false)
	req.NoError(err)
	_, err = store.Append(ctx, lo.ToPtr(int64(3)), "reply", true)
	req.NoError(err)
	_, err = store.Append(ctx, nil, "anon question", false)
	req.NoError(err)

	first, err := store.ListAll(ctx)
	req.NoError(err)
	req.Len(first, 3)
	for i := 1; i < len(first); i++ {
		req.False(first[i].CreatedAt.Before(first[i-1].CreatedAt))
		req.Greater(first[i].ID, first[i-1].ID)
	}
	req.Equal("first", first[0].Content)
	req.Nil(first[2].SenderID)
	req.Equal(int64(3), *first[1].SenderID)

	// a second read with no intervening append is identical
	second, err := store.ListAll(ctx)
	req.NoError(err)
	req.Equal(first, second)
}

func TestMarkReadIsIdempotentAndSilent(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ctx := context.Background()

	msg, err := store.Append(ctx, nil, "unread", false)
	req.NoError(err)
	req.False(msg.Read)

	req.NoError(store.MarkRead(ctx, msg.ID))
	req.NoError(store.MarkRead(ctx, msg.ID))
	// unknown ids fail silently: mark-read loss is acceptable
	req.NoError(store.MarkRead(ctx, 99999))

	messages, err := store.ListAll(ctx)
	req.NoError(err)
	req.True(messages[0].Read)
	// the rest of the record is untouched
	req.Equal(msg.Content, messages[0].Content)
	req.Equal(msg.ID, messages[0].ID)
}

func TestUserAndSessionLookups(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateUser(ctx, "marcelo", []byte("hash"), true)
	req.NoError(err)
	req.Positive(id)
	_, err = store.CreateUser(ctx, "marcelo", []byte("hash2"), false)
	req.ErrorIs(err, ErrUserExists)

	user, err := store.GetUserByID(ctx, id)
	req.NoError(err)
	req.NotNil(user)
	req.True(user.IsAdmin)

	missing, err := store.GetUserByID(ctx, id+1)
	req.NoError(err)
	req.Nil(missing)

	expires := time.Now().Add(time.Hour)
	req.NoError(store.CreateSession(ctx, id, "token123", expires))
	sess, err := store.GetSession(ctx, "token123")
	req.NoError(err)
	req.NotNil(sess)
	req.Equal(id, sess.UserID)

	none, err := store.GetSession(ctx, "nope")
	req.NoError(err)
	req.Nil(none)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("sqlite://file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
