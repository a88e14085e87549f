package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "smartgate/internal/session"
	"smartgate/pkg/platform/sentinel"
	"smartgate/pkg/requestcontext"
)

func TestInMemorySessionStore(t *testing.T) {
	st := NewInMemory()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	sess := &session.Session{ID: "s1", UserID: 3, Role: "RESIDENTE", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, st.Save(ctx, sess))

	found, err := st.Find(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, found.UserID)

	require.NoError(t, st.Touch(ctx, "s1", now.Add(time.Minute)))
	found, err = st.Find(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), found.LastSeenAt)

	later := requestcontext.WithTime(context.Background(), now.Add(time.Hour))
	_, err = st.Find(later, "s1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	assert.ErrorIs(t, st.Touch(ctx, "s1", now), sentinel.ErrNotFound)
	assert.NoError(t, st.Delete(ctx, "missing"))
}
