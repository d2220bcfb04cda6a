package authsvc_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/housing-portal/internal/svc/authsvc"
)

func TestSessionStore_BindResolveClear(t *testing.T) {
	t.Parallel()

	store := authsvc.NewSessionStore()

	session, err := store.Bind(1, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	assert.Equal(t, int64(1), session.UserID)
	assert.Equal(t, "alice", session.Username)

	resolved, ok := store.Resolve(session.Token)
	require.True(t, ok)
	assert.Equal(t, session, resolved)

	store.Clear(session.Token)

	_, ok = store.Resolve(session.Token)
	assert.False(t, ok, "cleared tokens must not resolve")

	// clearing again is a no-op
	store.Clear(session.Token)
}

func TestSessionStore_TokensAreUnique(t *testing.T) {
	t.Parallel()

	store := authsvc.NewSessionStore()
	seen := make(map[string]bool)

	for range 64 {
		session, err := store.Bind(1, "alice")
		require.NoError(t, err)
		assert.False(t, seen[session.Token])
		seen[session.Token] = true
	}
}

func TestSessionStore_Concurrent(t *testing.T) {
	t.Parallel()

	store := authsvc.NewSessionStore()

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)

		go func(userID int64) {
			defer wg.Done()

			session, err := store.Bind(userID, "user")
			assert.NoError(t, err)

			resolved, ok := store.Resolve(session.Token)
			assert.True(t, ok)
			assert.Equal(t, userID, resolved.UserID)

			store.Clear(session.Token)
		}(int64(i))
	}

	wg.Wait()
}

func TestSessionStore_UnknownToken(t *testing.T) {
	t.Parallel()

	store := authsvc.NewSessionStore()

	_, ok := store.Resolve("no-such-token")
	assert.False(t, ok)
}
