package authsvc

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkrupp/housing-portal/internal/domain"
	"github.com/mkrupp/housing-portal/internal/util/encoding"
)

// SessionStore holds the ephemeral token-to-identity mapping for all
// authenticated users. Tokens are random and opaque; the mapping lives only in
// memory and every binding is destroyed on logout.
type SessionStore struct {
	m        sync.RWMutex
	sessions map[string]domain.Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
	}
}

// Bind creates a new session for the given identity and returns it.
func (store *SessionStore) Bind(userID int64, username string) (domain.Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return domain.Session{}, fmt.Errorf("new session token: %w", err)
	}

	session := domain.Session{
		Token:     token,
		UserID:    userID,
		Username:  username,
		CreatedAt: time.Now().Unix(),
	}

	store.m.Lock()
	defer store.m.Unlock()

	store.sessions[token] = session

	return session, nil
}

// Resolve maps a token back to its session.
// Returns the session and whether the token is currently bound.
func (store *SessionStore) Resolve(token string) (domain.Session, bool) {
	store.m.RLock()
	defer store.m.RUnlock()

	session, ok := store.sessions[token]

	return session, ok
}

// Clear destroys the binding for the given token. Clearing an unknown token
// is a no-op.
func (store *SessionStore) Clear(token string) {
	store.m.Lock()
	defer store.m.Unlock()

	delete(store.sessions, token)
}

// newSessionToken returns an unguessable token with no embedded meaning:
// 128 bits of randomness in Crockford Base32.
func newSessionToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("new uuid: %w", err)
	}

	return encoding.EncodeCrockfordB32LC(id[:]), nil
}
