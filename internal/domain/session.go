package domain

import "errors"

// ErrUnauthenticated is returned when an operation requires an identity
// but the request carries no valid session token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Session is the ephemeral mapping of an opaque token to a user identity.
// It lives only in the session store and is destroyed on logout.
type Session struct {
	Token     string // Opaque, unguessable, carries no embedded meaning
	UserID    int64
	Username  string
	CreatedAt int64 // Unix timestamp
}

// SessionTokenResponse represents a login response carrying the session token.
type SessionTokenResponse struct {
	Token string `json:"token"`
}
