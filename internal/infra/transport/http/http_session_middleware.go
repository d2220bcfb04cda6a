package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/mkrupp/housing-portal/internal/domain"
	context_ "github.com/mkrupp/housing-portal/internal/infra/context"
	"github.com/mkrupp/housing-portal/internal/infra/logging"
)

const (
	// AuthorizationHeader carries the session token for API clients.
	AuthorizationHeader = "Authorization"
	// SessionCookieName carries the session token for browser clients.
	SessionCookieName = "session_token"
	// LoginPath is where unauthenticated browser clients are redirected.
	LoginPath = "/auth/login"
)

// SessionResolver maps an opaque session token back to the identity it was
// bound to at login.
type SessionResolver interface {
	// Authenticate resolves the token to its session.
	// Returns the session and whether the token is currently bound.
	Authenticate(ctx context.Context, token string) (domain.Session, bool)
}

// SessionMiddleware creates middleware that resolves the request's session
// token before any handler state is touched. The token is read from the
// Authorization header (Bearer scheme) or the session cookie. Requests
// without a valid token are rejected: API clients get 401, browser clients
// are redirected to the login page. On success the session is added to the
// request context.
func SessionMiddleware(
	next http.Handler,
	sessions SessionResolver,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, fromHeader := sessionToken(r)
		if token == "" {
			log.WarnContext(r.Context(), "no session token provided")
			rejectUnauthenticated(w, r, fromHeader)

			return
		}

		session, ok := sessions.Authenticate(r.Context(), token)
		if !ok {
			log.WarnContext(r.Context(), "invalid session token")
			rejectUnauthenticated(w, r, fromHeader)

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithSession(r.Context(), session)))
	})
}

func sessionToken(r *http.Request) (token string, fromHeader bool) {
	if authHeader := r.Header.Get(AuthorizationHeader); authHeader != "" {
		token, _ = strings.CutPrefix(authHeader, "Bearer")

		return strings.TrimSpace(token), true
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value, false
	}

	return "", false
}

func rejectUnauthenticated(w http.ResponseWriter, r *http.Request, api bool) {
	if api {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

		return
	}

	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}
