package authsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mkrupp/housing-portal/internal/domain"
	"github.com/mkrupp/housing-portal/internal/infra/logging"
	http_ "github.com/mkrupp/housing-portal/internal/infra/transport/http"
)

var (
	// ErrNoUsername is returned when the username is missing from the request.
	ErrNoUsername = errors.New("no username")
	// ErrNoPassword is returned when the password is missing from the request.
	ErrNoPassword = errors.New("no password")
)

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	// SessionCookieMaxAge is the Max-Age in seconds of the session cookie
	SessionCookieMaxAge int `env:"SESSION_COOKIE_MAX_AGE" default:"3600"`
}

// HTTPTransport handles HTTP requests for the authentication service.
// It provides endpoints for user registration, login, and logout.
type HTTPTransport struct {
	authSvc *AuthService
	log     logging.Logger
	cfg     HTTPTransportConfig
}

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
// It requires an AuthService for handling authentication operations.
func NewHTTPTransport(
	authSvc *AuthService,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	return &HTTPTransport{
		authSvc: authSvc,
		log:     logging.GetLogger("svc.authsvc.http_transport"),
		cfg:     cfg,
	}
}

// ServeHTTP implements http.Handler and sets up routes for the auth service endpoints:
// - POST /auth/register: Register a new user
// - POST /auth/login: Login and receive a session token
// - POST /auth/logout: Destroy the current session.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", ht.HandleRegister)
	mux.HandleFunc("POST /auth/login", ht.HandleLogin)
	mux.HandleFunc("POST /auth/logout", ht.HandleLogout)
	mux.ServeHTTP(w, r)
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// HandleRegister processes user registration requests.
// Expects form parameters: username, password.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}(r.Context())

	username, password, err := credentials(w, r)
	if err != nil {
		return err
	}

	log = log.With(logging.Group("user", "username", username))

	if _, err := ht.authSvc.Register(r.Context(), username, password); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			http.Error(w, "username already exists", http.StatusConflict)
		} else {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}

		return fmt.Errorf("register user: %w", err)
	}

	w.WriteHeader(http.StatusCreated)

	return nil
}

// HandleLogin processes user login requests.
// Expects form parameters: username, password.
// Returns the session token as JSON and sets the session cookie.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user login failed", "error", err)
		} else {
			log.DebugContext(ctx, "user logged in")
		}
	}(r.Context())

	username, password, err := credentials(w, r)
	if err != nil {
		return err
	}

	log = log.With(logging.Group("user", "username", username))

	session, err := ht.authSvc.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
		} else {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}

		return fmt.Errorf("login user: %w", err)
	}

	http.SetCookie(w, &http.Cookie{ //nolint:exhaustruct
		Name:     http_.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   ht.cfg.SessionCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if err := json.NewEncoder(w).Encode(domain.SessionTokenResponse{Token: session.Token}); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

// HandleLogout destroys the session identified by the request's token and
// clears the session cookie. Logout without a token is a no-op success.
func (ht *HTTPTransport) HandleLogout(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogout(w, r)
}

func (ht *HTTPTransport) handleLogout(w http.ResponseWriter, r *http.Request) error {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	if token := requestToken(r); token != "" {
		ht.authSvc.Logout(r.Context(), token)
	}

	http.SetCookie(w, &http.Cookie{ //nolint:exhaustruct
		Name:     http_.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, http_.LoginPath, http.StatusSeeOther)
	log.DebugContext(r.Context(), "user logged out")

	return nil
}

func credentials(w http.ResponseWriter, r *http.Request) (username, password string, err error) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return "", "", fmt.Errorf("parse form: %w", err)
	}

	username = r.FormValue("username")
	if username == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return "", "", ErrNoUsername
	}

	password = r.FormValue("password")
	if password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return "", "", ErrNoPassword
	}

	return username, password, nil
}

func requestToken(r *http.Request) string {
	if authHeader := r.Header.Get(http_.AuthorizationHeader); authHeader != "" {
		token, _ := strings.CutPrefix(authHeader, "Bearer")

		return strings.TrimSpace(token)
	}

	if cookie, err := r.Cookie(http_.SessionCookieName); err == nil {
		return cookie.Value
	}

	return ""
}
