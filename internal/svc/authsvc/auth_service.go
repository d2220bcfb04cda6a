package authsvc

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/housing-portal/internal/domain"
	"github.com/mkrupp/housing-portal/internal/infra/logging"
	"github.com/mkrupp/housing-portal/internal/repo/user"
)

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	// BcryptCost is the bcrypt work factor for password verifiers
	BcryptCost int `env:"BCRYPT_COST" default:"10"`
}

// AuthService provides user registration, login and session handling.
// Passwords are stored only as bcrypt verifiers; the raw password never
// survives the call it arrives in.
type AuthService struct {
	Config   AuthConfig
	UserRepo user.Repository
	Sessions *SessionStore
	Log      logging.Logger
}

// NewAuthService creates a new AuthService on the given user repository.
func NewAuthService(userRepo user.Repository, cfg AuthConfig) *AuthService {
	return &AuthService{
		Config:   cfg,
		UserRepo: userRepo,
		Sessions: NewSessionStore(),
		Log:      logging.GetLogger("svc.authsvc.auth_service"),
	}
}

// Register creates a new user account with the given username and password
// and returns the new user's id.
// Returns domain.ErrUserAlreadyExists if the username is taken.
func (s *AuthService) Register(ctx context.Context, username, password string) (userID int64, err error) {
	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "register user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered", "userID", userID)
		}
	}()

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.Config.BcryptCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	userID, err = s.UserRepo.CreateUser(ctx, username, passwordHash)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}

	return userID, nil
}

// Login authenticates a user and binds a new session.
// Unknown usernames and wrong passwords both return
// domain.ErrInvalidCredentials, without distinguishing the two.
func (s *AuthService) Login(ctx context.Context, username, password string) (_ domain.Session, err error) {
	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}()

	account, ok, err := s.UserRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Session{}, errors.Join(domain.ErrInvalidCredentials, err)
		}

		return domain.Session{}, fmt.Errorf("get user: %w", err)
	} else if !ok {
		return domain.Session{}, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return domain.Session{}, errors.Join(domain.ErrInvalidCredentials, err)
	}

	session, err := s.Sessions.Bind(account.ID, account.Username)
	if err != nil {
		return domain.Session{}, fmt.Errorf("bind session: %w", err)
	}

	return session, nil
}

// Authenticate resolves a session token to its identity.
// Implements the transport layer's SessionResolver.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Session, bool) {
	return s.Sessions.Resolve(token)
}

// Logout destroys the session bound to the given token.
func (s *AuthService) Logout(ctx context.Context, token string) {
	s.Sessions.Clear(token)
	s.Log.DebugContext(ctx, "session cleared")
}
