package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

var (
	// ErrInvalidCredentials covers every credential failure: unknown email,
	// account without a usable hash, or wrong password. Callers must not be
	// able to tell which one occurred.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAuthUnavailable indicates the credential store could not be reached.
	// Distinct from ErrInvalidCredentials so callers can retry, but presented
	// identically to clients.
	ErrAuthUnavailable = errors.New("authentication unavailable")
)

// UserStore is the credential lookup the authenticator depends on. A nil user
// with a nil error means the email is not registered.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Identity is the verified subject produced by a successful authentication.
// It never carries the password hash.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// Authenticator validates email/password pairs against the credential store.
type Authenticator struct {
	users UserStore
	log   *log.Logger
}

// NewAuthenticator creates an Authenticator backed by the given store.
func NewAuthenticator(users UserStore, logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Authenticator{users: users, log: logger}
}

// NormalizeEmail lowercases and trims an address the way registration stores
// it, so sign-in is insensitive to case and surrounding whitespace.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate verifies the credentials and returns the account identity.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	addr := NormalizeEmail(email)
	if addr == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}

	user, err := a.users.GetUserByEmail(ctx, addr)
	if err != nil {
		a.log.WithFields(log.Fields{"op": "authenticate", "email": addr}).
			WithError(err).Error("credential lookup failed")
		return Identity{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	if user == nil || user.PasswordHash == "" {
		a.log.WithFields(log.Fields{"op": "authenticate", "email": addr}).
			Debug("unknown account or no usable password")
		return Identity{}, ErrInvalidCredentials
	}
	if !VerifyPassword(password, user.PasswordHash) {
		a.log.WithFields(log.Fields{"op": "authenticate", "user": user.ID}).
			Debug("password mismatch")
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}, nil
}
