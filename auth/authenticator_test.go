package auth

import (
	"context"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

type stubUserStore struct {
	users map[string]*domain.User
	err   error
}

func (s *stubUserStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users[email], nil
}

func storeWithAlice(t *testing.T) *stubUserStore {
	t.Helper()
	hash, err := HashPassword("secret1!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &stubUserStore{users: map[string]*domain.User{
		"alice@example.com": {
			ID:           "u-alice",
			Email:        "alice@example.com",
			Name:         "Alice",
			Role:         domain.RoleUser,
			PasswordHash: hash,
		},
	}}
}

func TestAuthenticateSuccess(t *testing.T) {
	a := NewAuthenticator(storeWithAlice(t), log.New())

	id, err := a.Authenticate(context.Background(), "alice@example.com", "secret1!")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.ID != "u-alice" || id.Email != "alice@example.com" || id.Name != "Alice" || id.Role != domain.RoleUser {
		t.Fatalf("unexpected identity: %#v", id)
	}
}

func TestAuthenticateNormalizesEmail(t *testing.T) {
	a := NewAuthenticator(storeWithAlice(t), log.New())

	id, err := a.Authenticate(context.Background(), "  Alice@Example.COM ", "secret1!")
	if err != nil {
		t.Fatalf("authenticate with cased email: %v", err)
	}
	if id.ID != "u-alice" {
		t.Fatalf("unexpected identity: %#v", id)
	}
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	store := storeWithAlice(t)
	store.users["nohash@example.com"] = &domain.User{ID: "u-nohash", Email: "nohash@example.com"}
	a := NewAuthenticator(store, log.New())

	cases := map[string]struct {
		email    string
		password string
	}{
		"unknown_email":  {"bob@example.com", "secret1!"},
		"wrong_password": {"alice@example.com", "wrong"},
		"no_hash":        {"nohash@example.com", "secret1!"},
		"empty_password": {"alice@example.com", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Authenticate(context.Background(), tc.email, tc.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthenticateStorageFailure(t *testing.T) {
	a := NewAuthenticator(&stubUserStore{err: errors.New("table offline")}, log.New())

	_, err := a.Authenticate(context.Background(), "alice@example.com", "secret1!")
	if !errors.Is(err, ErrAuthUnavailable) {
		t.Fatalf("expected ErrAuthUnavailable, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("storage failure must not look like a credential failure")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}
