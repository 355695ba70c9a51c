package api

import (
	"context"

	"taskboard-api/auth"
	"taskboard-api/domain"
)

const bodyMaxSize = 64 * 1024 // 64 KiB

// Store is the persistence surface the handlers depend on.
type Store interface {
	CreateUser(ctx context.Context, u domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	InsertTask(ctx context.Context, t domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error)
	UpdateTask(ctx context.Context, ownerID, id string, patch domain.TaskPatch, updatedAt int64) error
	DeleteTask(ctx context.Context, ownerID, id string) error
	PublishTaskEvent(ctx context.Context, ev domain.TaskEvent) error
}

// Sessions is the token issuer consumed by the handlers and the session
// middleware.
type Sessions interface {
	Issue(id auth.Identity) (string, error)
	Parse(token string) (*auth.Claims, error)
	Renew(token string) (string, bool)
}

// Authenticator verifies email/password credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (auth.Identity, error)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type sessionResponse struct {
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expiresAt"`
}

type dashboardResponse struct {
	Stats  domain.TaskStats `json:"stats"`
	Recent []domain.Task    `json:"recent"`
}
