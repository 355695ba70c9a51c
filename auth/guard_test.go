package auth

import (
	"testing"
	"time"

	"taskboard-api/domain"
)

func validClaims(userID string) *Claims {
	now := time.Now()
	return &Claims{
		UserID:    userID,
		Role:      domain.RoleUser,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestAuthorizeTaskAccess(t *testing.T) {
	task := &domain.Task{ID: "t-1", AssigneeID: "u-alice"}

	cases := map[string]struct {
		claims *Claims
		task   *domain.Task
		want   Decision
	}{
		"owner_allowed":      {validClaims("u-alice"), task, Allow},
		"other_forbidden":    {validClaims("u-bob"), task, DenyForbidden},
		"missing_task":       {validClaims("u-alice"), nil, DenyNotFound},
		"no_session":         {nil, task, DenyUnauthenticated},
		"no_session_no_task": {nil, nil, DenyUnauthenticated},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := AuthorizeTaskAccess(tc.claims, tc.task); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestAuthorizeTaskAccessExpiredSession(t *testing.T) {
	expired := &Claims{
		UserID:    "u-alice",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	task := &domain.Task{ID: "t-1", AssigneeID: "u-alice"}
	if got := AuthorizeTaskAccess(expired, task); got != DenyUnauthenticated {
		t.Fatalf("expected DenyUnauthenticated for expired session, got %v", got)
	}
}

func TestAuthorizeTaskAccessIgnoresRole(t *testing.T) {
	admin := validClaims("u-bob")
	admin.Role = "ADMIN"
	task := &domain.Task{ID: "t-1", AssigneeID: "u-alice"}
	if got := AuthorizeTaskAccess(admin, task); got != DenyForbidden {
		t.Fatalf("role must not bypass ownership, got %v", got)
	}
}
