package auth

import (
	"time"

	"taskboard-api/domain"
)

// Decision is the outcome of an ownership check.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyNotFound
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	case DenyNotFound:
		return "not_found"
	case DenyForbidden:
		return "forbidden"
	}
	return "unknown"
}

// AuthorizeTaskAccess decides whether the session may act on the task. The
// session is checked before task existence: a missing or expired session is
// always unauthenticated, a missing task is not-found, and a task owned by
// someone else is forbidden. Role carries no weight here; ownership is the
// only rule.
func AuthorizeTaskAccess(claims *Claims, task *domain.Task) Decision {
	if claims == nil || claims.UserID == "" || !time.Now().Before(claims.ExpiresAt) {
		return DenyUnauthenticated
	}
	if task == nil {
		return DenyNotFound
	}
	if task.AssigneeID != claims.UserID {
		return DenyForbidden
	}
	return Allow
}
