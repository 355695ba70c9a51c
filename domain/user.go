package domain

// RoleUser is the default role assigned at registration. The role is carried
// on the session but does not grant extra task access.
const RoleUser = "USER"

// User is an account record. Email is stored normalized (lowercased, trimmed)
// and unique. PasswordHash is never serialized.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"`
	CreatedAt    int64  `json:"createdAt"`
}

// UserSummary is the externally visible projection of a user.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// Summary strips the credential fields for API responses.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}
