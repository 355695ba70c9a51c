package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// SessionMaxAge bounds how long an issued token stays valid.
	SessionMaxAge = 30 * 24 * time.Hour

	// renewWithin is the remaining lifetime under which Renew reissues.
	renewWithin = 24 * time.Hour
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and unusable claims.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrTokenExpired indicates a well-signed token past its expiry.
	ErrTokenExpired = errors.New("session token expired")
)

// Claims is the decoded, time-bounded session payload.
type Claims struct {
	UserID    string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Sessions issues and validates signed session tokens. The signing secret is
// process-wide and read-only after construction; rotating it invalidates all
// outstanding tokens.
type Sessions struct {
	secret []byte
	maxAge time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

// NewSessions creates a session issuer around the given HS256 secret.
func NewSessions(secret []byte) *Sessions {
	if len(secret) == 0 {
		panic("auth.NewSessions: empty signing secret")
	}
	return &Sessions{
		secret: secret,
		maxAge: SessionMaxAge,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation()),
		now:    time.Now,
	}
}

// Issue mints a signed token for the identity, valid for SessionMaxAge.
func (s *Sessions) Issue(id Identity) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  id.ID,
		"role": id.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.maxAge).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies the signature first, then checks expiry, so the two failure
// modes stay distinguishable. It never panics on malformed input.
func (s *Sessions) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := s.parser.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, ok := mc["sub"].(string)
	if !ok || sub == "" {
		return nil, ErrInvalidToken
	}
	role, _ := mc["role"].(string)
	iat, ok := numericClaim(mc, "iat")
	if !ok {
		return nil, ErrInvalidToken
	}
	exp, ok := numericClaim(mc, "exp")
	if !ok {
		return nil, ErrInvalidToken
	}

	claims := &Claims{
		UserID:    sub,
		Role:      role,
		IssuedAt:  time.Unix(iat, 0),
		ExpiresAt: time.Unix(exp, 0),
	}
	if !s.now().Before(claims.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// Renew reissues the token with a fresh expiry when its remaining lifetime has
// dropped below the renewal window. Tokens outside the window, or ones that do
// not parse, come back unchanged.
func (s *Sessions) Renew(token string) (string, bool) {
	claims, err := s.Parse(token)
	if err != nil {
		return token, false
	}
	if claims.ExpiresAt.Sub(s.now()) >= renewWithin {
		return token, false
	}
	fresh, err := s.Issue(Identity{ID: claims.UserID, Role: claims.Role})
	if err != nil {
		return token, false
	}
	return fresh, true
}

func numericClaim(mc jwt.MapClaims, name string) (int64, bool) {
	switch v := mc[name].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}
