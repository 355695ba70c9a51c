package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var errEmptyPassword = errors.New("password must not be empty")

// HashPassword derives a salted bcrypt digest from the plaintext. The salt and
// cost parameters are embedded in the digest, so verification needs nothing
// beyond the digest itself.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", errEmptyPassword
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword reports whether plain matches digest. Malformed digests count
// as a mismatch rather than an error.
func VerifyPassword(plain, digest string) bool {
	if plain == "" || digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
