package security

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashAccessPassword hashes a plain text password with bcrypt. Used by ops
// tooling to generate an ADMIN_PASSWORD value that never ships in plain text.
func HashAccessPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyAccessPassword compares a submitted password against the configured
// one. A configured value with a bcrypt prefix is treated as a hash;
// anything else is compared in constant time. Input is trimmed, the
// configured value is taken as-is.
func VerifyAccessPassword(configured, input string) bool {
	if configured == "" {
		return false
	}

	input = strings.TrimSpace(input)

	if isBcryptHash(configured) {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(input)) == nil
	}

	return subtle.ConstantTimeCompare([]byte(configured), []byte(input)) == 1
}

func isBcryptHash(v string) bool {
	return strings.HasPrefix(v, "$2a$") || strings.HasPrefix(v, "$2b$") || strings.HasPrefix(v, "$2y$")
}
