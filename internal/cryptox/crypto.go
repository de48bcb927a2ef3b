// Package cryptox hashes and checks the enrollment key that devices present
// to obtain an access token.
package cryptox

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyKey is returned when hashing an empty enrollment key.
var ErrEmptyKey = errors.New("enrollment key is empty")

// HashEnrollmentKey returns the bcrypt hash of key, suitable for the server's
// enrollment_key_hash setting.
func HashEnrollmentKey(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash enrollment key: %w", err)
	}
	return string(hash), nil
}

// CheckEnrollmentKey reports whether key matches hash. A malformed hash
// never matches.
func CheckEnrollmentKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
