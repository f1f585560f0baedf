package hash

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyPassword = errors.New("hash: empty password")

// dummy is compared against when no user matches so that unknown emails cost
// the same bcrypt work as wrong passwords.
var dummy, _ = bcrypt.GenerateFromPassword([]byte("registry-portal-dummy"), bcrypt.DefaultCost)

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Burn runs one comparison against a throwaway hash.
func Burn(password string) {
	_ = bcrypt.CompareHashAndPassword(dummy, []byte(password))
}
