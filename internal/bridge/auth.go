package bridge

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnauthorized is returned for a bad bridge token.
var ErrUnauthorized = errors.New("unauthorized")

// HashToken returns the bcrypt hash to put in bridge_token_hash.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("empty token")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing token: %w", err)
	}
	return string(hash), nil
}

// VerifyToken checks token against hash. An empty hash accepts any token.
func VerifyToken(hash, token string) error {
	if hash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return ErrUnauthorized
	}
	return nil
}
