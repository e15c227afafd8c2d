// internal/auth/token.go
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed token hash")

// HashToken generates a salted Argon2id hash of an admin token, encoded as
// "<salt>$<hash>" in base64.
func HashToken(token string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(token), salt, 1, 64*1024, 4, 32)

	return base64.StdEncoding.EncodeToString(salt) + "$" + base64.StdEncoding.EncodeToString(hash), nil
}

// VerifyToken compares a token with an encoded hash from HashToken.
func VerifyToken(token, encoded string) (bool, error) {
	saltPart, hashPart, ok := strings.Cut(encoded, "$")
	if !ok {
		return false, ErrMalformedHash
	}

	salt, err := base64.StdEncoding.DecodeString(saltPart)
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}

	hash, err := base64.StdEncoding.DecodeString(hashPart)
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}

	comparison := argon2.IDKey([]byte(token), salt, 1, 64*1024, 4, 32)

	return subtle.ConstantTimeCompare(hash, comparison) == 1, nil
}

// Middleware requires "Authorization: Bearer <token>" matching encodedHash.
// An empty encodedHash disables the check.
func Middleware(encodedHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if encodedHash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			valid, err := VerifyToken(token, encodedHash)
			if err != nil || !valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
