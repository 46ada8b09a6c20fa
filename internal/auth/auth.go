// Package auth protects the admin area with HTTP basic authentication.
// Passwords are checked against a bcrypt hash from configuration.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const realm = `Basic realm="blog admin", charset="UTF-8"`

type BasicAuth struct {
	username     string
	passwordHash []byte
	logger       *slog.Logger
}

func NewBasicAuth(username, passwordHash string, logger *slog.Logger) *BasicAuth {
	return &BasicAuth{
		username:     username,
		passwordHash: []byte(passwordHash),
		logger:       logger,
	}
}

// Authenticate reports whether the credentials match. An empty configured
// hash denies everyone.
func (a *BasicAuth) Authenticate(username, password string) bool {
	if len(a.passwordHash) == 0 {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil

	return userOK && passOK
}

func (a *BasicAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || !a.Authenticate(username, password) {
			if ok {
				a.logger.Warn("Admin authentication failed",
					"username", username,
					"path", r.URL.Path)
			}
			w.Header().Set("WWW-Authenticate", realm)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashPassword returns a bcrypt hash suitable for admin.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
