package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"archtrack/internal/models"
)

// hashPassword returns "salt$digest" with a random 16-byte salt.
func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	digest := sha256.Sum256(append(salt, []byte(password)...))
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(digest[:]), nil
}

func verifyPassword(stored, password string) bool {
	saltHex, digestHex, ok := strings.Cut(stored, "$")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(digestHex)
	if err != nil {
		return false
	}
	got := sha256.Sum256(append(salt, []byte(password)...))
	return subtle.ConstantTimeCompare(got[:], want) == 1
}

// newToken mints an opaque bearer token.
func newToken() string {
	return uuid.NewString()
}

type sessionKey struct{}

// sessionFrom returns the authenticated session stored by requireAuth.
func sessionFrom(ctx context.Context) models.Session {
	sess, _ := ctx.Value(sessionKey{}).(models.Session)
	return sess
}

// requireAuth resolves the bearer token to a session and stores it on the
// request context. Missing or unknown tokens get 401.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		user, err := s.db.GetSessionUser(token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("session lookup failed: %v", err))
			return
		}
		if user == nil || !user.IsActive {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		sess := sessionForUser(user)
		sess.Token = token
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}
