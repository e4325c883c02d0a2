// Package authmw guards the chat route with an optional shared-secret bearer
// token, for deployments where only a known frontend may call the API.
package authmw

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

const scheme = "bearer "

// Unauthorized is the client-facing message for every rejected request.
const Unauthorized = "Unauthorized."

// BearerToken returns middleware requiring "Authorization: Bearer <token>".
// The scheme is matched case-insensitively and the token in constant time.
// Rejections use the same JSON error envelope as the chat API.
func BearerToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if len(auth) <= len(scheme) || !strings.EqualFold(auth[:len(scheme)], scheme) {
				reject(w, `Bearer realm="ethicamind"`)
				return
			}

			got := []byte(strings.TrimSpace(auth[len(scheme):]))
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				reject(w, `Bearer realm="ethicamind", error="invalid_token"`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Optional returns BearerToken(token), or a pass-through when token is empty.
func Optional(token string) func(http.Handler) http.Handler {
	if token == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	return BearerToken(token)
}

func reject(w http.ResponseWriter, challenge string) {
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"type":    "error",
		"message": Unauthorized,
	})
}
