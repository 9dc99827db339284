// Package authmw guards the session API with a static bearer token.
package authmw

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/linnemanlabs/go-core/log"
)

const (
	prefix    = "Bearer "
	challenge = `Bearer realm="reclaim"`
)

// BearerToken returns middleware that requires an Authorization header
// carrying token. Comparison is constant time. Rejections are logged through
// the request-scoped logger and answered with a JSON 401 and a
// WWW-Authenticate challenge.
func BearerToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			if !strings.HasPrefix(auth, prefix) {
				reject(w, r, "missing or malformed authorization header")
				return
			}

			got := []byte(auth[len(prefix):])

			if subtle.ConstantTimeCompare(got, expected) != 1 {
				reject(w, r, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, reason string) {
	log.FromContext(r.Context()).Warn(r.Context(), "api request rejected",
		"reason", reason,
		"method", r.Method,
		"path", r.URL.Path,
	)
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + reason + `"}` + "\n"))
}
