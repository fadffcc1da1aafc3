package middlewares

import (
	"net/http"
	"strings"

	"github.com/lucasjordaoreal/UltraDownloader/server/config"
	"github.com/lucasjordaoreal/UltraDownloader/server/user"
)

func ApplyAuthenticationByConfig(next http.Handler) http.Handler {
	handler := next

	if config.Instance().Authentication.RequireAuth {
		handler = Authenticated(handler)
	}

	return handler
}

// Authenticated rejects requests lacking a valid token, read from the
// auth cookie or a bearer Authorization header.
func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)

		if token == "" {
			if cookie, err := r.Cookie(user.CookieName); err == nil {
				token = cookie.Value
			}
		}

		if token == "" || user.Verify(token) != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return ""
}
