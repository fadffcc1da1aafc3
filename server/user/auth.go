package user

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lucasjordaoreal/UltraDownloader/server/config"
)

const (
	CookieName    = "token"
	tokenLifetime = 24 * time.Hour
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login verifies the configured credentials and issues a signed token,
// both in the response body and as a cookie for browser clients.
func Login(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	auth := config.Instance().Authentication
	if !validCredentials(req, auth) {
		http.Error(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	signed, err := issueToken(req.Username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	expiresAt := time.Now().Add(tokenLifetime)

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	json.NewEncoder(w).Encode(loginResponse{Token: signed, ExpiresAt: expiresAt})
}

// Logout clears the auth cookie.
func Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusOK)
}

func validCredentials(req loginRequest, auth config.AuthConfig) bool {
	if req.Username != auth.Username {
		return false
	}

	sum := sha256.Sum256([]byte(req.Password))
	hashed := hex.EncodeToString(sum[:])

	return subtle.ConstantTimeCompare([]byte(hashed), []byte(auth.PasswordHash)) == 1
}

func issueToken(username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	return token.SignedString([]byte(config.Instance().Authentication.Secret))
}

// Verify parses and validates a token issued by Login.
func Verify(tokenString string) error {
	_, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(config.Instance().Authentication.Secret), nil
	})
	return err
}

func ApplyRouter() func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/login", Login)
		r.Post("/logout", Logout)
	}
}
