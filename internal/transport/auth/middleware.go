package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey string

const UserKey ctxKey = "user"

const Realm = "Debts App"

// Credentials holds the single account allowed into the app. When
// PasswordHash is set it takes precedence over the plain Password.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash []byte
}

func (c Credentials) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	var passOK bool
	if len(c.PasswordHash) > 0 {
		passOK = bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(password)) == nil
	} else {
		passOK = c.Password != "" && subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	}
	return userOK && passOK
}

// BasicAuthMiddleware rejects requests without a Basic header with 401 and
// requests with the wrong credentials with 403.
func BasicAuthMiddleware(creds Credentials, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// allow OPTIONS (CORS preflight) to pass through
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`"`)

			user, pass, ok := r.BasicAuth()
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if !creds.Verify(user, pass) {
				logger.Warn("basic auth rejected", zap.String("user", user), zap.String("remote", r.RemoteAddr))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUser(ctx context.Context) (string, error) {
	v, ok := ctx.Value(UserKey).(string)
	if !ok || v == "" {
		return "", errors.New("user not found in context")
	}
	return v, nil
}
