package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"sql-helper/internal/logger"
	"sql-helper/internal/pkg/errors"
	"sql-helper/internal/services"

	"github.com/sirupsen/logrus"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: message})
}

// AuthMiddleware admits requests whose token verifies and whose session is
// still registered.
func AuthMiddleware(authService services.AuthService, sessions services.SessionRegistry, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := TokenFromRequest(r, cookieName)
			if tokenString == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := authService.VerifyToken(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			if !sessions.Validate(r.Context(), claims.Email, claims.SessionToken) {
				logger.LogEvent(logrus.InfoLevel, "auth.session_rejected", logrus.Fields{
					"identity": claims.Email,
					"path":     r.URL.Path,
				})
				writeError(w, http.StatusUnauthorized, errors.ErrSessionInactive.Error())
				return
			}

			ctx := services.WithIdentityContext(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches the identity when the request carries a
// live session and passes every request through either way.
func OptionalAuthMiddleware(authService services.AuthService, sessions services.SessionRegistry, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := TokenFromRequest(r, cookieName)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := authService.VerifyToken(tokenString)
			if err != nil || !sessions.Validate(r.Context(), claims.Email, claims.SessionToken) {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(services.WithIdentityContext(r.Context(), claims)))
		})
	}
}

// TokenFromRequest reads the bearer header, then the auth cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if token := extractTokenFromHeader(r); token != "" {
		return token
	}
	return extractTokenFromCookie(r, cookieName)
}

func extractTokenFromHeader(r *http.Request) string {
	bearerToken := r.Header.Get("Authorization")
	parts := strings.Fields(bearerToken)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

func extractTokenFromCookie(r *http.Request, name string) string {
	if name == "" {
		return ""
	}
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
