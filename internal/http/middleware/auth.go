// Package middleware carries the HTTP middleware shared by the API
// handlers.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/relaypost/relaypost/internal/domain"
)

// RequireAuth authenticates the Authorization header and attaches the
// resolved AuthContext to the request context.
func RequireAuth(auth domain.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, err := auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				status := http.StatusUnauthorized
				if authErr, ok := err.(*domain.AuthError); ok {
					status = authErr.Status
				}
				writeAuthError(w, status, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.WithAuthContext(r.Context(), authCtx)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	kind := "unauthorized"
	switch status {
	case http.StatusForbidden:
		kind = "forbidden"
	case http.StatusInternalServerError:
		kind = "internal_error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   kind,
		"message": message,
	})
}
