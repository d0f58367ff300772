package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"driftchat/internal/auth"
)

type contextKey string

const principalKey contextKey = "principal"

// Authenticate resolves the bearer credential into a Principal and makes it
// available to downstream handlers. Every protected route, including the
// websocket upgrade, sits behind this.
func Authenticate(issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
				return
			}

			principal, err := issuer.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				log.Printf("[AUTH] Invalid token from %s: %v", r.RemoteAddr, err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, *principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFrom returns the authenticated identity stored by Authenticate.
func PrincipalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}
