// Package internal wires the HTTP router and its middleware.
package internal

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/johndosdos/anonbox/internal/auth"
)

// Middleware resolves the session token, if any, and stores the user id in
// the request context. Requests without a valid token are served without an
// identity; the handlers decide whether that is allowed.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.TokenFromRequest(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := auth.ValidateJWT(token, secret)
			if err != nil {
				slog.DebugContext(r.Context(), "ignoring invalid session token",
					slog.String("path", r.URL.Path),
					slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			r = r.WithContext(context.WithValue(r.Context(), auth.UserIDKey, userID))
			next.ServeHTTP(w, r)
		})
	}
}
