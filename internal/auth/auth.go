// Package auth resolves the owner identity carried by a request. Tokens are
// issued elsewhere; this package only validates them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/johndosdos/anonbox/internal/model"
)

type ContextKey string

const UserIDKey ContextKey = "userId"

// CookieName is the cookie that carries the access token.
const CookieName = "jwt"

// MakeJWT signs an HS256 token for userID. The session issuer uses the same
// format; here it serves tests and tooling.
func MakeJWT(userID uuid.UUID, issuer, tokenSecret string, expiresIn time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
	})

	return token.SignedString([]byte(tokenSecret))
}

// ValidateJWT checks signature, algorithm and expiry and returns the subject
// as a user id.
func ValidateJWT(tokenString, tokenSecret string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(tokenSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("internal/auth: failed to parse token: %w", err)
	}

	if !token.Valid {
		return uuid.UUID{}, errors.New("internal/auth: token is invalid")
	}

	if claims.Subject == "" {
		return uuid.UUID{}, errors.New("internal/auth: subject claim is missing")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("internal/auth: subject is not a user id: %w", err)
	}

	return userID, nil
}

// TokenFromRequest returns the access token from the jwt cookie, falling back
// to an Authorization bearer header.
func TokenFromRequest(r *http.Request) (string, bool) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, true
	}

	h := r.Header.Get("Authorization")
	if tok, ok := strings.CutPrefix(h, "Bearer "); ok && tok != "" {
		return tok, true
	}

	return "", false
}

// GetUserFromContext returns the user id stored by the session middleware.
func GetUserFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	if !ok {
		return uuid.UUID{}, errors.New("internal/auth: no user id in context")
	}
	if userID == uuid.Nil {
		return uuid.UUID{}, errors.New("internal/auth: empty user id in context")
	}

	return userID, nil
}

// OwnerFromContext returns the request's owner, or nil when the request has
// no valid session.
func OwnerFromContext(ctx context.Context) *model.Owner {
	userID, err := GetUserFromContext(ctx)
	if err != nil {
		return nil
	}
	return &model.Owner{ID: userID}
}
