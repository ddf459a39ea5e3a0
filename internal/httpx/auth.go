package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const ownerIDContextKey contextKey = "owner_id"

// Auth is a middleware that verifies a Bearer JWT and places the token
// subject into the request context as the caller's owner ID. Token issuance
// happens upstream; only HMAC verification is done here.
func Auth(secret []byte) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return secret, nil
			})

			switch {
			case errors.Is(err, jwt.ErrTokenExpired):
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Token expired", nil)
				return
			case err != nil, !token.Valid:
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid token", nil)
				return
			}

			ownerID := claims.Subject
			if ownerID == "" {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid token format", nil)
				return
			}

			ctx := context.WithValue(r.Context(), ownerIDContextKey, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOwnerID extracts the authenticated owner ID from context.
// Returns empty string if the request was not authenticated.
func GetOwnerID(ctx context.Context) string {
	if id, ok := ctx.Value(ownerIDContextKey).(string); ok {
		return id
	}
	return ""
}

// WithOwnerID adds an owner ID to the context. Useful for tests.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDContextKey, ownerID)
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing Authorization header")
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errors.New("Invalid token format")
	}
	return token, nil
}
