package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating JWT tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator. OwnerID
// and Principal arrive already authenticated; the core trusts them as given.
type JWTClaims struct {
	OwnerID   string
	Principal string
}

// Context keys for storing authenticated identity information.
type contextKeyOwnerID struct{}
type contextKeyPrincipal struct{}

var (
	ContextKeyOwnerID   = contextKeyOwnerID{}
	ContextKeyPrincipal = contextKeyPrincipal{}
)

// GetOwnerID retrieves the authenticated owner ID from the context.
func GetOwnerID(ctx context.Context) string {
	if ownerID, ok := ctx.Value(ContextKeyOwnerID).(string); ok {
		return ownerID
	}
	return ""
}

// GetPrincipal retrieves the ledger principal from the context.
func GetPrincipal(ctx context.Context) string {
	if principal, ok := ctx.Value(ContextKeyPrincipal).(string); ok {
		return principal
	}
	return ""
}

func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, ContextKeyOwnerID, claims.OwnerID)
			ctx = context.WithValue(ctx, ContextKeyPrincipal, claims.Principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
