package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"bazaar/pkg/domain"
	"bazaar/pkg/requestcontext"
)

// JWTValidator validates bearer tokens and returns the claims the registry
// cares about.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is the transport-level view of an access token.
type JWTClaims struct {
	AccountID string
	TokenID   string
}

// RequireAuth rejects requests without a valid bearer token and injects the
// caller's account ID into the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx))
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx))
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			caller, err := domain.ParseAccountID(claims.AccountID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed subject",
					"error", err,
					"request_id", requestcontext.RequestID(ctx))
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCallerID(ctx, caller)))
		})
	}
}

// GetCallerID returns the account authenticated by RequireAuth, or the zero
// AccountID when the request is unauthenticated.
func GetCallerID(ctx context.Context) domain.AccountID {
	return requestcontext.CallerID(ctx)
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
