package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/diagnosis/quickstay/internal/http/response"
	"github.com/diagnosis/quickstay/pkg/auth"
	"github.com/diagnosis/quickstay/pkg/logger"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireJWT checks the bearer token. A non-empty requiredRole limits access to
// that role; admins always pass.
func RequireJWT(secret, requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}
			claims, err := auth.Parse(strings.TrimPrefix(authz, "Bearer "), secret)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "Invalid token", response.CodeInvalidToken)
				return
			}
			if !claims.Allows(requiredRole) {
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			ctx := logger.WithUserID(r.Context(), claims.Sub)
			ctx = context.WithValue(ctx, CtxClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Claims(r *http.Request) *auth.Claims {
	if c, ok := r.Context().Value(CtxClaims).(*auth.Claims); ok {
		return c
	}
	return nil
}
