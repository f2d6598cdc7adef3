package gateway

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/pinghook/pinghook/internal/auth"
)

type ownerIDKey struct{}

func OwnerIDFromCtx(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ownerIDKey{}).(int64)
	return id, ok
}

// RequireAuth verifies the bearer token and stashes the owner id in the
// request context. Token issuance belongs to the account service.
func RequireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				respondError(w, http.StatusUnauthorized, "auth required")
				return
			}
			claims, err := auth.ParseAndValidate(raw, secret)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ownerID, err := strconv.ParseInt(claims.Sub, 10, 64)
			if err != nil || ownerID <= 0 {
				respondError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), ownerIDKey{}, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
