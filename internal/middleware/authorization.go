package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireSellerOrAdmin ensures the authenticated caller is a seller or an admin.
// It must run after AuthMiddleware.
func RequireSellerOrAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r.Context())
			if !ok {
				logger.Warn("Identity not found in context")
				RespondWithError(w, http.StatusForbidden, MsgInvalidSellerToken)
				return
			}

			if !identity.IsSeller && !identity.IsAdmin {
				logger.Warn("Non-seller user attempted to access seller endpoint",
					zap.String("user_id", identity.UserID.String()),
				)
				RespondWithError(w, http.StatusForbidden, MsgInvalidSellerToken)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
