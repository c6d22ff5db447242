package middleware

import (
	"net/http"

	"dwolla-gateway/internal/auth"
	"dwolla-gateway/internal/logger"

	"go.uber.org/zap"
)

// AuthMiddleware attaches the customer id from a valid access token. It never
// rejects: requests without a usable token continue as guests.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			customerID, err := auth.ParseCustomerToken(tokenStr, secret)
			if err != nil {
				logger.FromCtx(r.Context()).Debug("ignoring access token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.WithCustomerID(r.Context(), customerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
