package middleware

import (
	"net/http"

	"dwolla-gateway/internal/transport"
)

// NoticesMiddleware gives each request its own shopper notice bag.
func NoticesMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(transport.WithNotices(r.Context())))
	})
}
