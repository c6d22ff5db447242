package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid access token")

type ctxKey string

const customerIDKey ctxKey = "customer_id"

func ExtractAccessToken(r *http.Request) string {
	// cookie first
	if cookie, err := r.Cookie("access_token"); err == nil {
		if cookie.Value != "" {
			return cookie.Value
		}
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

// ParseCustomerToken validates an HS256 access token and returns the
// customer id from its user_id claim.
func ParseCustomerToken(tokenStr string, secret []byte) (uint, error) {
	if len(secret) == 0 {
		return 0, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	uid, ok := claims["user_id"].(float64)
	if !ok || uid <= 0 {
		return 0, ErrInvalidToken
	}
	return uint(uid), nil
}

func WithCustomerID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, customerIDKey, id)
}

// CustomerIDFrom returns the authenticated customer, if any.
func CustomerIDFrom(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(customerIDKey).(uint)
	return id, ok && id != 0
}
