package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("DB_PORT", "5432")
		t.Setenv("APP_PORT", "8080")
		t.Setenv("APP_ENV", "test")
		t.Setenv("SITE_URL", "https://shop.example.com/")
		t.Setenv("SITE_NAME", "Example Shop")
		t.Setenv("DWOLLA_ACCOUNT_ID", "812-111-1111")
		t.Setenv("DWOLLA_APP_KEY", "key")
		t.Setenv("DWOLLA_APP_SECRET", "secret")
		t.Setenv("DWOLLA_GUEST_CHECKOUT", "no")
		t.Setenv("DWOLLA_TEST_MODE", "yes")
		t.Setenv("DWOLLA_DEBUG", "true")
		t.Setenv("DWOLLA_TIMEOUT_SECONDS", "10")
		t.Setenv("JWT_SECRET", "jwt-secret")
		t.Setenv("INTERNAL_SECRET_KEY", "svc")

		cfg := LoadConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "testpass", cfg.DBPassword)
		assert.Equal(t, "testdb", cfg.DBName)
		assert.Equal(t, "5432", cfg.DBPort)
		assert.Equal(t, "8080", cfg.AppPort)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, "https://shop.example.com", cfg.SiteURL)
		assert.Equal(t, "Example Shop", cfg.SiteName)
		assert.Equal(t, "jwt-secret", cfg.JWTSecret)
		assert.Equal(t, "svc", cfg.InternalKey)

		gw := cfg.Gateway
		assert.Equal(t, "812-111-1111", gw.AccountID)
		assert.Equal(t, "key", gw.AppKey)
		assert.Equal(t, "secret", gw.AppSecret)
		assert.False(t, gw.GuestCheckout)
		assert.True(t, gw.TestMode)
		assert.True(t, gw.Debug)
		assert.Equal(t, 10*time.Second, gw.Timeout)
		assert.Equal(t, defaultEndpoint, gw.Endpoint)
		assert.True(t, gw.Available())
	})

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("APP_PORT", "")
		t.Setenv("DWOLLA_GUEST_CHECKOUT", "")
		t.Setenv("DWOLLA_TEST_MODE", "")
		t.Setenv("DWOLLA_DEBUG", "")
		t.Setenv("DWOLLA_TIMEOUT_SECONDS", "not-a-number")
		t.Setenv("DWOLLA_APP_SECRET", "")

		cfg := LoadConfig()

		assert.Equal(t, "8080", cfg.AppPort)
		assert.True(t, cfg.Gateway.GuestCheckout)
		assert.True(t, cfg.Gateway.TestMode)
		assert.False(t, cfg.Gateway.Debug)
		assert.Equal(t, 45*time.Second, cfg.Gateway.Timeout)
		assert.Equal(t, defaultCheckoutURL, cfg.Gateway.CheckoutURL)
		assert.False(t, cfg.Gateway.Available())
	})
}
