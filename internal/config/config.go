package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEndpoint    = "https://www.dwolla.com/payment/request"
	defaultCheckoutURL = "https://www.dwolla.com/payment/checkout/"
	defaultTimeout     = 45 * time.Second
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	SiteURL    string
	SiteName   string
	JWTSecret  string
	// InternalKey unlocks the trusted rate limit tier via X-Service-Auth.
	InternalKey string
	Gateway     GatewayConfig
}

// GatewayConfig holds the processor settings. It is read once at startup and
// never mutated while requests are served.
type GatewayConfig struct {
	AccountID     string
	AppKey        string
	AppSecret     string
	GuestCheckout bool
	TestMode      bool
	Debug         bool
	Timeout       time.Duration
	Endpoint      string
	CheckoutURL   string
}

// Available reports whether the credentials needed to talk to the processor are set.
func (g GatewayConfig) Available() bool {
	return g.AppKey != "" && g.AppSecret != "" && g.AccountID != ""
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:      os.Getenv("DB_HOST"),
		DBUser:      os.Getenv("DB_USER"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      os.Getenv("DB_NAME"),
		DBPort:      os.Getenv("DB_PORT"),
		AppPort:     os.Getenv("APP_PORT"),
		AppEnv:      os.Getenv("APP_ENV"),
		SiteURL:     strings.TrimRight(os.Getenv("SITE_URL"), "/"),
		SiteName:    os.Getenv("SITE_NAME"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		InternalKey: os.Getenv("INTERNAL_SECRET_KEY"),
		Gateway: GatewayConfig{
			AccountID:     os.Getenv("DWOLLA_ACCOUNT_ID"),
			AppKey:        os.Getenv("DWOLLA_APP_KEY"),
			AppSecret:     os.Getenv("DWOLLA_APP_SECRET"),
			GuestCheckout: envBool("DWOLLA_GUEST_CHECKOUT", true),
			TestMode:      envBool("DWOLLA_TEST_MODE", true),
			Debug:         envBool("DWOLLA_DEBUG", false),
			Timeout:       envSeconds("DWOLLA_TIMEOUT_SECONDS", defaultTimeout),
			Endpoint:      envOr("DWOLLA_ENDPOINT", defaultEndpoint),
			CheckoutURL:   envOr("DWOLLA_CHECKOUT_URL", defaultCheckoutURL),
		},
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envBool accepts the settings form values ("yes"/"no") as well as the usual
// boolean spellings.
func envBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return fallback
	case "yes", "y", "on":
		return true
	case "no", "n", "off":
		return false
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
