package config // loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Database and JWT settings are required and
// enforced by must(); gateway credentials default to inert placeholders so
// the service can boot in environments without payment processing.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	DBUser       string
	DBPass       string
	DBHost       string
	DBPort       string
	DBName       string
	DBMaxOpen    int // connection pool ceiling; 0 uses the package default
	DBMaxIdle    int
	JWTSecret    string // secret used to sign access tokens
	AccessTTLMin int    // access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for password hashing

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	PayPalClientID        string
	PayPalClientSecret    string
	PayPalMode            string // "sandbox" or "live"

	RabbitURL string // AMQP broker URL; empty disables publishing
}

// Load reads configuration from environment variables. Missing required
// variables cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"), // empty allowed
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		DBMaxOpen:    intOr("DB_MAX_OPEN_CONNS", 0),
		DBMaxIdle:    intOr("DB_MAX_IDLE_CONNS", 0),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: intOr("ACCESS_TOKEN_TTL_MIN", 7*24*60), // sessions last a week by default
		BcryptCost:   intOr("BCRYPT_COST", 10),

		RazorpayKeyID:         getenv("RAZORPAY_KEY_ID", "rzp_test_placeholder"),
		RazorpayKeySecret:     getenv("RAZORPAY_KEY_SECRET", "placeholder_secret"),
		RazorpayWebhookSecret: getenv("RAZORPAY_WEBHOOK_SECRET", "placeholder_webhook_secret"),
		PayPalClientID:        getenv("PAYPAL_CLIENT_ID", "paypal_placeholder_client_id"),
		PayPalClientSecret:    getenv("PAYPAL_CLIENT_SECRET", "paypal_placeholder_secret"),
		PayPalMode:            getenv("PAYPAL_MODE", "sandbox"),

		RabbitURL: rabbitURL(),
	}
}

func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
