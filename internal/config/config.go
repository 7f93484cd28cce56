package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by every storefront binary. Each binary
// checks the fields it actually needs.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Port           string

	PostgresURL    string
	MigrationsPath string

	KafkaBrokers []string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	DiscountCacheTTL time.Duration

	BusinessLocation *time.Location

	TracingEnabled bool
	OTLPEndpoint   string

	EmailServiceURL string
	EmailDomain     string
}

// Load reads configuration from the environment, after applying a .env file
// when one is present.
func Load(serviceName, defaultPort string) (Config, error) {
	_ = godotenv.Load()

	tz := getenv("BUSINESS_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("load BUSINESS_TIMEZONE %q: %w", tz, err)
	}

	cfg := Config{
		ServiceName:      getenv("SERVICE_NAME", serviceName),
		ServiceVersion:   getenv("SERVICE_VERSION", "0.1.0"),
		Port:             getenv("PORT", defaultPort),
		PostgresURL:      strings.TrimSpace(os.Getenv("POSTGRES_URL")),
		MigrationsPath:   getenv("MIGRATIONS_PATH", "file://migrations"),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		RedisAddr:        strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getenvInt("REDIS_DB", 0),
		DiscountCacheTTL: getenvDuration("DISCOUNT_CACHE_TTL", 5*time.Minute),
		BusinessLocation: loc,
		TracingEnabled:   getenvBool("TRACING_ENABLED", true),
		OTLPEndpoint:     getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		EmailServiceURL:  strings.TrimSpace(os.Getenv("EMAIL_SERVICE_URL")),
		EmailDomain:      getenv("EMAIL_DOMAIN", "example.com"),
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
