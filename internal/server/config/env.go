package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// loadDotEnv is a seam for testing.
var loadDotEnv = func() error { return godotenv.Load() }

// parseEnv loads .env when present and overlays the environment. Invalid
// numeric or duration values panic, like bad flags do.
func parseEnv(config *Config) {
	// A missing .env file is normal outside local development.
	_ = loadDotEnv()

	if err := ApplyEnv(config, os.LookupEnv); err != nil {
		panic(err)
	}
}

// ApplyEnv overlays every variable that lookup reports as set.
func ApplyEnv(config *Config, lookup LookupFunc) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"HTTP_ADDR", &config.EndpointAddrHTTP},
		{"GRPC_ADDR", &config.EndpointAddrGRPC},
		{"DATABASE_DSN", &config.DatabaseDSN},
		{"JWT_SECRET", &config.SecretKey},
		{"REDIS_URL", &config.RedisURL},
		{"CORS_ORIGIN", &config.CORSOrigin},
		{"TLS_CERT_FILE", &config.TLSCertFile},
		{"TLS_KEY_FILE", &config.TLSKeyFile},
		{"RABBITMQ_URL", &config.RabbitMQURL},
		{"RABBITMQ_EXCHANGE", &config.RabbitMQExchange},
		{"BATCH_SCHEDULE", &config.BatchSchedule},
		{"S3_ROOT_USER", &config.S3RootUser},
		{"S3_ROOT_PASSWORD", &config.S3RootPassword},
		{"S3_BUCKET", &config.S3Bucket},
		{"S3_REGION", &config.S3Region},
		{"S3_BASE_ENDPOINT", &config.S3BaseEndpoint},
		{"LOG_LEVEL", &config.LogLevel},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	if v, ok := lookup("LOCKOUT_THRESHOLD"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LOCKOUT_THRESHOLD: %w", err)
		}
		config.LockoutThreshold = n
	}

	durs := []struct {
		key string
		dst *time.Duration
	}{
		{"LOCKOUT_WINDOW", &config.LockoutWindow},
		{"REQUEST_TIMEOUT", &config.RequestTimeout},
		{"HEALTH_CHECK_INTERVAL", &config.HealthCheckInterval},
	}
	for _, d := range durs {
		v, ok := lookup(d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	return nil
}
