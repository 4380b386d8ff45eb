package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	path := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_http":    ":8443",
		"database_dsn":          "postgres://db/portal",
		"secret_key":            "my_secret_key",
		"lockout_threshold":     4,
		"lockout_window":        "20m",
		"rabbitmq_url":          "amqp://mq",
		"batch_schedule":        "@every 1m",
		"s3_bucket":             "bucket",
		"request_timeout":       float64(2 * time.Second),
		"health_check_interval": "3s",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, ":8443", cfg.EndpointAddrHTTP)
		assert.Equal(t, "postgres://db/portal", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 4, cfg.LockoutThreshold)
		assert.Equal(t, 20*time.Minute, cfg.LockoutWindow)
		assert.Equal(t, "amqp://mq", cfg.RabbitMQURL)
		assert.Equal(t, "@every 1m", cfg.BatchSchedule)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 3*time.Second, cfg.HealthCheckInterval)

		assert.Equal(t, ":50051", cfg.EndpointAddrGRPC, "absent fields keep defaults")
		assert.Equal(t, "https://localhost:3000", cfg.CORSOrigin)
	})

	t.Run("no config flag leaves config alone", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{EndpointAddrHTTP: "defaults:1234", SecretKey: "key"}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrHTTP)
		assert.Equal(t, "key", cfg.SecretKey)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
