package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:3001", "-grpc", ":6000", "-d", "db", "-s", "secret",
			"-l", "3", "-w", "10m", "-redis", "redis://r:6379", "-cors", "https://portal.example",
			"-tls-cert", "c.pem", "-tls-key", "k.pem", "-amqp", "amqp://mq", "-exchange", "net",
			"-schedule", "@hourly", "-u", "user", "-p", "password", "-b", "bucket",
			"-region", "eu-west-1", "-e", "http://endpoint", "-timeout", "20s", "-log-level", "debug",
		}, expected: &Config{
			EndpointAddrHTTP: "127.0.0.1:3001",
			EndpointAddrGRPC: ":6000",
			DatabaseDSN:      "db",
			SecretKey:        "secret",
			LockoutThreshold: 3,
			LockoutWindow:    10 * time.Minute,
			RedisURL:         "redis://r:6379",
			CORSOrigin:       "https://portal.example",
			TLSCertFile:      "c.pem",
			TLSKeyFile:       "k.pem",
			RabbitMQURL:      "amqp://mq",
			RabbitMQExchange: "net",
			BatchSchedule:    "@hourly",
			S3RootUser:       "user",
			S3RootPassword:   "password",
			S3Bucket:         "bucket",
			S3Region:         "eu-west-1",
			S3BaseEndpoint:   "http://endpoint",
			RequestTimeout:   20 * time.Second,
			LogLevel:         "debug",
		}},
		{name: "foreign flags ignored", args: []string{"cmd", "-c", "cfg.json", "-verbose", "-s", "k"},
			expected: &Config{SecretKey: "k"}},
		{name: "bad duration", args: []string{"cmd", "-w", "never"}, expectPanic: true},
		{name: "bad int", args: []string{"cmd", "-l", "many"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
