package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/payportal/internal/flagx"
)

var flagNames = []string{
	"-a", "-grpc", "-d", "-s", "-l", "-w", "-redis", "-cors", "-tls-cert", "-tls-key",
	"-amqp", "-exchange", "-schedule", "-u", "-p", "-b", "-region", "-e", "-timeout", "-log-level",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          HTTP bind address (e.g., ":3001")
//	-grpc string       gRPC health bind address
//	-d string          PostgreSQL DSN
//	-s string          JWT HMAC secret key
//	-l int             failed logins before lockout
//	-w duration        lockout window (e.g., "15m")
//	-redis string      Redis URL for shared lockout counters
//	-cors string       allowed CORS origin
//	-tls-cert string   TLS certificate file
//	-tls-key string    TLS key file
//	-amqp string       RabbitMQ URL
//	-exchange string   RabbitMQ exchange for batch events
//	-schedule string   cron spec for batch submission
//	-u, -p string      S3 root user / password
//	-b string          S3 bucket for batch manifests
//	-region string     S3 region
//	-e string          S3 base endpoint
//	-timeout duration  per-request timeout
//	-log-level string  debug, info, warn or error
//
// Only the flags above are picked out of os.Args, so other components may
// define their own. A malformed value panics.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], flagNames)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the REST API")
	fs.StringVar(&config.EndpointAddrGRPC, "grpc", config.EndpointAddrGRPC, "address and port to run the health service")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.IntVar(&config.LockoutThreshold, "l", config.LockoutThreshold, "failed logins before lockout")
	fs.DurationVar(&config.LockoutWindow, "w", config.LockoutWindow, "lockout window")
	fs.StringVar(&config.RedisURL, "redis", config.RedisURL, "redis URL")
	fs.StringVar(&config.CORSOrigin, "cors", config.CORSOrigin, "allowed CORS origin")
	fs.StringVar(&config.TLSCertFile, "tls-cert", config.TLSCertFile, "TLS certificate file")
	fs.StringVar(&config.TLSKeyFile, "tls-key", config.TLSKeyFile, "TLS key file")
	fs.StringVar(&config.RabbitMQURL, "amqp", config.RabbitMQURL, "RabbitMQ URL")
	fs.StringVar(&config.RabbitMQExchange, "exchange", config.RabbitMQExchange, "RabbitMQ exchange")
	fs.StringVar(&config.BatchSchedule, "schedule", config.BatchSchedule, "batch submission schedule")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.DurationVar(&config.RequestTimeout, "timeout", config.RequestTimeout, "request timeout")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
