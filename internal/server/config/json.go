package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/payportal/internal/flagx"
	"github.com/dmitrijs2005/payportal/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "15m" style
// strings or integer nanoseconds. Absent fields keep their current value.
type JsonConfig struct {
	EndpointAddrHTTP    string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC    string         `json:"endpoint_addr_grpc"`
	DatabaseDSN         string         `json:"database_dsn"`
	SecretKey           string         `json:"secret_key"`
	LockoutThreshold    int            `json:"lockout_threshold"`
	LockoutWindow       timex.Duration `json:"lockout_window"`
	RedisURL            string         `json:"redis_url"`
	CORSOrigin          string         `json:"cors_origin"`
	TLSCertFile         string         `json:"tls_cert_file"`
	TLSKeyFile          string         `json:"tls_key_file"`
	RabbitMQURL         string         `json:"rabbitmq_url"`
	RabbitMQExchange    string         `json:"rabbitmq_exchange"`
	BatchSchedule       string         `json:"batch_schedule"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	HealthCheckInterval timex.Duration `json:"health_check_interval"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays the file named by -c/-config onto config. A missing
// flag loads nothing; an unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.LockoutThreshold != 0 {
		config.LockoutThreshold = c.LockoutThreshold
	}
	if c.LockoutWindow.Duration != 0 {
		config.LockoutWindow = c.LockoutWindow.Duration
	}
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.CORSOrigin, c.CORSOrigin)
	setString(&config.TLSCertFile, c.TLSCertFile)
	setString(&config.TLSKeyFile, c.TLSKeyFile)
	setString(&config.RabbitMQURL, c.RabbitMQURL)
	setString(&config.RabbitMQExchange, c.RabbitMQExchange)
	setString(&config.BatchSchedule, c.BatchSchedule)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.RequestTimeout.Duration != 0 {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	if c.HealthCheckInterval.Duration != 0 {
		config.HealthCheckInterval = c.HealthCheckInterval.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
