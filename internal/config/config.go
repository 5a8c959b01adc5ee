// Package config loads server settings from flags, the environment and an
// optional .env file. Keys use the dotted flag names, e.g. server.addr;
// environment variables use the MUTAGRAPH_ prefix with dots and dashes
// replaced by underscores (MUTAGRAPH_SERVER_ADDR).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "MUTAGRAPH"

type Config struct {
	Server  Server
	OTel    OTel
	Log     Log
	Metrics Metrics
}

type Server struct {
	Addr            string
	Timeout         time.Duration
	Pretty          bool
	MaxBodyBytes    int64
	CORSOrigins     []string
	MetadataHeaders []string
	GraphiQL        bool
}

type OTel struct {
	Endpoint string
	Service  string
}

type Log struct {
	Level       string
	Development bool
}

type Metrics struct {
	Enabled bool
}

// RegisterFlags adds the configuration flags with their defaults to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("server.addr", ":8080", "HTTP listen address")
	fs.Duration("server.timeout", 10*time.Second, "Per-request timeout")
	fs.Bool("server.pretty", false, "Pretty-print JSON responses")
	fs.Int64("server.max-body-bytes", 1<<20, "Maximum request body size")
	fs.StringSlice("server.cors-origins", nil, "Allowed CORS origins; * allows any")
	fs.StringSlice("server.metadata-headers", nil, "HTTP headers forwarded to mutations as metadata; forward only headers a trusted proxy sets")
	fs.Bool("server.graphiql", true, "Serve GraphiQL on GET requests from browsers")
	fs.String("otel.endpoint", "", "OTLP collector endpoint")
	fs.String("otel.service", "mutagraph", "OpenTelemetry service name")
	fs.String("log.level", "info", "Log level: debug, info, warn, error")
	fs.Bool("log.development", false, "Human readable development logging")
	fs.Bool("metrics.enabled", true, "Serve Prometheus metrics on /metrics")
}

// Load reads the .env file in the working directory, if any, and resolves
// every key registered on flags. Explicit flags win over the environment,
// which wins over flag defaults.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	cfg := &Config{
		Server: Server{
			Addr:            v.GetString("server.addr"),
			Timeout:         v.GetDuration("server.timeout"),
			Pretty:          v.GetBool("server.pretty"),
			MaxBodyBytes:    v.GetInt64("server.max-body-bytes"),
			CORSOrigins:     v.GetStringSlice("server.cors-origins"),
			MetadataHeaders: v.GetStringSlice("server.metadata-headers"),
			GraphiQL:        v.GetBool("server.graphiql"),
		},
		OTel: OTel{
			Endpoint: v.GetString("otel.endpoint"),
			Service:  v.GetString("otel.service"),
		},
		Log: Log{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("metrics.enabled"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, fmt.Errorf("server.timeout must not be negative, got %s", c.Server.Timeout))
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max-body-bytes must not be negative, got %d", c.Server.MaxBodyBytes))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.OTel.Endpoint != "" && c.OTel.Service == "" {
		errs = append(errs, errors.New("otel.service is required with otel.endpoint"))
	}
	return errors.Join(errs...)
}
