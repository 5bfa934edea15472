// Package config loads service configuration from defaults, an optional
// YAML file and BILAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/scaleneo/bilan/internal/observability/logging"
	"github.com/scaleneo/bilan/internal/observability/tracing"
	"github.com/scaleneo/bilan/pkg/workerpool"
)

// EnvPrefix prefixes every environment variable, e.g. BILAN_SERVER_PORT.
const EnvPrefix = "BILAN"

// Config holds application configuration
type Config struct {
	Server  ServerConfig      `mapstructure:"server"`
	Log     logging.Config    `mapstructure:"log"`
	Tracing tracing.Config    `mapstructure:"tracing"`
	Batch   workerpool.Config `mapstructure:"batch"`
	Service ServiceConfig     `mapstructure:"service"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// ServiceConfig names the running service.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string { return fmt.Sprintf(":%d", s.Port) }

var defaults = map[string]any{
	"server.port":             8080,
	"server.read_timeout":     15 * time.Second,
	"server.write_timeout":    15 * time.Second,
	"server.idle_timeout":     60 * time.Second,
	"server.shutdown_timeout": 30 * time.Second,
	"server.max_upload_bytes": int64(10 << 20),
	"server.cors_origins":     []string{"*"},
	"log.level":               "info",
	"log.format":              "json",
	"log.output":              "stdout",
	"tracing.enabled":         false,
	"tracing.endpoint":        "localhost:4317",
	"tracing.sample_rate":     1.0,
	"batch.workers":           4,
	"batch.queue_size":        64,
	"batch.max_retries":       0,
	"batch.retry_delay":       100 * time.Millisecond,
	"batch.shutdown_timeout":  30 * time.Second,
	"service.name":            "bilan-api",
	"service.version":         "1.0.0",
	"service.environment":     "development",
}

// Load reads configuration. file is optional; an empty path skips it, a
// missing file is an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
		// Unmarshal only sees env overrides of bound keys
		_ = v.BindEnv(key)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Server.CORSOrigins = splitList(strings.Join(cfg.Server.CORSOrigins, ","))

	cfg.Log.Service = cfg.Service.Name
	cfg.Tracing.ServiceName = cfg.Service.Name
	cfg.Tracing.ServiceVersion = cfg.Service.Version
	cfg.Tracing.Environment = cfg.Service.Environment

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive"))
	}
	if c.Batch.Workers <= 0 {
		errs = append(errs, fmt.Errorf("batch.workers must be positive, got %d", c.Batch.Workers))
	}
	if c.Batch.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("batch.queue_size must not be negative"))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_rate %v outside [0,1]", c.Tracing.SampleRate))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format %q: want json or console", c.Log.Format))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool { return c.Service.Environment == "development" }

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
