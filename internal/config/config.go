// Package config loads and validates application configuration from YAML files,
// an optional .env file, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend service IDs known to the ERP API clients.
const (
	ServiceShortage    = "shortage"
	ServicePurchase    = "purchase"
	ServiceCost        = "cost"
	ServicePresale     = "presale"
	ServiceScheduler   = "scheduler"
	ServiceEngineering = "engineering"
	ServiceStageView   = "stageview"
	ServiceCustomer    = "customer"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig             `yaml:"server"`
	Identity      IdentityConfig           `yaml:"identity"`
	Services      map[string]ServiceConfig `yaml:"services"`
	Specs         SpecsConfig              `yaml:"specs"`
	Status        StatusConfig             `yaml:"status"`
	Session       SessionConfig            `yaml:"session"`
	Demo          DemoConfig               `yaml:"demo"`
	Optimistic    OptimisticConfig         `yaml:"optimistic"`
	Idempotency   IdempotencyConfig        `yaml:"idempotency"`
	Redis         RedisConfig              `yaml:"redis"`
	Customer360   FanoutConfig             `yaml:"customer360"`
	Observability ObservabilityConfig      `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig describes Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// IdentityConfig describes JWT verification. Either JWKSURL or SecretEnv
// must be set; SecretEnv names the variable holding an HMAC secret.
type IdentityConfig struct {
	Issuer       string            `yaml:"issuer"`
	Audience     string            `yaml:"audience"`
	JWKSURL      string            `yaml:"jwks_url"`
	JWKSCacheTTL time.Duration     `yaml:"jwks_cache_ttl"`
	SecretEnv    string            `yaml:"secret_env"`
	Algorithms   []string          `yaml:"algorithms"`
	ClaimPaths   map[string]string `yaml:"claim_paths"`
}

// ServiceConfig describes a backend service.
type ServiceConfig struct {
	BaseURL        string               `yaml:"base_url"`
	Timeout        time.Duration        `yaml:"timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Retry          RetryConfig          `yaml:"retry"`
}

// CircuitBreakerConfig describes circuit breaker settings per service.
type CircuitBreakerConfig struct {
	FailureThreshold   int           `yaml:"failure_threshold"`
	SuccessThreshold   int           `yaml:"success_threshold"`
	Timeout            time.Duration `yaml:"timeout"`
	ErrorRateThreshold float64       `yaml:"error_rate_threshold"`
	ErrorRateWindow    time.Duration `yaml:"error_rate_window"`
}

// RetryConfig describes retry settings per service.
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BackoffInitial    time.Duration `yaml:"backoff_initial"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	BackoffMax        time.Duration `yaml:"backoff_max"`
	IdempotentOnly    bool          `yaml:"idempotent_only"`
}

// SpecsConfig describes optional backend OpenAPI contracts used to check the
// client route tables at startup.
type SpecsConfig struct {
	Directory string       `yaml:"directory"`
	Sources   []SpecSource `yaml:"sources"`
	Strict    bool         `yaml:"strict"`
}

// SpecSource maps a service ID to an OpenAPI spec file.
type SpecSource struct {
	ServiceID string `yaml:"service_id"`
	SpecFile  string `yaml:"spec_file"`
}

// StatusConfig describes where status display overrides are loaded from.
type StatusConfig struct {
	Directories []string `yaml:"directories"`
}

// SessionConfig describes the session store.
type SessionConfig struct {
	Driver string        `yaml:"driver"`
	TTL    time.Duration `yaml:"ttl"`
}

// DemoConfig is the explicit demo-mode switch. A session is a demo session
// only when Enabled is true and the token carries the demo claim or the
// subject is listed in Subjects.
type DemoConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Claim    string   `yaml:"claim"`
	Subjects []string `yaml:"subjects"`
}

// OptimisticConfig describes the pending-sync counter store.
type OptimisticConfig struct {
	Driver string        `yaml:"driver"`
	TTL    time.Duration `yaml:"ttl"`
}

// IdempotencyConfig describes idempotency store settings for actions.
type IdempotencyConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Driver     string        `yaml:"driver"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// RedisConfig describes the shared redis connection. AddrEnv names the
// variable holding host:port; Addr is used when it is unset.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	AddrEnv     string        `yaml:"addr_env"`
	PasswordEnv string        `yaml:"password_env"`
	DB          int           `yaml:"db"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// FanoutConfig bounds each branch of a parallel page load.
type FanoutConfig struct {
	TimeoutPerBranch time.Duration `yaml:"timeout_per_branch"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled           bool    `yaml:"enabled"`
	Exporter          string  `yaml:"exporter"`
	Endpoint          string  `yaml:"endpoint"`
	SamplingRate      float64 `yaml:"sampling_rate"`
	ForceSampleErrors bool    `yaml:"force_sample_errors"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			HandlerTimeout:  25 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Session-Id",
					"X-Correlation-Id", "X-Idempotency-Key"},
				MaxAge: 86400,
			},
		},
		Identity: IdentityConfig{
			JWKSCacheTTL: 1 * time.Hour,
			Algorithms:   []string{"RS256"},
			ClaimPaths: map[string]string{
				"subject_id": "sub",
				"tenant_id":  "tenant_id",
				"email":      "email",
				"roles":      "roles",
			},
		},
		Services: map[string]ServiceConfig{},
		Status: StatusConfig{
			Directories: []string{},
		},
		Session: SessionConfig{
			Driver: "memory",
			TTL:    8 * time.Hour,
		},
		Demo: DemoConfig{
			Claim: "demo",
		},
		Optimistic: OptimisticConfig{
			Driver: "memory",
			TTL:    10 * time.Minute,
		},
		Idempotency: IdempotencyConfig{
			Driver:     "memory",
			DefaultTTL: 24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			DialTimeout: 5 * time.Second,
		},
		Customer360: FanoutConfig{
			TimeoutPerBranch: 5 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, loads an optional .env file next to the
// working directory, applies environment variable overrides, and validates
// required fields.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Identity.JWKSURL == "" && c.Identity.SecretEnv == "" {
		errs = append(errs, "identity.jwks_url or identity.secret_env is required")
	}
	for id, svc := range c.Services {
		if svc.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("services.%s.base_url is required", id))
		}
	}
	if len(c.Services) == 0 && !c.Demo.Enabled {
		errs = append(errs, "at least one backend service is required unless demo.enabled is set")
	}
	for _, d := range []struct{ name, driver string }{
		{"session.driver", c.Session.Driver},
		{"optimistic.driver", c.Optimistic.Driver},
		{"idempotency.driver", c.Idempotency.Driver},
	} {
		if d.driver != "" && d.driver != "memory" && d.driver != "redis" {
			errs = append(errs, fmt.Sprintf("%s must be memory or redis, got %q", d.name, d.driver))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// UsesRedis reports whether any store is configured with the redis driver.
func (c *Config) UsesRedis() bool {
	return c.Session.Driver == "redis" ||
		c.Optimistic.Driver == "redis" ||
		(c.Idempotency.Enabled && c.Idempotency.Driver == "redis")
}

// RedisAddr resolves the redis address, preferring the AddrEnv variable.
func (c *Config) RedisAddr() string {
	if c.Redis.AddrEnv != "" {
		if v := os.Getenv(c.Redis.AddrEnv); v != "" {
			return v
		}
	}
	return c.Redis.Addr
}

// applyEnvOverrides reads ERPBFF_* environment variables and overrides config
// values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ERPBFF_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ERPBFF_IDENTITY_ISSUER"); v != "" {
		cfg.Identity.Issuer = v
	}
	if v := os.Getenv("ERPBFF_IDENTITY_JWKS_URL"); v != "" {
		cfg.Identity.JWKSURL = v
	}
	if v := os.Getenv("ERPBFF_IDENTITY_AUDIENCE"); v != "" {
		cfg.Identity.Audience = v
	}
	if v := os.Getenv("ERPBFF_OBSERVABILITY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("ERPBFF_DEMO_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Demo.Enabled = b
		}
	}
	// ERPBFF_SERVICE_<ID>_BASE_URL overrides a configured service's base URL.
	for id, svc := range cfg.Services {
		key := "ERPBFF_SERVICE_" + strings.ToUpper(id) + "_BASE_URL"
		if v := os.Getenv(key); v != "" {
			svc.BaseURL = v
			cfg.Services[id] = svc
		}
	}
}
