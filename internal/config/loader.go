package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "agenthub.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "AGENTHUB_PORT")
	setString(&cfg.Server.CORSOrigin, "AGENTHUB_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "AGENTHUB_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "AGENTHUB_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "AGENTHUB_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "AGENTHUB_PG_MAX_CONN_IDLE_TIME")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.LiteLLM.Model, "AGENTHUB_MODEL")
	setDuration(&cfg.LiteLLM.Timeout, "AGENTHUB_LLM_TIMEOUT")
	setString(&cfg.Logging.Level, "AGENTHUB_LOG_LEVEL")
	setString(&cfg.Logging.Service, "AGENTHUB_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "AGENTHUB_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "AGENTHUB_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.MaxSizeMB, "AGENTHUB_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.MetricsTTL, "AGENTHUB_CACHE_METRICS_TTL")
	setBool(&cfg.Auth.Enabled, "AGENTHUB_AUTH_ENABLED")
	setString(&cfg.Router.FallbackAgent, "AGENTHUB_ROUTER_FALLBACK")
	setInt(&cfg.Repair.MaxAttempts, "AGENTHUB_REPAIR_MAX_ATTEMPTS")
	setDuration(&cfg.Repair.RetryBackoff, "AGENTHUB_REPAIR_BACKOFF")
	setFloat64(&cfg.CostScan.CPUThreshold, "AGENTHUB_COSTSCAN_CPU_THRESHOLD")
	setDuration(&cfg.CostScan.MinUptime, "AGENTHUB_COSTSCAN_MIN_UPTIME")
	setString(&cfg.CostScan.Action, "AGENTHUB_COSTSCAN_ACTION")
	setString(&cfg.Compute.URL, "AGENTHUB_COMPUTE_URL")
	setString(&cfg.Compute.APIKey, "AGENTHUB_COMPUTE_API_KEY")
	setBool(&cfg.Otel.Enabled, "AGENTHUB_OTEL_ENABLED")
	setString(&cfg.Otel.Endpoint, "AGENTHUB_OTEL_ENDPOINT")
	setBool(&cfg.MCP.Enabled, "AGENTHUB_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "AGENTHUB_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "AGENTHUB_MCP_API_KEY")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Repair.MaxAttempts < 1 {
		return errors.New("repair.max_attempts must be >= 1")
	}
	if cfg.CostScan.CPUThreshold <= 0 || cfg.CostScan.CPUThreshold >= 100 {
		return errors.New("costscan.cpu_threshold must be in (0, 100)")
	}
	switch cfg.CostScan.Action {
	case "deallocate", "downsize":
	default:
		return fmt.Errorf("costscan.action must be deallocate or downsize, got %q", cfg.CostScan.Action)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
