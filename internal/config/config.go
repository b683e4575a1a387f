// Package config provides configuration management for the medline ingest service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the medline ingest service.
type Config struct {
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// EUtils contains NCBI E-utilities client settings.
	EUtils EUtilsConfig `mapstructure:"eutils"`
	// Dump contains document store update policy settings.
	Dump DumpConfig `mapstructure:"dump"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	// Default is "require" for production security. Use "disable" only for local development.
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 10).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 2).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Listen is the address the metrics endpoint binds to.
	Listen string `mapstructure:"listen"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// EUtilsConfig holds NCBI E-utilities client configuration.
type EUtilsConfig struct {
	// BaseURL is the E-utilities base URL.
	BaseURL string `mapstructure:"base_url"`
	// APIKey is the NCBI API key (loaded from MEDLINE_EUTILS_API_KEY).
	APIKey string `mapstructure:"-"`
	// Timeout is the timeout for efetch calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RequestInterval is the minimum spacing between requests. NCBI asks
	// bulk jobs to stay around one request every three seconds.
	RequestInterval time.Duration `mapstructure:"request_interval"`
	// FetchSize is the maximum number of PMIDs per efetch request.
	FetchSize int `mapstructure:"fetch_size"`
	// MaxRetries is the maximum number of retries for failed calls.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// DumpConfig holds document store update policy settings.
type DumpConfig struct {
	// Update enables refreshing existing citations that the staleness
	// policy selects; without it existing PMIDs are skipped entirely.
	Update bool `mapstructure:"update"`
	// Force refreshes every existing citation regardless of staleness.
	Force bool `mapstructure:"force"`
	// MinAge is how recently a citation may have been stored before any
	// refresh is considered (default: one week).
	MinAge time.Duration `mapstructure:"min_age"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("MEDLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/medline-ingest-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets load exclusively from environment variables; the field is
	// tagged mapstructure:"-" to keep it out of config files.
	cfg.EUtils.APIKey = os.Getenv("MEDLINE_EUTILS_API_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "medline")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "medline_ingest")
	// Default to "require" for production security. Use MEDLINE_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen", "0.0.0.0:9091")
	v.SetDefault("metrics.path", "/metrics")

	// eUtils defaults
	v.SetDefault("eutils.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("eutils.timeout", "60s")
	v.SetDefault("eutils.request_interval", "3s")
	v.SetDefault("eutils.fetch_size", 100)
	v.SetDefault("eutils.max_retries", 3)
	v.SetDefault("eutils.retry_delay", "2s")

	// Dump policy defaults
	v.SetDefault("dump.update", false)
	v.SetDefault("dump.force", false)
	v.SetDefault("dump.min_age", "168h")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate eUtils config
	if c.EUtils.BaseURL == "" {
		return fmt.Errorf("eutils base_url is required")
	}
	if c.EUtils.FetchSize <= 0 || c.EUtils.FetchSize > 100 {
		return fmt.Errorf("eutils fetch_size must be between 1 and 100, got %d", c.EUtils.FetchSize)
	}
	if c.EUtils.RequestInterval <= 0 {
		return fmt.Errorf("eutils request_interval must be positive")
	}

	// Validate dump policy
	if c.Dump.Force && !c.Dump.Update {
		return fmt.Errorf("dump.force requires dump.update")
	}
	if c.Dump.MinAge < 0 {
		return fmt.Errorf("dump.min_age must not be negative")
	}

	return nil
}
