// Package config provides configuration management for the TuneLease play engine.
//
// Configuration is loaded from a YAML file plus environment variables with
// the TL_ prefix (e.g. TL_POSTGRES_PASSWORD overrides postgres.password).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Play      PlayConfig      `mapstructure:"play"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// DSN returns the postgres connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig holds API-key verification settings. Tokens are issued by the
// platform's account service; this engine only verifies them.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// PlayConfig holds play-validation policy constants.
type PlayConfig struct {
	// ValidityThreshold is the accumulated playback duration at which a
	// session becomes a valid play.
	ValidityThreshold time.Duration `mapstructure:"validity_threshold"`
	// IdleTimeout reclaims sessions with no range request for this long.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// SweepInterval controls how often idle sessions are reclaimed.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// AudioDir is the local directory audio assets are served from.
	AudioDir string `mapstructure:"audio_dir"`
	// SessionBackend selects the session store: "memory" or "redis".
	SessionBackend string `mapstructure:"session_backend"`
}

// RateLimitConfig holds streaming endpoint rate-limit settings.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int64         `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

// TelemetryConfig holds metrics settings.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Environment    string `mapstructure:"environment"`
}

// Load reads configuration from the given file (optional) and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional if all required values are in env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "5s")

	// Every key needs a registered default, even an empty one: AutomaticEnv
	// only surfaces TL_ overrides for keys viper already knows about.
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.database", "tunelease")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 25)
	v.SetDefault("postgres.min_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", "5m")
	v.SetDefault("postgres.migrations_dir", "migrations")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 0)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "tunelease")

	v.SetDefault("play.validity_threshold", "60s")
	v.SetDefault("play.idle_timeout", "5m")
	v.SetDefault("play.sweep_interval", "30s")
	v.SetDefault("play.audio_dir", "./audio")
	v.SetDefault("play.session_backend", "memory")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.limit", 600)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "play-engine")
	v.SetDefault("telemetry.service_version", "dev")
	v.SetDefault("telemetry.environment", "development")
}

// Validate checks required configuration values.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be between 1 and 65535, got %d", c.Server.HTTPPort)
	}
	if c.Postgres.Host == "" {
		return fmt.Errorf("postgres.host is required")
	}
	if c.Play.ValidityThreshold <= 0 {
		return fmt.Errorf("play.validity_threshold must be positive")
	}
	if c.Play.IdleTimeout <= c.Play.ValidityThreshold {
		return fmt.Errorf("play.idle_timeout must exceed play.validity_threshold")
	}
	switch c.Play.SessionBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("play.session_backend must be \"memory\" or \"redis\", got %q", c.Play.SessionBackend)
	}
	if c.Play.SessionBackend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("play.session_backend is redis but redis.enabled is false")
	}
	return nil
}
