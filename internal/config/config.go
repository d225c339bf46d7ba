// Package config loads the settings shared by the API server and the
// reconciler from a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/spf13/viper"
	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
)

type Config struct {
	Port           int      `mapstructure:"PORT"`
	Environment    string   `mapstructure:"ENVIRONMENT"`
	Version        string   `mapstructure:"VERSION"`
	TrustedOrigins []string `mapstructure:"TRUSTED_ORIGINS"`
	TLSCertFile    string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string   `mapstructure:"TLS_KEY_FILE"`

	DBHost         string        `mapstructure:"POSTGRES_HOST"`
	DBPort         string        `mapstructure:"POSTGRES_PORT"`
	DBUser         string        `mapstructure:"POSTGRES_USER"`
	DBPassword     string        `mapstructure:"POSTGRES_PASSWORD"`
	DBName         string        `mapstructure:"POSTGRES_DB"`
	DBMaxOpenConns int           `mapstructure:"POSTGRES_MAX_OPEN_CONNS"`
	DBMaxIdleConns int           `mapstructure:"POSTGRES_MAX_IDLE_CONNS"`
	DBMaxIdleTime  time.Duration `mapstructure:"POSTGRES_MAX_IDLE_TIME"`
	MigrationsPath string        `mapstructure:"MIGRATIONS_PATH"`

	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	JWTTTL         time.Duration `mapstructure:"JWT_TTL"`
	OwnerlessBlogs string        `mapstructure:"OWNERLESS_BLOGS"`

	MQHost     string `mapstructure:"RABBITMQ_HOST"`
	MQPort     string `mapstructure:"RABBITMQ_PORT"`
	MQUser     string `mapstructure:"RABBITMQ_USER"`
	MQPassword string `mapstructure:"RABBITMQ_PASSWORD"`

	RateLimitEnabled bool    `mapstructure:"RATE_LIMIT_ENABLED"`
	RateLimitRPS     float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int     `mapstructure:"RATE_LIMIT_BURST"`

	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	ReconcilerMetricsPort int `mapstructure:"RECONCILER_METRICS_PORT"`
}

// Load reads path, if it exists, and lets environment variables override
// any key. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Every key needs a default so that AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 3003)
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("VERSION", "1.0.0")
	v.SetDefault("TRUSTED_ORIGINS", []string{})
	v.SetDefault("TLS_CERT_FILE", "")
	v.SetDefault("TLS_KEY_FILE", "")

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "")
	v.SetDefault("POSTGRES_DB", "bloglist")
	v.SetDefault("POSTGRES_MAX_OPEN_CONNS", 25)
	v.SetDefault("POSTGRES_MAX_IDLE_CONNS", 25)
	v.SetDefault("POSTGRES_MAX_IDLE_TIME", 15*time.Minute)
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", time.Hour)
	v.SetDefault("OWNERLESS_BLOGS", "open")

	v.SetDefault("RABBITMQ_HOST", "")
	v.SetDefault("RABBITMQ_PORT", "5672")
	v.SetDefault("RABBITMQ_USER", "guest")
	v.SetDefault("RABBITMQ_PASSWORD", "guest")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 2)
	v.SetDefault("RATE_LIMIT_BURST", 4)

	v.SetDefault("CACHE_TTL", time.Minute)

	v.SetDefault("RECONCILER_METRICS_PORT", 9091)
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	switch c.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be 'development' or 'production'")
	}

	if c.Environment == "production" && (c.TLSCertFile == "" || c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE are required in production")
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWTTTL < 0 {
		return fmt.Errorf("JWT_TTL must not be negative")
	}

	if _, err := blogservice.ParseOwnershipPolicy(c.OwnerlessBlogs); err != nil {
		return fmt.Errorf("OWNERLESS_BLOGS: %w", err)
	}

	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst < 1) {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return nil
}

func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c *Config) DatabaseURI() string {
	return common.PostgresURI(c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// BrokerEnabled reports whether a RabbitMQ host is configured.
func (c *Config) BrokerEnabled() bool {
	return c.MQHost != ""
}

func (c *Config) BrokerURI() string {
	return common.AMQPURI(c.MQHost, c.MQPort, c.MQUser, c.MQPassword)
}

// OwnershipPolicy returns the parsed OWNERLESS_BLOGS value. Load has
// already validated it.
func (c *Config) OwnershipPolicy() blogservice.OwnershipPolicy {
	p, _ := blogservice.ParseOwnershipPolicy(c.OwnerlessBlogs)
	return p
}
