package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Auth        AuthConfig        `yaml:"auth"`
	Storage     StorageConfig     `yaml:"storage"`
	Tailscale   TailscaleConfig   `yaml:"tailscale"`
	Logging     LoggingConfig     `yaml:"logging"`
	Stats       StatsConfig       `yaml:"stats"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	Issuer     string        `yaml:"issuer"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// StorageConfig points at an S3-compatible bucket for profile pictures.
// Pictures are disabled when Bucket is empty.
type StorageConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type StatsConfig struct {
	// Timezone names the IANA location used to group workouts into calendar days.
	Timezone string `yaml:"timezone"`
}

type ReconcileConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type LeaderboardConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Limit    int           `yaml:"limit"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Location loads the configured stats timezone, defaulting to UTC.
func (s StatsConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

// Load reads config from a YAML file, applies defaults, then environment variable overrides.
// Env vars use the prefix LIFTSCORE_ and underscore-separated paths:
//
//	LIFTSCORE_SERVER_HOST, LIFTSCORE_SERVER_PORT,
//	LIFTSCORE_DB_HOST, LIFTSCORE_DB_PORT, LIFTSCORE_DB_NAME,
//	LIFTSCORE_DB_USER, LIFTSCORE_DB_PASSWORD, LIFTSCORE_DB_SSLMODE,
//	LIFTSCORE_REDIS_ADDR, LIFTSCORE_REDIS_PASSWORD,
//	LIFTSCORE_AUTH_JWT_SECRET, LIFTSCORE_AUTH_SESSION_TTL,
//	LIFTSCORE_STORAGE_BUCKET, LIFTSCORE_STORAGE_ACCESS_KEY_ID, LIFTSCORE_STORAGE_SECRET_ACCESS_KEY,
//	LIFTSCORE_LOG_LEVEL, LIFTSCORE_STATS_TIMEZONE
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "liftscore"
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 12
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Reconcile.Interval == 0 {
		cfg.Reconcile.Interval = time.Hour
	}
	if cfg.Leaderboard.CacheTTL == 0 {
		cfg.Leaderboard.CacheTTL = 30 * time.Second
	}
	if cfg.Leaderboard.Limit == 0 {
		cfg.Leaderboard.Limit = 50
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "auto"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LIFTSCORE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LIFTSCORE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LIFTSCORE_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("LIFTSCORE_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("LIFTSCORE_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("LIFTSCORE_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("LIFTSCORE_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("LIFTSCORE_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("LIFTSCORE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("LIFTSCORE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LIFTSCORE_AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("LIFTSCORE_AUTH_SESSION_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			cfg.Auth.SessionTTL = ttl
		}
	}
	if v := os.Getenv("LIFTSCORE_STORAGE_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("LIFTSCORE_STORAGE_ACCESS_KEY_ID"); v != "" {
		cfg.Storage.AccessKeyID = v
	}
	if v := os.Getenv("LIFTSCORE_STORAGE_SECRET_ACCESS_KEY"); v != "" {
		cfg.Storage.SecretAccessKey = v
	}
	if v := os.Getenv("LIFTSCORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LIFTSCORE_STATS_TIMEZONE"); v != "" {
		cfg.Stats.Timezone = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if c.Auth.SessionTTL < time.Minute {
		return fmt.Errorf("auth.session_ttl must be at least 1m")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Leaderboard.Limit < 0 {
		return fmt.Errorf("leaderboard.limit must not be negative")
	}
	if c.Leaderboard.CacheTTL < 0 {
		return fmt.Errorf("leaderboard.cache_ttl must not be negative")
	}
	if c.Storage.Bucket != "" && (c.Storage.AccessKeyID == "" || c.Storage.SecretAccessKey == "") {
		return fmt.Errorf("storage credentials are required when storage.bucket is set")
	}
	if _, err := c.Stats.Location(); err != nil {
		return fmt.Errorf("stats.timezone: %w", err)
	}
	return nil
}
