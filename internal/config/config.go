package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port          int    `mapstructure:"port"`
	CookieDomain  string `mapstructure:"cookie_domain"`
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port for go-redis and asynq clients.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Region           string `mapstructure:"region"`
	Bucket           string `mapstructure:"bucket"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// AuthConfig contains token signing material and login protection knobs.
type AuthConfig struct {
	PrivateKeyPath        string `mapstructure:"private_key_path"`
	PublicKeyPath         string `mapstructure:"public_key_path"`
	AccessTTLMinutes      int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLHours       int    `mapstructure:"refresh_ttl_hours"`
	LoginRateLimitPerHour int    `mapstructure:"login_rate_limit_per_hour"`
	LoginLockThreshold    int    `mapstructure:"login_lock_threshold"`
	LoginLockTTLMinutes   int    `mapstructure:"login_lock_ttl_minutes"`
	ResetTokenTTLMinutes  int    `mapstructure:"reset_token_ttl_minutes"`
}

// AccessTTL returns the access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTTLHours) * time.Hour
}

// LoginLockTTL returns how long a locked account stays locked.
func (a AuthConfig) LoginLockTTL() time.Duration {
	return time.Duration(a.LoginLockTTLMinutes) * time.Minute
}

// ResetTokenTTL returns the lifetime of password reset tokens.
func (a AuthConfig) ResetTokenTTL() time.Duration {
	return time.Duration(a.ResetTokenTTLMinutes) * time.Minute
}

// SMTPConfig contains outbound mail settings for password reset delivery.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "resumeforge")
	v.SetDefault("database.user", "resumeforge")
	v.SetDefault("database.password", "resumeforge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "templates")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("auth.private_key_path", "keys/jwt_private.pem")
	v.SetDefault("auth.public_key_path", "keys/jwt_public.pem")
	v.SetDefault("auth.access_ttl_minutes", 15)
	v.SetDefault("auth.refresh_ttl_hours", 720)
	v.SetDefault("auth.login_rate_limit_per_hour", 10)
	v.SetDefault("auth.login_lock_threshold", 5)
	v.SetDefault("auth.login_lock_ttl_minutes", 15)
	v.SetDefault("auth.reset_token_ttl_minutes", 30)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "no-reply@resumeforge.local")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                       "API_PORT",
		"api.cookie_domain":              "API_COOKIE_DOMAIN",
		"api.allowed_origin":             "API_ALLOWED_ORIGIN",
		"database.host":                  "DATABASE_HOST",
		"database.port":                  "DATABASE_PORT",
		"database.name":                  "POSTGRES_DB",
		"database.user":                  "POSTGRES_USER",
		"database.password":              "POSTGRES_PASSWORD",
		"database.sslmode":               "DATABASE_SSLMODE",
		"redis.host":                     "REDIS_HOST",
		"redis.port":                     "REDIS_PORT",
		"minio.endpoint":                 "MINIO_ENDPOINT",
		"minio.public_endpoint":          "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":            "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":        "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                  "MINIO_USE_SSL",
		"minio.region":                   "MINIO_REGION",
		"minio.bucket":                   "MINIO_BUCKET",
		"minio.auto_create_bucket":       "MINIO_AUTO_CREATE_BUCKET",
		"auth.private_key_path":          "AUTH_PRIVATE_KEY_PATH",
		"auth.public_key_path":           "AUTH_PUBLIC_KEY_PATH",
		"auth.access_ttl_minutes":        "AUTH_ACCESS_TTL_MINUTES",
		"auth.refresh_ttl_hours":         "AUTH_REFRESH_TTL_HOURS",
		"auth.login_rate_limit_per_hour": "AUTH_LOGIN_RATE_LIMIT_PER_HOUR",
		"auth.login_lock_threshold":      "AUTH_LOGIN_LOCK_THRESHOLD",
		"auth.login_lock_ttl_minutes":    "AUTH_LOGIN_LOCK_TTL_MINUTES",
		"auth.reset_token_ttl_minutes":   "AUTH_RESET_TOKEN_TTL_MINUTES",
		"smtp.host":                      "SMTP_HOST",
		"smtp.port":                      "SMTP_PORT",
		"smtp.username":                  "SMTP_USERNAME",
		"smtp.password":                  "SMTP_PASSWORD",
		"smtp.from":                      "SMTP_FROM",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Auth.PrivateKeyPath == "" {
		return errors.New("auth private key path is required")
	}
	if cfg.Auth.PublicKeyPath == "" {
		return errors.New("auth public key path is required")
	}
	if cfg.Auth.AccessTTLMinutes <= 0 {
		return errors.New("auth access ttl must be positive")
	}
	if cfg.Auth.RefreshTTLHours <= 0 {
		return errors.New("auth refresh ttl must be positive")
	}
	return nil
}
