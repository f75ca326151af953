package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const defaultSessionSecret = "default-secret-key-change-me"

type Config struct {
	ServiceName string
	Env         string
	Port        string
	GinMode     string

	DB      DBConfig
	Redis   RedisConfig
	Session SessionConfig
	Auth    AuthConfig
	Poll    PollConfig
	Chat    ChatConfig
	Log     LogConfig
	Seed    SeedConfig
}

// DBConfig selects the GORM dialector and its connection settings.
type DBConfig struct {
	Driver          string // "mysql" (default), "postgres" or "sqlite"
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	File            string // sqlite only
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

type RedisConfig struct {
	URL string
}

type SessionConfig struct {
	Backend       string // "database" or "redis"
	Secret        string
	TTL           time.Duration
	TouchInterval time.Duration
}

type AuthConfig struct {
	MaxFailedAttempts int
	LockoutWindow     time.Duration
}

type PollConfig struct {
	Interval       time.Duration
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
}

type ChatConfig struct {
	PublicWritePolicy string // "open" or "members"
}

type LogConfig struct {
	Level string
}

type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from the environment, optionally seeded from a
// .env file, and validates it.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "collab-chat-api"),
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		DB: DBConfig{
			Driver:          getEnv("DB_DRIVER", "mysql"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "3306"),
			User:            getEnv("DB_USER", "chatuser"),
			Password:        getEnv("DB_PASSWORD", "chatpassword"),
			Name:            getEnv("DB_NAME", "collab_chat"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			File:            getEnv("DB_FILE", "collab_chat.db"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			LogLevel:        getEnv("DB_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Session: SessionConfig{
			Backend:       getEnv("SESSION_BACKEND", "database"),
			Secret:        getEnv("SESSION_SECRET", defaultSessionSecret),
			TTL:           getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
			TouchInterval: getEnvAsDuration("SESSION_TOUCH_INTERVAL", time.Minute),
		},
		Auth: AuthConfig{
			MaxFailedAttempts: getEnvAsInt("AUTH_MAX_FAILED_ATTEMPTS", 5),
			LockoutWindow:     getEnvAsDuration("AUTH_LOCKOUT_WINDOW", 15*time.Minute),
		},
		Poll: PollConfig{
			Interval:       getEnvAsDuration("POLL_INTERVAL", time.Second),
			DefaultTimeout: getEnvAsDuration("POLL_DEFAULT_TIMEOUT", 25*time.Second),
			MaxTimeout:     getEnvAsDuration("POLL_MAX_TIMEOUT", 60*time.Second),
		},
		Chat: ChatConfig{
			PublicWritePolicy: getEnv("CHAT_PUBLIC_WRITE_POLICY", "open"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Seed: SeedConfig{
			AdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@collab.local"),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER: unsupported driver %q", c.DB.Driver)
	}

	switch c.Session.Backend {
	case "database":
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("REDIS_URL is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND: unsupported backend %q", c.Session.Backend)
	}

	if c.GinMode == "release" && c.Session.Secret == defaultSessionSecret {
		return errors.New("SESSION_SECRET must be set in release mode")
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}

	switch c.Chat.PublicWritePolicy {
	case "open", "members":
	default:
		return fmt.Errorf("CHAT_PUBLIC_WRITE_POLICY: unsupported policy %q", c.Chat.PublicWritePolicy)
	}

	if c.Poll.Interval <= 0 {
		return errors.New("POLL_INTERVAL must be positive")
	}
	if c.Poll.MaxTimeout <= 0 || c.Poll.MaxTimeout > 60*time.Second {
		return errors.New("POLL_MAX_TIMEOUT must be between 0 and 60s")
	}
	if c.Poll.DefaultTimeout <= 0 || c.Poll.DefaultTimeout > c.Poll.MaxTimeout {
		return errors.New("POLL_DEFAULT_TIMEOUT must be positive and not exceed POLL_MAX_TIMEOUT")
	}

	if c.Auth.MaxFailedAttempts < 1 {
		return errors.New("AUTH_MAX_FAILED_ATTEMPTS must be at least 1")
	}
	return nil
}

// IsProduction reports whether cookies should be marked secure.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// LogFields returns the non-secret settings for the startup log line.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Env),
		zap.String("port", c.Port),
		zap.String("db_driver", c.DB.Driver),
		zap.String("db_host", c.DB.Host),
		zap.String("db_name", c.DB.Name),
		zap.String("session_backend", c.Session.Backend),
		zap.String("public_write_policy", c.Chat.PublicWritePolicy),
		zap.Duration("poll_max_timeout", c.Poll.MaxTimeout),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
