package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig holds app-specific configuration
type AppConfig struct {
	Name string `yaml:"name"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// AuthConfig holds auth-specific configuration
type AuthConfig struct {
	KeysPath  string `yaml:"keys_path"`
	ActiveKID string `yaml:"active_kid"`
	Issuer    string `yaml:"issuer"`
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds redis-specific configuration
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SessionConfig holds session lifecycle configuration.
// Every field can be overridden by its SESSION_* environment variable.
type SessionConfig struct {
	Driver         string `yaml:"driver"`          // "postgres" or "redis"
	MaxPerUser     int    `yaml:"max_per_user"`    // eviction threshold
	ExpiresIn      int    `yaml:"expires_in"`      // default TTL, seconds
	IdleTTL        int    `yaml:"idle_ttl"`        // seconds, 0 disables
	AbsoluteTTL    int    `yaml:"absolute_ttl"`    // seconds, 0 disables
	Rotation       bool   `yaml:"rotation"`        // consumed by callers, not enforced here
	CleanupEnabled bool   `yaml:"cleanup_enabled"` // scheduler on/off
	CleanupCron    string `yaml:"cleanup_cron"`    // cron cadence for pruning
}

// LoggingConfig holds logging-specific configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from a YAML file and applies SESSION_* environment overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Session.applyEnvOverrides()

	return &cfg, nil
}

// Address returns the server address in the format "host:port"
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the redis address in the format "host:port"
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DefaultTTL returns the default session lifetime
func (s *SessionConfig) DefaultTTL() time.Duration {
	return time.Duration(s.ExpiresIn) * time.Second
}

// IdleTimeout returns the idle TTL policy, 0 when disabled
func (s *SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTTL) * time.Second
}

// AbsoluteTimeout returns the absolute TTL policy, 0 when disabled
func (s *SessionConfig) AbsoluteTimeout() time.Duration {
	return time.Duration(s.AbsoluteTTL) * time.Second
}

func (s *SessionConfig) applyEnvOverrides() {
	if v := os.Getenv("SESSION_DRIVER"); v != "" {
		s.Driver = v
	}
	if v, ok := envInt("SESSION_MAX_PER_USER"); ok {
		s.MaxPerUser = v
	}
	if v, ok := envInt("SESSION_EXPIRES_IN"); ok {
		s.ExpiresIn = v
	}
	if v, ok := envInt("SESSION_IDLE_TTL"); ok {
		s.IdleTTL = v
	}
	if v, ok := envInt("SESSION_ABSOLUTE_TTL"); ok {
		s.AbsoluteTTL = v
	}
	if v, ok := envBool("SESSION_ROTATION"); ok {
		s.Rotation = v
	}
	if v, ok := envBool("SESSION_CLEANUP_ENABLED"); ok {
		s.CleanupEnabled = v
	}
	if v := os.Getenv("SESSION_CLEANUP_CRON"); v != "" {
		s.CleanupCron = v
	}
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// quoteDSNValue quotes a DSN value if it contains spaces or special characters.
// Single quotes inside the value are escaped by doubling them.
func quoteDSNValue(value string) string {
	needsQuoting := false
	for _, r := range value {
		if r == ' ' || r == '\'' || r == '\\' || r == '=' {
			needsQuoting = true
			break
		}
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' || r == '/' || r == '@' || r == ':') {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	escaped := ""
	for _, r := range value {
		if r == '\'' {
			escaped += "''"
		} else {
			escaped += string(r)
		}
	}

	return "'" + escaped + "'"
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(d.Host),
		d.Port,
		quoteDSNValue(d.User),
		quoteDSNValue(d.Password),
		quoteDSNValue(d.DBName),
		quoteDSNValue(d.SSLMode),
	)
}
