// Package config loads server settings from defaults, an optional YAML file
// and environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP listener and cookie settings.
type ServerConfig struct {
	Port         string        `yaml:"port"`
	SecureCookie bool          `yaml:"secure_cookie"`
	JWTSecret    string        `yaml:"jwt_secret"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

// DBConfig holds the SQLite location.
type DBConfig struct {
	Path string `yaml:"path"`
}

// AdminConfig describes the user created on first start when the store is empty.
type AdminConfig struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

// LLMConfig configures the advice generator backend.
type LLMConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// RedisConfig enables the shared chat session lock when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	DB       DBConfig     `yaml:"db"`
	Admin    AdminConfig  `yaml:"admin"`
	LLM      LLMConfig    `yaml:"llm"`
	Redis    RedisConfig  `yaml:"redis"`
	LogLevel string       `yaml:"log_level"`
}

// DefaultJWTSecret signs login tokens when JWT_SECRET is not set.
const DefaultJWTSecret = "change-me"

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:       "8080",
			JWTSecret:  DefaultJWTSecret,
			SessionTTL: 30 * 24 * time.Hour,
		},
		DB: DBConfig{Path: "community.db"},
		LLM: LLMConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-pro",
			Timeout: 30 * time.Second,
		},
		Redis:    RedisConfig{LockTTL: 2 * time.Minute},
		LogLevel: "info",
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := OverrideFromEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Admin.Name == "" {
		cfg.Admin.Name = cfg.Admin.Username
	}
	return cfg, cfg.Validate()
}

// Validate reports settings the server cannot run with.
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive")
	}
	if (c.Admin.Username == "") != (c.Admin.Password == "") {
		return fmt.Errorf("admin username and password must be set together")
	}
	return nil
}

// InsecureJWTSecret reports whether tokens are signed with the built-in secret.
func (c Config) InsecureJWTSecret() bool {
	return c.Server.JWTSecret == DefaultJWTSecret
}

// OverrideFromEnv applies environment variables on top of cfg.
func OverrideFromEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.JWTSecret, "JWT_SECRET")
	setString(&cfg.DB.Path, "DB_PATH")
	setString(&cfg.Admin.Username, "ADMIN_USER")
	setString(&cfg.Admin.Name, "ADMIN_NAME")
	setString(&cfg.Admin.Password, "ADMIN_PASSWORD")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("SECURE_COOKIE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SECURE_COOKIE: %w", err)
		}
		cfg.Server.SecureCookie = b
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LLM_TIMEOUT: %w", err)
		}
		cfg.LLM.Timeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
