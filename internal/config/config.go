package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Environment variables that override the file.
const (
	EnvEmail    = "VISUALPING_EMAIL"
	EnvPassword = "VISUALPING_PASSWORD"
)

const (
	defaultConfigPath  = "~/.config/vpctl/config.toml"
	defaultSessionFile = "~/.local/share/vpctl/session.db"
	defaultTimeoutMS   = 30000
	defaultMaxRetries  = 2
)

// Config is the resolved vpctl configuration.
type Config struct {
	Email          string
	Password       string
	Timeout        time.Duration
	MaxRetries     int
	SessionFile    string
	RedisAddr      string
	RedisPrefix    string
	TokenURL       string
	AccountBaseURL string
	JobsBaseURL    string
}

type rawConfig struct {
	Email          string `toml:"email"`
	Password       string `toml:"password"`
	TimeoutMS      int    `toml:"timeout_ms"`
	MaxRetries     *int   `toml:"max_retries"`
	SessionFile    string `toml:"session_file"`
	RedisAddr      string `toml:"redis_addr"`
	RedisPrefix    string `toml:"redis_prefix"`
	TokenURL       string `toml:"token_url"`
	AccountBaseURL string `toml:"account_base_url"`
	JobsBaseURL    string `toml:"jobs_base_url"`
}

// Load locates and parses the vpctl config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw rawConfig
	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	return raw.resolve()
}

func (raw rawConfig) resolve() (Config, error) {
	cfg := Config{
		Email:          strings.TrimSpace(raw.Email),
		Password:       raw.Password,
		Timeout:        time.Duration(defaultTimeoutMS) * time.Millisecond,
		MaxRetries:     defaultMaxRetries,
		RedisAddr:      strings.TrimSpace(raw.RedisAddr),
		RedisPrefix:    strings.TrimSpace(raw.RedisPrefix),
		TokenURL:       strings.TrimSpace(raw.TokenURL),
		AccountBaseURL: strings.TrimSpace(raw.AccountBaseURL),
		JobsBaseURL:    strings.TrimSpace(raw.JobsBaseURL),
	}

	if raw.TimeoutMS < 0 {
		return Config{}, fmt.Errorf("timeout_ms must be positive, got %d", raw.TimeoutMS)
	}
	if raw.TimeoutMS > 0 {
		cfg.Timeout = time.Duration(raw.TimeoutMS) * time.Millisecond
	}
	if raw.MaxRetries != nil {
		if *raw.MaxRetries < 0 {
			return Config{}, fmt.Errorf("max_retries must be non-negative, got %d", *raw.MaxRetries)
		}
		cfg.MaxRetries = *raw.MaxRetries
	}

	sessionFile := strings.TrimSpace(raw.SessionFile)
	if sessionFile == "" {
		sessionFile = defaultSessionFile
	}
	expanded, err := expandPath(sessionFile)
	if err != nil {
		return Config{}, fmt.Errorf("session_file: %w", err)
	}
	cfg.SessionFile = expanded

	if email := strings.TrimSpace(os.Getenv(EnvEmail)); email != "" {
		cfg.Email = email
	}
	if password, ok := os.LookupEnv(EnvPassword); ok && password != "" {
		cfg.Password = password
	}

	return cfg, nil
}

// Validate reports missing credentials.
func (c Config) Validate() error {
	var missing []string
	if c.Email == "" {
		missing = append(missing, "email (or "+EnvEmail+")")
	}
	if c.Password == "" {
		missing = append(missing, "password (or "+EnvPassword+")")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
