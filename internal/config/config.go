// Package config resolves runtime configuration in priority order:
// defaults -> yaml file -> environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration.
type Config struct {
	HTTPPort int
	DBPath   string

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	SessionCookieTTL time.Duration

	TrackQueueSize   int64
	TrackTaskTimeout time.Duration

	LogLevel string
}

// configFile mirrors the YAML schema. Kept separate from Config so
// runtime-only fields stay internal.
type configFile struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret  string `yaml:"jwt_secret"`
		TokenTTL   string `yaml:"token_ttl"`
		BcryptCost int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`
	Tracking struct {
		QueueSize   int64  `yaml:"queue_size"`
		TaskTimeout string `yaml:"task_timeout"`
	} `yaml:"tracking"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads the optional yaml file at path and applies LPFORGE_* env
// overrides on top of defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		DBPath:           "./lpforge.db",
		TokenTTL:         24 * time.Hour,
		BcryptCost:       12,
		SessionCookieTTL: 30 * 24 * time.Hour,
		TrackQueueSize:   64,
		TrackTaskTimeout: 5 * time.Second,
		LogLevel:         "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			var file configFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return cfg, fmt.Errorf("failed to parse config file: %w", err)
			}
			applyFile(&cfg, &file)
		}
	}

	applyEnv(&cfg)

	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return cfg, fmt.Errorf("bcrypt cost out of range: %d", cfg.BcryptCost)
	}
	return cfg, nil
}

func applyFile(cfg *Config, file *configFile) {
	if file.Server.Port != 0 {
		cfg.HTTPPort = file.Server.Port
	}
	if file.Database.Path != "" {
		cfg.DBPath = file.Database.Path
	}
	if file.Auth.JWTSecret != "" {
		cfg.JWTSecret = file.Auth.JWTSecret
	}
	if d := parseDuration(file.Auth.TokenTTL); d > 0 {
		cfg.TokenTTL = d
	}
	if file.Auth.BcryptCost != 0 {
		cfg.BcryptCost = file.Auth.BcryptCost
	}
	if file.Tracking.QueueSize != 0 {
		cfg.TrackQueueSize = file.Tracking.QueueSize
	}
	if d := parseDuration(file.Tracking.TaskTimeout); d > 0 {
		cfg.TrackTaskTimeout = d
	}
	if file.Log.Level != "" {
		cfg.LogLevel = file.Log.Level
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LPFORGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.HTTPPort = port
		}
	}
	if v := os.Getenv("LPFORGE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LPFORGE_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if d := parseDuration(os.Getenv("LPFORGE_TOKEN_TTL")); d > 0 {
		cfg.TokenTTL = d
	}
	if v := os.Getenv("LPFORGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func parseDuration(v string) time.Duration {
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
