package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env    string       `mapstructure:"env" validate:"oneof=development production"`
	UserID string       `mapstructure:"user_id"`
	DB     DBConfig     `mapstructure:"db"`
	Remote RemoteConfig `mapstructure:"remote"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

type DBConfig struct {
	Type string `mapstructure:"type" validate:"oneof=sqlite postgres"`
	Path string `mapstructure:"path" validate:"required_if=Type sqlite"`
	DSN  string `mapstructure:"dsn" validate:"required_if=Type postgres"`
}

type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=0"`
}

type SyncConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"min=0"`
	Debounce time.Duration `mapstructure:"debounce" validate:"min=0"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr" validate:"required"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File  string `mapstructure:"file"`
}

// envBindings maps config keys to environment variables
var envBindings = map[string]string{
	"env":               "WORDSYNC_ENV",
	"user_id":           "WORDSYNC_USER_ID",
	"db.type":           "WORDSYNC_DB_TYPE",
	"db.path":           "WORDSYNC_DB_PATH",
	"db.dsn":            "WORDSYNC_DB_DSN",
	"remote.base_url":   "WORDSYNC_REMOTE_URL",
	"remote.token":      "WORDSYNC_TOKEN",
	"remote.timeout":    "WORDSYNC_REMOTE_TIMEOUT",
	"sync.interval":     "WORDSYNC_SYNC_INTERVAL",
	"sync.debounce":     "WORDSYNC_SYNC_DEBOUNCE",
	"server.addr":       "WORDSYNC_SERVER_ADDR",
	"server.jwt_secret": "WORDSYNC_JWT_SECRET",
	"log.level":         "WORDSYNC_LOG_LEVEL",
	"log.file":          "WORDSYNC_LOG_FILE",
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Env: "development",
		DB: DBConfig{
			Type: "sqlite",
			Path: filepath.Join("data", "wordsync.db"),
		},
		Remote: RemoteConfig{
			Timeout: 15 * time.Second,
		},
		Sync: SyncConfig{
			Interval: 5 * time.Minute,
			Debounce: 2 * time.Second,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads .env, then the config file, then the environment. path may be
// empty, in which case configs/<CONFIG_NAME or default>.yaml is used if it
// exists.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, DefaultConfig())

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		configName := os.Getenv("CONFIG_NAME")
		if configName == "" {
			configName = "default"
		}
		v.AddConfigPath("configs")
		v.SetConfigName(configName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("env", d.Env)
	v.SetDefault("user_id", d.UserID)
	v.SetDefault("db.type", d.DB.Type)
	v.SetDefault("db.path", d.DB.Path)
	v.SetDefault("db.dsn", d.DB.DSN)
	v.SetDefault("remote.base_url", d.Remote.BaseURL)
	v.SetDefault("remote.token", d.Remote.Token)
	v.SetDefault("remote.timeout", d.Remote.Timeout)
	v.SetDefault("sync.interval", d.Sync.Interval)
	v.SetDefault("sync.debounce", d.Sync.Debounce)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.jwt_secret", d.Server.JWTSecret)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}
