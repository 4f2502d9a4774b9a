// Package config loads ragchat settings from defaults, an optional YAML
// file, RAGCHAT_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/api"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override file
// settings, e.g. RAGCHAT_SERVER_BASE_URL.
const EnvPrefix = "RAGCHAT"

// Config mirrors the YAML file layout.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Chat   ChatConfig   `mapstructure:"chat"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig locates the backend.
type ServerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds non-streaming requests. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChatConfig holds the initial conversation selection.
type ChatConfig struct {
	DefaultModel string `mapstructure:"default_model"`
	TopK         int    `mapstructure:"top_k"`
	Context      string `mapstructure:"context"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // "json" or "console"
	OutputPath string `mapstructure:"output_path"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"base-url":        "server.base_url",
	"request-timeout": "server.timeout",
	"model":           "chat.default_model",
	"top-k":           "chat.top_k",
	"context":         "chat.context",
	"log-level":       "log.level",
}

// DefaultPath returns ~/.ragchat/config.yaml, or "" when the home directory
// is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ragchat", "config.yaml")
}

// Load reads the configuration. An explicit path must exist; when path is
// empty the default file is read if present. Flags that were set on the
// command line override every other source; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readFile(v, path); err != nil {
		return Config{}, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url must be set: %w", ragchat.ErrValidation)
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must be non-negative: %w", ragchat.ErrValidation)
	}
	if c.Chat.TopK < 0 {
		return fmt.Errorf("chat.top_k must be non-negative: %w", ragchat.ErrValidation)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q: %w", c.Log.Format, ragchat.ErrValidation)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.base_url", api.DefaultBaseURL)
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("chat.default_model", ragchat.DefaultModel)
	v.SetDefault("chat.top_k", ragchat.DefaultTopK)
	v.SetDefault("chat.context", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_path", "")
}

func readFile(v *viper.Viper, path string) error {
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}
	def := DefaultPath()
	if def == "" {
		return nil
	}
	v.SetConfigFile(def)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", def, err)
	}
	return nil
}
