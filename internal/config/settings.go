// Package config loads the preprocessor.jinja table from a book's
// configuration and the process-level settings of the binary.
package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read into Settings.
const EnvPrefix = "MDBOOK_JINJA"

// Settings are process-level options: logging and the HTTP service.
type Settings struct {
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
	Addr         string `mapstructure:"addr"`
	APIKey       string `mapstructure:"api_key"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
	BookRoot     string `mapstructure:"book_root"`
}

// flag name -> settings key
var flagKeys = map[string]string{
	"log-level":      "log_level",
	"log-format":     "log_format",
	"addr":           "addr",
	"api-key":        "api_key",
	"max-body-bytes": "max_body_bytes",
	"book-root":      "book_root",
}

// LoadSettings reads Settings from MDBOOK_JINJA_* environment variables,
// overridden by any of the given flags that were set explicitly.
func LoadSettings(flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
	v.SetDefault("addr", "127.0.0.1:8090")
	v.SetDefault("api_key", "")
	v.SetDefault("max_body_bytes", int64(52428800)) // 50MB
	v.SetDefault("book_root", ".")

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Settings{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	if _, err := log.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	switch s.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("invalid log format %q (expected text, json or logfmt)", s.LogFormat)
	}
	if s.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", s.MaxBodyBytes)
	}
	return nil
}

// ValidateServe checks the settings the HTTP service needs on top of
// Validate.
func (s Settings) ValidateServe() error {
	if s.APIKey == "" {
		return fmt.Errorf("%s_API_KEY (or --api-key) is required to serve", EnvPrefix)
	}
	if s.BookRoot == "" {
		return fmt.Errorf("book root must not be empty")
	}
	return nil
}
