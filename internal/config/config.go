package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/mdbook-jinja/internal/globals"
)

// Section is the key of the preprocessor table in book.toml.
const Section = "preprocessor.jinja"

// UndefinedBehavior selects how templates treat undefined variables.
type UndefinedBehavior int

const (
	Strict UndefinedBehavior = iota
	Lenient
	Chainable
)

func (u UndefinedBehavior) String() string {
	switch u {
	case Strict:
		return "strict"
	case Lenient:
		return "lenient"
	case Chainable:
		return "chainable"
	}
	return fmt.Sprintf("undefined_behavior(%d)", int(u))
}

func (u *UndefinedBehavior) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "strict":
		*u = Strict
	case "lenient":
		*u = Lenient
	case "chainable":
		*u = Chainable
	default:
		return fmt.Errorf("invalid undefined_behavior %q (expected lenient, chainable or strict)", string(b))
	}
	return nil
}

// Keys the host places in every preprocessor table; they are not ours but
// are not worth a warning either.
var hostKeys = map[string]bool{
	"command":   true,
	"renderers": true,
	"before":    true,
	"after":     true,
	"optional":  true,
}

// Config is the preprocessor.jinja table.
type Config struct {
	Variables         map[string]any    `mapstructure:"variables"`
	VariablesFile     string            `mapstructure:"variables_file"`
	UndefinedBehavior UndefinedBehavior `mapstructure:"undefined_behavior"`
	TemplatesDir      string            `mapstructure:"templates_dir"`
	PreprocessSummary bool              `mapstructure:"preprocess_summary"`
	PreludeString     string            `mapstructure:"prelude_string"`
	GlobalEnv         bool              `mapstructure:"global_env"`

	// Unknown lists keys in the table that no field consumed.
	Unknown []string `mapstructure:"-"`
}

// Default returns the configuration used for keys the table omits.
func Default() *Config {
	return &Config{
		Variables:         map[string]any{},
		UndefinedBehavior: Strict,
		TemplatesDir:      "templates",
	}
}

// Decode reads a preprocessor table on top of the defaults. Type mismatches
// and unknown undefined_behavior values are errors.
func Decode(section map[string]any) (*Config, error) {
	cfg := Default()
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
		),
		Metadata: &md,
		Result:   cfg,
		TagName:  "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(section); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Section, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Variables == nil {
		cfg.Variables = map[string]any{}
	}
	cfg.Variables = globals.Normalize(cfg.Variables).(map[string]any)

	for _, k := range md.Unused {
		if !hostKeys[k] {
			cfg.Unknown = append(cfg.Unknown, k)
		}
	}
	sort.Strings(cfg.Unknown)
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.UndefinedBehavior {
	case Strict, Lenient, Chainable:
	default:
		return fmt.Errorf("%s: invalid undefined_behavior %v", Section, c.UndefinedBehavior)
	}
	if c.TemplatesDir == "" {
		return fmt.Errorf("%s: templates_dir must not be empty", Section)
	}
	return nil
}

// LoadVariablesFile merges the top-level keys of variables_file, resolved
// against root, into Variables. Keys already declared inline win.
func (c *Config) LoadVariablesFile(root string) error {
	if c.VariablesFile == "" {
		return nil
	}
	path := c.VariablesFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read variables file: %w", err)
	}

	vars := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &vars)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &vars)
	case ".json":
		dec := json.NewDecoder(strings.NewReader(string(data)))
		dec.UseNumber()
		err = dec.Decode(&vars)
	default:
		return fmt.Errorf("unsupported variables file extension: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("parse variables file %s: %w", path, err)
	}

	vars = globals.Normalize(vars).(map[string]any)
	if c.Variables == nil {
		c.Variables = map[string]any{}
	}
	for k, v := range vars {
		if _, ok := c.Variables[k]; !ok {
			c.Variables[k] = v
		}
	}
	return nil
}
