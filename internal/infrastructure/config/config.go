// Package config loads and saves the autotag configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/autotag/internal/infrastructure/watch"
	"github.com/felixgeelhaar/autotag/pkg/domain"
	"github.com/felixgeelhaar/autotag/pkg/domain/metadata"
	"github.com/felixgeelhaar/autotag/pkg/storage"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "autotag.yaml"

// DefaultTOMLFile is used instead of DefaultFile when only it exists.
const DefaultTOMLFile = "autotag.toml"

// EnvFile overrides DefaultFile.
const EnvFile = "AUTOTAG_CONFIG"

// Config is the on-disk configuration.
type Config struct {
	Watch     WatchSection     `yaml:"watch" toml:"watch"`
	Templates TemplatesSection `yaml:"templates" toml:"templates"`
	Tagging   TaggingSection   `yaml:"tagging" toml:"tagging"`
	Tagged    TaggedSection    `yaml:"tagged" toml:"tagged"`
	Convert   ConvertSection   `yaml:"convert" toml:"convert"`
	Log       LogSection       `yaml:"log" toml:"log"`
}

// WatchSection selects the data directory and file suffix.
type WatchSection struct {
	Directory string   `yaml:"directory" toml:"directory"`
	Suffix    string   `yaml:"suffix" toml:"suffix"`
	Exclude   []string `yaml:"exclude,omitempty" toml:"exclude,omitempty"`
	// ReloadOnChange reconfigures a running watch when this file is saved.
	ReloadOnChange bool `yaml:"reload_on_change" toml:"reload_on_change"`
}

// TemplatesSection selects the template directory and initial template.
type TemplatesSection struct {
	Directory string `yaml:"directory" toml:"directory"`
	Suffix    string `yaml:"suffix" toml:"suffix"`
	Selected  string `yaml:"selected,omitempty" toml:"selected,omitempty"`
	Strict    bool   `yaml:"strict" toml:"strict"`
}

// TaggingSection configures the default metadata updater.
type TaggingSection struct {
	StaticFields map[string]any `yaml:"static_fields,omitempty" toml:"static_fields,omitempty"`
	TimeFormat   string         `yaml:"time_format" toml:"time_format"`
}

// TaggedSection configures the persisted list of tagged files.
type TaggedSection struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	StateFile string `yaml:"state_file" toml:"state_file"`
	ListName  string `yaml:"list_name" toml:"list_name"`
}

// ConvertSection configures the external converter command.
type ConvertSection struct {
	Command string   `yaml:"command,omitempty" toml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty" toml:"args,omitempty"`
	// Builtin names an in-process converter used when Command is empty.
	Builtin         string        `yaml:"builtin,omitempty" toml:"builtin,omitempty"`
	Timeout         time.Duration `yaml:"timeout" toml:"timeout"`
	Workers         int           `yaml:"workers" toml:"workers"`
	RemoveConverted bool          `yaml:"remove_converted" toml:"remove_converted"`
}

// LogSection configures slog output.
type LogSection struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Watch: WatchSection{
			Directory: ".",
			Suffix:    ".csv",
		},
		Templates: TemplatesSection{
			Directory: "templates",
			Suffix:    ".yaml",
		},
		Tagging: TaggingSection{
			TimeFormat: metadata.DefaultTimeFormat,
		},
		Tagged: TaggedSection{
			Enabled:   true,
			StateFile: storage.DefaultStateFile,
			ListName:  "TaggedFiles",
		},
		Convert: ConvertSection{
			Timeout: 5 * time.Minute,
			Workers: 1,
		},
		Log: LogSection{
			Level:  "info",
			Format: "text",
		},
	}
}

// ResolvePath picks the config file: the explicit path, then $AUTOTAG_CONFIG,
// then DefaultFile.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvFile); env != "" {
		return env
	}
	if _, err := os.Stat(DefaultFile); errors.Is(err, os.ErrNotExist) {
		if _, err := os.Stat(DefaultTOMLFile); err == nil {
			return DefaultTOMLFile
		}
	}
	return DefaultFile
}

// IsTOML reports whether path is read and written as TOML rather than YAML.
func IsTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	// #nosec G304 -- config path is chosen by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	if IsTOML(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, &domain.ConfigurationError{Field: "config", Value: path, Reason: "invalid TOML", Err: err}
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &domain.ConfigurationError{Field: "config", Value: path, Reason: "invalid YAML", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg to path atomically, as TOML when path ends in .toml.
func Save(path string, cfg Config) error {
	data, err := encode(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return &domain.WriteError{Path: path, Err: err}
		}
	}
	if err := storage.AtomicWriteFile(path, data, 0600); err != nil {
		return &domain.WriteError{Path: path, Err: err}
	}
	return nil
}

// Validate checks values that can be verified without touching the filesystem.
func (c Config) Validate() error {
	if err := validateSuffix("watch.suffix", c.Watch.Suffix); err != nil {
		return err
	}
	if err := validateSuffix("templates.suffix", c.Templates.Suffix); err != nil {
		return err
	}
	if c.Watch.Directory == "" {
		return &domain.ConfigurationError{Field: "watch.directory", Reason: "directory is required"}
	}
	if c.Templates.Directory == "" {
		return &domain.ConfigurationError{Field: "templates.directory", Reason: "directory is required"}
	}
	if err := c.WatchConfig().Validate(); err != nil {
		return err
	}
	if c.Tagged.Enabled && c.Tagged.ListName == "" {
		return &domain.ConfigurationError{Field: "tagged.list_name", Reason: "list name is required when tagging history is enabled"}
	}
	if c.Convert.Timeout < 0 {
		return &domain.ConfigurationError{Field: "convert.timeout", Value: c.Convert.Timeout.String(), Reason: "must not be negative"}
	}
	if c.Convert.Workers < 0 {
		return &domain.ConfigurationError{Field: "convert.workers", Value: fmt.Sprint(c.Convert.Workers), Reason: "must not be negative"}
	}
	switch c.Convert.Builtin {
	case "", "zstd":
	default:
		return &domain.ConfigurationError{Field: "convert.builtin", Value: c.Convert.Builtin, Reason: "expected zstd"}
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &domain.ConfigurationError{Field: "log.level", Value: c.Log.Level, Reason: "expected debug, info, warn or error"}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return &domain.ConfigurationError{Field: "log.format", Value: c.Log.Format, Reason: "expected text or json"}
	}
	return nil
}

// WatchConfig returns the observer configuration for the data directory.
func (c Config) WatchConfig() watch.WatchConfig {
	return watch.WatchConfig{
		Directory: c.Watch.Directory,
		Suffix:    c.Watch.Suffix,
		Exclude:   append([]string(nil), c.Watch.Exclude...),
	}
}

func encode(path string, cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if IsTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func validateSuffix(field, suffix string) error {
	if suffix == "" {
		return &domain.ConfigurationError{Field: field, Reason: "suffix is required"}
	}
	if !strings.HasPrefix(suffix, ".") || strings.ContainsAny(suffix[1:], `./\`) || len(suffix) == 1 {
		return &domain.ConfigurationError{Field: field, Value: suffix, Reason: "must be a single extension such as .csv"}
	}
	return nil
}
