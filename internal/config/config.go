// Package config provides configuration management for mdpreview using Viper
// for loading from files, environment variables and command-line flags.
//
// The configuration supports a YAML file (.mdpreview.yml), environment
// variable overrides with the MDPREVIEW_ prefix and validation. It covers
// the preview server, render settings, metadata defaults, the transform
// stage list, the render cache and logging.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/mdpreview/internal/settings"
	"github.com/spf13/viper"
)

// Default values applied when a key is not set.
const (
	DefaultHost              = "localhost"
	DefaultPort              = 8080
	DefaultDebounce          = 200 * time.Millisecond
	DefaultMinUpdateInterval = 50 * time.Millisecond
	DefaultCacheCapacity     = 10
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

type Config struct {
	Server    ServerConfig           `mapstructure:"server" yaml:"server" json:"server"`
	Preview   PreviewConfig          `mapstructure:"preview" yaml:"preview" json:"preview"`
	Metadata  MetadataConfig         `mapstructure:"metadata" yaml:"metadata" json:"metadata"`
	Stages    []settings.StageConfig `mapstructure:"stages" yaml:"stages" json:"stages"`
	Cache     CacheConfig            `mapstructure:"cache" yaml:"cache" json:"cache"`
	LogLevel  string                 `mapstructure:"log-level" yaml:"log-level" json:"log-level"`
	LogFormat string                 `mapstructure:"log-format" yaml:"log-format" json:"log-format"`
	Document  string                 `mapstructure:"-" yaml:"-" json:"-"` // CLI argument, not from config file
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port" json:"port"`
	Host           string   `mapstructure:"host" yaml:"host" json:"host"`
	Open           bool     `mapstructure:"open" yaml:"open" json:"open"`
	NoOpen         bool     `mapstructure:"no-open" yaml:"-" json:"-"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins" json:"allowed_origins"`
}

type PreviewConfig struct {
	Theme              string        `mapstructure:"theme" yaml:"theme" json:"theme"`
	Template           string        `mapstructure:"template" yaml:"template" json:"template"`
	TemplateEnabled    bool          `mapstructure:"template_enabled" yaml:"template_enabled" json:"template_enabled"`
	HideLeadingHeading bool          `mapstructure:"hide_leading_heading" yaml:"hide_leading_heading" json:"hide_leading_heading"`
	Highlight          bool          `mapstructure:"highlight" yaml:"highlight" json:"highlight"`
	HighlightStyle     string        `mapstructure:"highlight_style" yaml:"highlight_style" json:"highlight_style"`
	Debounce           time.Duration `mapstructure:"debounce" yaml:"debounce" json:"debounce"`
	MinUpdateInterval  time.Duration `mapstructure:"min_update_interval" yaml:"min_update_interval" json:"min_update_interval"`
	Isolation          bool          `mapstructure:"isolation" yaml:"isolation" json:"isolation"`
	TemplatesDir       string        `mapstructure:"templates_dir" yaml:"templates_dir" json:"templates_dir"`
	ThemesDir          string        `mapstructure:"themes_dir" yaml:"themes_dir" json:"themes_dir"`
}

type MetadataConfig struct {
	Author string `mapstructure:"author" yaml:"author" json:"author"`
}

type CacheConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity" json:"capacity"`
}

// Load reads the configuration from the global viper instance, applies
// defaults for unset keys and validates the result.
func Load() (*Config, error) {
	config, err := Decode(viper.GetViper())
	if err != nil {
		return nil, err
	}

	// Validate configuration values
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SetDefaults registers a default for every scalar key. Viper only
// unmarshals keys it knows about, so without these an environment override
// of a key that has no file entry or bound flag would be ignored.
func SetDefaults(v *viper.Viper) {
	defaults := settings.Default()

	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.open", true)
	v.SetDefault("server.no-open", false)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("preview.theme", defaults.ThemeID)
	v.SetDefault("preview.template", defaults.TemplateID)
	v.SetDefault("preview.template_enabled", defaults.TemplateEnabled)
	v.SetDefault("preview.hide_leading_heading", defaults.HideLeadingHeading)
	v.SetDefault("preview.highlight", defaults.Highlight)
	v.SetDefault("preview.highlight_style", defaults.HighlightStyle)
	v.SetDefault("preview.debounce", DefaultDebounce)
	v.SetDefault("preview.min_update_interval", DefaultMinUpdateInterval)
	v.SetDefault("preview.isolation", false)
	v.SetDefault("preview.templates_dir", "")
	v.SetDefault("preview.themes_dir", "")

	v.SetDefault("metadata.author", "")
	v.SetDefault("cache.capacity", DefaultCacheCapacity)
	v.SetDefault("log-level", DefaultLogLevel)
	v.SetDefault("log-format", DefaultLogFormat)
}

// Decode unmarshals v and applies defaults for unset keys without
// validating, so callers can report every problem at once.
func Decode(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// An explicitly empty host falls back to the default
	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}

	// Override open if no-open was explicitly set via flag
	if v.GetBool("server.no-open") {
		config.Server.Open = false
	}

	defaults := settings.Default()
	if config.Preview.Theme == "" {
		config.Preview.Theme = defaults.ThemeID
	}
	if config.Preview.Template == "" {
		config.Preview.Template = defaults.TemplateID
	}
	if config.Preview.HighlightStyle == "" {
		config.Preview.HighlightStyle = defaults.HighlightStyle
	}

	// Stages keep the built-in order unless a list is configured
	if len(config.Stages) == 0 {
		config.Stages = defaults.Stages
	}

	if config.Cache.Capacity == 0 {
		config.Cache.Capacity = DefaultCacheCapacity
	}

	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}
	if config.LogFormat == "" {
		config.LogFormat = DefaultLogFormat
	}

	return &config, nil
}

// Snapshot returns the initial render settings described by the config.
func (c *Config) Snapshot() settings.Snapshot {
	snap := settings.Snapshot{
		ThemeID:            c.Preview.Theme,
		TemplateID:         c.Preview.Template,
		TemplateEnabled:    c.Preview.TemplateEnabled,
		HideLeadingHeading: c.Preview.HideLeadingHeading,
		Highlight:          c.Preview.Highlight,
		HighlightStyle:     c.Preview.HighlightStyle,
		Stages:             c.Stages,
	}
	return snap.Clone()
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validatePreviewConfig(&config.Preview); err != nil {
		return fmt.Errorf("preview config: %w", err)
	}

	if err := validateStages(config.Stages); err != nil {
		return fmt.Errorf("stages: %w", err)
	}

	if config.Cache.Capacity < 1 {
		return fmt.Errorf("cache capacity must be positive, got %d", config.Cache.Capacity)
	}

	switch strings.ToLower(config.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", config.LogFormat)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

func validatePreviewConfig(config *PreviewConfig) error {
	if config.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	if config.MinUpdateInterval < 0 {
		return fmt.Errorf("min_update_interval must not be negative")
	}

	for key, dir := range map[string]string{
		"templates_dir": config.TemplatesDir,
		"themes_dir":    config.ThemesDir,
	} {
		if dir == "" {
			continue
		}
		if err := validatePath(dir); err != nil {
			return fmt.Errorf("invalid %s '%s': %w", key, dir, err)
		}
	}

	return nil
}

func validateStages(stages []settings.StageConfig) error {
	seen := make(map[string]bool, len(stages))
	for i, st := range stages {
		if strings.TrimSpace(st.ID) == "" {
			return fmt.Errorf("stage %d has no id", i)
		}
		if seen[st.ID] {
			return fmt.Errorf("stage %q listed twice", st.ID)
		}
		seen[st.ID] = true
	}
	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
