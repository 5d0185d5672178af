package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultInitial is the document shown before anything is pasted.
const DefaultInitial = `{"instruction": "Paste JSON to begin"}`

// Config represents the complete configuration for jsonform
type Config struct {
	Text      TextConfig      `yaml:"text"`
	Clipboard ClipboardConfig `yaml:"clipboard"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Export    ExportConfig    `yaml:"export"`
	Initial   string          `yaml:"initial"`
}

// TextConfig controls the textual view
type TextConfig struct {
	Indent  string `yaml:"indent"`
	Lenient bool   `yaml:"lenient"` // accept comments and trailing commas
}

// ClipboardConfig selects the clipboard programs.
// Empty commands fall back to the platform defaults.
type ClipboardConfig struct {
	ReadCmd  []string      `yaml:"read_cmd"`
	WriteCmd []string      `yaml:"write_cmd"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ServerConfig controls the HTTP host
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	Dev          bool     `yaml:"dev"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// StoreConfig controls where session snapshots are kept. An empty
// RedisAddr keeps them in memory. IdleTimeout stops live sessions that have
// not been used for that long; their snapshots outlive them until TTL.
type StoreConfig struct {
	RedisAddr   string        `yaml:"redis_addr"`
	RedisDB     int           `yaml:"redis_db"`
	Password    string        `yaml:"password"`
	Prefix      string        `yaml:"prefix"`
	TTL         time.Duration `yaml:"ttl"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// LogConfig controls logging
type LogConfig struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"` // stderr, stdout or a file path
	Format string `yaml:"format"` // console, json or empty for auto
}

// ExportConfig controls file export
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Text: TextConfig{
			Indent:  "  ",
			Lenient: false,
		},
		Clipboard: ClipboardConfig{
			Timeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Addr:         "localhost:8080",
			MaxBodyBytes: 1 << 20,
		},
		Store: StoreConfig{
			Prefix:      "jsonform:",
			TTL:         24 * time.Hour,
			IdleTimeout: 30 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Output: "stderr",
		},
		Export: ExportConfig{
			Dir: ".",
		},
		Initial: DefaultInitial,
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".jsonform.yml", ".jsonform.yaml", "jsonform.yml", "jsonform.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Search up the directory tree
	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root directory
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks values that YAML cannot constrain
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level '%s'", c.Log.Level)
	}

	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log format '%s'", c.Log.Format)
	}

	if strings.TrimSpace(c.Text.Indent) != "" {
		return fmt.Errorf("text indent must be whitespace, got %q", c.Text.Indent)
	}
	if c.Clipboard.Timeout < 0 {
		return fmt.Errorf("clipboard timeout must not be negative")
	}
	if c.Store.IdleTimeout < 0 {
		return fmt.Errorf("store idle_timeout must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server max_body_bytes must be positive")
	}
	if strings.TrimSpace(c.Initial) == "" {
		return fmt.Errorf("initial document must not be empty")
	}
	return nil
}

// Overrides holds values given on the command line. Zero values mean
// "not set"; Lenient and Dev are pointers so an explicit false is kept.
type Overrides struct {
	Indent    string
	Lenient   *bool
	Addr      string
	Dev       *bool
	RedisAddr string
	LogLevel  string
	ExportDir string
}

// MergeConfigs merges CLI overrides into a base config
// Non-empty values from override take precedence over base values
func MergeConfigs(base *Config, override Overrides) *Config {
	merged := *base

	if override.Indent != "" {
		merged.Text.Indent = override.Indent
	}
	if override.Lenient != nil {
		merged.Text.Lenient = *override.Lenient
	}
	if override.Addr != "" {
		merged.Server.Addr = override.Addr
	}
	if override.Dev != nil {
		merged.Server.Dev = *override.Dev
	}
	if override.RedisAddr != "" {
		merged.Store.RedisAddr = override.RedisAddr
	}
	if override.LogLevel != "" {
		merged.Log.Level = override.LogLevel
	}
	if override.ExportDir != "" {
		merged.Export.Dir = override.ExportDir
	}

	return &merged
}

// LoadConfigWithCLI loads config with CLI argument precedence:
// CLI > config file > defaults
func LoadConfigWithCLI(configPath string, override Overrides) (*Config, error) {
	cfg := NewConfig()

	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	cfg = MergeConfigs(cfg, override)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
