package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".jsonform.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "  ", cfg.Text.Indent)
	assert.False(t, cfg.Text.Lenient)
	assert.Equal(t, 5*time.Second, cfg.Clipboard.Timeout)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Empty(t, cfg.Store.RedisAddr)
	assert.Equal(t, 30*time.Minute, cfg.Store.IdleTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ".", cfg.Export.Dir)
	assert.Equal(t, DefaultInitial, cfg.Initial)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_LoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
text:
  indent: "    "
  lenient: true
clipboard:
  read_cmd: ["xsel", "-o"]
  write_cmd: ["xsel", "-i"]
  timeout: 2s
server:
  addr: ":9000"
  dev: true
store:
  redis_addr: "localhost:6379"
  redis_db: 2
  ttl: 1h
  idle_timeout: 5m
log:
  level: debug
  format: json
export:
  dir: /tmp/exports
initial: '[1, 2]'
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "    ", cfg.Text.Indent)
	assert.True(t, cfg.Text.Lenient)
	assert.Equal(t, []string{"xsel", "-o"}, cfg.Clipboard.ReadCmd)
	assert.Equal(t, []string{"xsel", "-i"}, cfg.Clipboard.WriteCmd)
	assert.Equal(t, 2*time.Second, cfg.Clipboard.Timeout)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.True(t, cfg.Server.Dev)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 2, cfg.Store.RedisDB)
	assert.Equal(t, time.Hour, cfg.Store.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Store.IdleTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/exports", cfg.Export.Dir)
	assert.Equal(t, "[1, 2]", cfg.Initial)

	// untouched sections keep their defaults
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "jsonform:", cfg.Store.Prefix)
}

func TestConfig_LoadNonExistentFile(t *testing.T) {
	_, err := LoadConfig("/non/existent/config.yml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no such file or directory")
}

func TestConfig_LoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, `
text:
  indent: [unclosed array
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "unknown log level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "unknown log format"},
		{"non-space indent", func(c *Config) { c.Text.Indent = "--" }, "text indent"},
		{"negative timeout", func(c *Config) { c.Clipboard.Timeout = -time.Second }, "clipboard timeout"},
		{"negative idle timeout", func(c *Config) { c.Store.IdleTimeout = -time.Second }, "idle_timeout"},
		{"zero body", func(c *Config) { c.Server.MaxBodyBytes = 0 }, "max_body_bytes"},
		{"blank initial", func(c *Config) { c.Initial = "  " }, "initial document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_LoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "log:\n  level: chatty\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config file")
}

func TestConfig_FindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	nestedDir := filepath.Join(tmpDir, "project", "subdir")
	require.NoError(t, os.MkdirAll(nestedDir, 0o755))

	configPath := filepath.Join(tmpDir, "project", ".jsonform.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(`initial: '{"found": true}'`), 0o644))

	originalWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(originalWd) }()
	require.NoError(t, os.Chdir(nestedDir))

	// Should find it in the parent directory
	foundPath := FindConfigFile()
	require.NotEmpty(t, foundPath, "Should find config file")

	foundContent, err := os.ReadFile(foundPath)
	require.NoError(t, err)
	assert.Contains(t, string(foundContent), `"found": true`)
}

func TestConfig_FindConfigFileNotFound(t *testing.T) {
	tmpDir := t.TempDir()

	originalWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(originalWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	assert.Empty(t, FindConfigFile())
}

func TestConfig_MergeWithCLI(t *testing.T) {
	base := NewConfig()
	base.Server.Addr = ":7000"
	base.Text.Lenient = true

	off := false
	merged := MergeConfigs(base, Overrides{
		Addr:      ":9999",
		Lenient:   &off,
		LogLevel:  "warn",
		ExportDir: "out",
	})

	assert.Equal(t, ":9999", merged.Server.Addr)
	assert.False(t, merged.Text.Lenient)
	assert.Equal(t, "warn", merged.Log.Level)
	assert.Equal(t, "out", merged.Export.Dir)
	assert.Equal(t, "  ", merged.Text.Indent) // not overridden

	// base untouched
	assert.Equal(t, ":7000", base.Server.Addr)
	assert.True(t, base.Text.Lenient)
}

func TestLoadConfigWithPrecedence(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":7000"
  dev: true
log:
  level: debug
`)

	on := false
	cfg, err := LoadConfigWithCLI(path, Overrides{Addr: ":9000", Dev: &on})
	require.NoError(t, err)

	// CLI > config file > defaults
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.False(t, cfg.Server.Dev)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "  ", cfg.Text.Indent)
}

func TestLoadConfigWithPrecedence_NoOverrides(t *testing.T) {
	path := writeConfig(t, "text:\n  lenient: true\n")

	cfg, err := LoadConfigWithCLI(path, Overrides{})
	require.NoError(t, err)
	assert.True(t, cfg.Text.Lenient)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr)
}

func TestLoadConfigWithCLI_NoFile(t *testing.T) {
	cfg, err := LoadConfigWithCLI("", Overrides{RedisAddr: "redis:6379"})
	require.NoError(t, err)
	assert.Equal(t, "redis:6379", cfg.Store.RedisAddr)

	_, err = LoadConfigWithCLI("", Overrides{LogLevel: "shout"})
	assert.Error(t, err)
}
