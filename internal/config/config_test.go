package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadFromPath(t *testing.T, path string) (Config, error) {
	t.Helper()
	b, err := newFileBackend(path)
	if err != nil {
		return Config{}, err
	}
	return loadWith(b)
}

// clearEnv blanks every SAHAYAK_* variable the key table reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when the config file is absent.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadFromPath(t, filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.Origins())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, AuthFirebase, cfg.Auth.Provider)
	assert.Equal(t, "sahayak-media", cfg.Media.Bucket)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, "tts-1", cfg.OpenAI.TTSModel)
	assert.Equal(t, "alloy", cfg.OpenAI.TTSVoice)
	assert.Equal(t, "whisper-1", cfg.OpenAI.STTModel)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, "openai", cfg.Modes.SchemesStrategy)
	assert.NotEmpty(t, cfg.Storage.DataDir)
}

// TestYAMLParsing verifies that fields are correctly read from a YAML file.
func TestYAMLParsing(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
server.port: 8080
server.allowed_origins: "https://sahayak.app, http://localhost:3000"
storage.data_dir: /tmp/sahayak-test
metrics.enabled: false
auth.provider: supabase
supabase.url: https://proj.supabase.co
openai.chat_model: gpt-4.1
modes.schemes_strategy: gemini_search
`)

	cfg, err := loadFromPath(t, path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"https://sahayak.app", "http://localhost:3000"}, cfg.Server.Origins())
	assert.Equal(t, "/tmp/sahayak-test", cfg.Storage.DataDir)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, AuthSupabase, cfg.Auth.Provider)
	assert.Equal(t, "https://proj.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "gpt-4.1", cfg.OpenAI.ChatModel)
	assert.Equal(t, "gemini_search", cfg.Modes.SchemesStrategy)
}

// TestSecretsIgnoredInFile verifies secrets are only taken from the environment.
func TestSecretsIgnoredInFile(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "openai.api_key: file-key\n")

	cfg, err := loadFromPath(t, path)
	require.NoError(t, err)
	assert.Empty(t, cfg.OpenAI.APIKey)

	t.Setenv("SAHAYAK_OPENAI_API_KEY", "env-key")
	cfg, err = loadFromPath(t, path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.OpenAI.APIKey)
}

// TestEnvOverride verifies that environment variables override file values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "server.port: 8080\nlog.level: warn\n")

	t.Setenv("SAHAYAK_SERVER_PORT", "9090")
	t.Setenv("SAHAYAK_LOG_LEVEL", "debug")
	t.Setenv("SAHAYAK_METRICS_ENABLED", "not-a-bool")

	cfg, err := loadFromPath(t, path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled, "unparseable env bool keeps the default")
}

func TestInvalidFileValues(t *testing.T) {
	clearEnv(t)

	_, err := loadFromPath(t, writeTempConfig(t, "server.port: lots\n"))
	assert.ErrorContains(t, err, "server.port")

	_, err = loadFromPath(t, writeTempConfig(t, "metrics.enabled: maybe\n"))
	assert.ErrorContains(t, err, "metrics.enabled")

	_, err = newFileBackend(writeTempConfig(t, "server.port: [unterminated\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := defaults()
		cfg.OpenAI.APIKey = "sk-test"
		cfg.Auth.FirebaseProjectID = "sahayak"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing openai key", func(c *Config) { c.OpenAI.APIKey = "" }, "SAHAYAK_OPENAI_API_KEY"},
		{"missing firebase project", func(c *Config) { c.Auth.FirebaseProjectID = "" }, "auth.firebase_project_id"},
		{"supabase without credentials", func(c *Config) { c.Auth.Provider = AuthSupabase }, "supabase.url"},
		{"unknown provider", func(c *Config) { c.Auth.Provider = "okta" }, "unknown auth.provider"},
		{"gemini without key", func(c *Config) { c.Modes.SchemesStrategy = "gemini_search" }, "SAHAYAK_GEMINI_API_KEY"},
		{"unknown strategy", func(c *Config) { c.Modes.SchemesStrategy = "bing" }, "unknown modes.schemes_strategy"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "OpenAI API key"))
	assert.True(t, strings.Contains(err.Error(), "auth.firebase_project_id"))
}

func TestFilePath(t *testing.T) {
	t.Setenv(PathEnv, "/etc/sahayak.yaml")
	assert.Equal(t, "/etc/sahayak.yaml", FilePath())

	t.Setenv(PathEnv, "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, "/xdg/sahayak/config.yaml", FilePath())
}

func TestServerAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:5000", ServerConfig{Host: "127.0.0.1", Port: 5000}.Addr())
}
