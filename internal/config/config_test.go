package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_RequiresCredentials(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_URL")
}

func TestLoad_RequiresAnonKey(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_ANON_KEY")
}

func TestLoad_FromYAML(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")
	path := writeConfigFile(t, `
supabase_url: https://proj.supabase.co
supabase_anon_key: anon-key
request_timeout: 10s
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://proj.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, "anon-key", cfg.SupabaseAnonKey)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
supabase_url: https://file.supabase.co
supabase_anon_key: file-key
`)
	t.Setenv("SUPABASE_URL", "https://env.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, "file-key", cfg.SupabaseAnonKey)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.SessionDir)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://proj.supabase.co", cfg.SupabaseURL)
}
