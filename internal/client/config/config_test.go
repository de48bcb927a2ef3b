package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.Equal(t, 10*time.Second, c.ConnectTimeout)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 5*time.Minute, c.StaleSyncingAfter)
}

func TestParseEnv_Variables(t *testing.T) {
	t.Setenv("RECIPESYNC_SERVER_URL", "http://sync.local:9000")
	t.Setenv("RECIPESYNC_SYNC_INTERVAL", "90s")
	t.Setenv("RECIPESYNC_LOG_LEVEL", "debug")

	c := defaults()
	require.NoError(t, parseEnv(c, ""))

	want := defaults()
	want.ServerURL = "http://sync.local:9000"
	want.SyncInterval = 90 * time.Second
	want.LogLevel = "debug"
	assert.Empty(t, cmp.Diff(want, c))
}

func TestParseEnv_BadDuration(t *testing.T) {
	t.Setenv("RECIPESYNC_REQUEST_TIMEOUT", "soon")

	err := parseEnv(defaults(), "")
	require.ErrorContains(t, err, "RECIPESYNC_REQUEST_TIMEOUT")
}

func TestParseEnv_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RECIPESYNC_DEVICE_ID=dev-from-file\n"), 0o600))
	t.Setenv("RECIPESYNC_DEVICE_ID", "")
	require.NoError(t, os.Unsetenv("RECIPESYNC_DEVICE_ID"))

	c := defaults()
	require.NoError(t, parseEnv(c, path))
	assert.Equal(t, "dev-from-file", c.DeviceID)
}

func TestParseEnv_MissingDotEnvIsFine(t *testing.T) {
	require.NoError(t, parseEnv(defaults(), filepath.Join(t.TempDir(), "absent.env")))
}

func TestParseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"server_url":      "https://example.org",
		"request_timeout": "12s",
		"sync_interval":   float64(time.Minute),
	})

	c := defaults()
	require.NoError(t, parseJson(c, []string{"list", "--config", path}))

	want := defaults()
	want.ConfigFile = path
	want.ServerURL = "https://example.org"
	want.RequestTimeout = 12 * time.Second
	want.SyncInterval = time.Minute
	assert.Empty(t, cmp.Diff(want, c))
}

func TestParseJson_Errors(t *testing.T) {
	require.Error(t, parseJson(defaults(), []string{"-c", filepath.Join(t.TempDir(), "nope.json")}))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	require.Error(t, parseJson(defaults(), []string{"-c", bad}))
}

func TestParseJson_NoFlag(t *testing.T) {
	c := defaults()
	require.NoError(t, parseJson(c, []string{"sync"}))
	assert.Empty(t, cmp.Diff(defaults(), c))
}

func TestBindFlags_OverrideEarlierLayers(t *testing.T) {
	c := defaults()
	c.ServerURL = "http://from-json"

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--db", "/tmp/x.db", "--request-timeout", "1s"}))

	assert.Equal(t, "http://from-json", c.ServerURL)
	assert.Equal(t, "/tmp/x.db", c.DatabasePath)
	assert.Equal(t, time.Second, c.RequestTimeout)
}

func TestLoadConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeTempJSON(t, map[string]any{"log_file": "client.log"})

	c, err := LoadConfig([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, "client.log", c.LogFile)
	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
}
