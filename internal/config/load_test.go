package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
[api]
base_url = "https://blobs.example.com"
download_dir = "/tmp/downloads"

[auth]
client_id = "00000000-0000-0000-0000-000000000001"
tenant = "contoso.onmicrosoft.com"
scopes = ["openid", "offline_access", "api://blobs/access"]

[network]
timeout = "10s"
requests_per_second = 2.5
user_agent = "blobfm-ci"

[ui]
notification_ttl = "3s"
emoji = "never"
expand_concurrency = 8

[logging]
log_level = "debug"
log_format = "json"
log_file = "/tmp/blobfm.log"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://blobs.example.com", cfg.API.BaseURL)
	assert.Equal(t, "/tmp/downloads", cfg.API.DownloadDir)
	assert.Equal(t, "contoso.onmicrosoft.com", cfg.Auth.Tenant)
	assert.Equal(t, []string{"openid", "offline_access", "api://blobs/access"}, cfg.Auth.Scopes)
	assert.InDelta(t, 2.5, cfg.Network.RequestsPerSecond, 0.001)
	assert.Equal(t, "blobfm-ci", cfg.Network.UserAgent)
	assert.Equal(t, EmojiNever, cfg.UI.Emoji)
	assert.Equal(t, 8, cfg.UI.ExpandConcurrency)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, "[auth]\nclient_id = \"abc\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.Auth.ClientID)
	assert.Equal(t, defaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, defaultTenant, cfg.Auth.Tenant)
	assert.Equal(t, defaultScopes, cfg.Auth.Scopes)
	assert.Equal(t, defaultNotificationTTL, cfg.UI.NotificationTTL)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, "[api\nbase_url = ")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeTestConfig(t, "[ui]\nemoji = \"sometimes\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "emoji")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_Precedence(t *testing.T) {
	envPath := writeTestConfig(t, "[api]\nbase_url = \"http://from-env-file:1\"\n")
	cliPath := writeTestConfig(t, "[api]\nbase_url = \"http://from-cli-file:2\"\n")

	r, err := Resolve(EnvOverrides{ConfigPath: envPath}, CLIOverrides{ConfigPath: cliPath})
	require.NoError(t, err)
	assert.Equal(t, cliPath, r.ConfigPath)
	assert.Equal(t, "http://from-cli-file:2", r.API.BaseURL)

	r, err = Resolve(EnvOverrides{ConfigPath: envPath, APIURL: "http://env-url:3"}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "http://env-url:3", r.API.BaseURL, "env beats file")

	flag := "http://flag-url:4"
	r, err = Resolve(EnvOverrides{ConfigPath: envPath, APIURL: "http://env-url:3"}, CLIOverrides{APIURL: &flag})
	require.NoError(t, err)
	assert.Equal(t, flag, r.API.BaseURL, "flag beats env")
}

func TestResolve_ParsesDurationsAndPaths(t *testing.T) {
	path := writeTestConfig(t, "[network]\ntimeout = \"45s\"\n[ui]\nnotification_ttl = \"2s\"\n")

	r, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, r.Timeout)
	assert.Equal(t, 2*time.Second, r.NotificationTTL)
	assert.Equal(t, DefaultTokenPath(), r.TokenPath)
	assert.Equal(t, DefaultStatePath(), r.StatePath)
}

func TestResolve_InvalidOverrideRejected(t *testing.T) {
	bad := "not a url"

	_, err := Resolve(EnvOverrides{ConfigPath: filepath.Join(t.TempDir(), "none.toml")}, CLIOverrides{APIURL: &bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestResolve_EnvLogLevel(t *testing.T) {
	path := writeTestConfig(t, "[logging]\nlog_level = \"info\"\n")

	r, err := Resolve(EnvOverrides{LogLevel: "debug"}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "debug", r.Logging.LogLevel)

	_, err = Resolve(EnvOverrides{LogLevel: "loud"}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoad_UnknownKeyNamesFile(t *testing.T) {
	path := writeTestConfig(t, "[api]\nbase_ulr = \"http://x\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.Contains(t, err.Error(), `did you mean "api.base_url"`)
}
