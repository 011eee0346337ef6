package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvTimeout, "")
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Zero(t, cfg.Timeout)
	assert.Equal(t, filepath.Join(dir, "state", "bookpilot"), cfg.StateDir)
	assert.Equal(t, filepath.Join(dir, "state", "bookpilot", "bookpilot.log"), cfg.LogFile)
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	content := "api_url: https://books.example.com/api/v1\ntimeout: 15s\nverbose: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://books.example.com/api/v1", cfg.APIURL)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.True(t, cfg.Verbose)
}

func TestLogFileFollowsStateDir(t *testing.T) {
	dir := isolate(t)
	state := filepath.Join(dir, "elsewhere")

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"derived from state_dir", "state_dir: " + state + "\n", filepath.Join(state, "bookpilot.log")},
		{"explicit log_file wins", "state_dir: " + state + "\nlog_file: " + filepath.Join(dir, "x.log") + "\n", filepath.Join(dir, "x.log")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, state, cfg.StateDir)
			assert.Equal(t, tt.want, cfg.LogFile)
		})
	}
}

func TestLoadDefaultFileLocation(t *testing.T) {
	dir := isolate(t)
	cfgDir := filepath.Join(dir, "config", "bookpilot")
	require.NoError(t, os.MkdirAll(cfgDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("api_url: http://10.0.0.2:8000/api/v1\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:8000/api/v1", cfg.APIURL)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: http://file/api\n"), 0644))
	t.Setenv(EnvAPIURL, "http://env/api")
	t.Setenv(EnvTimeout, "2m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env/api", cfg.APIURL)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "explicit missing file must fail")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("api_url: [unclosed"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)

	t.Setenv(EnvTimeout, "soon")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{APIURL: "http://localhost:8000/api/v1"}, false},
		{"empty url", Config{}, true},
		{"not http", Config{APIURL: "ftp://host"}, true},
		{"negative timeout", Config{APIURL: "https://x", Timeout: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
