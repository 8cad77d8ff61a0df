package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() Config {
	var c Config
	c.LoadDefaults()
	return c
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "http://localhost:8000", c.BaseURL)
	assert.Equal(t, "kindergarten", c.Profile)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, "pantry.notifications", c.NATSSubject)
	assert.False(t, c.OfflineLogin)
	assert.NoError(t, c.Validate())
}

func TestLoad_NoSources(t *testing.T) {
	cfg, err := Load(nil, "")
	require.NoError(t, err)

	want := defaults()
	assert.Empty(t, cmp.Diff(&want, cfg))
}

func TestLoad_Precedence(t *testing.T) {
	envFile := writeFile(t, ".env", "PANTRY_PROFILE=expenses\nPANTRY_TIMEOUT=3s\nPANTRY_BASE_URL=http://from-dotenv:1\n")
	t.Setenv("PANTRY_BASE_URL", "http://from-env:2")

	cfgFile := writeFile(t, "pantry.yaml", "profile: surplus\nstale_time: 1m\nmetrics_addr: \":9102\"\n")

	cfg, err := Load([]string{"-c", cfgFile, "-t", "7s", "-offline", "-unrelated", "x"}, envFile)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:2", cfg.BaseURL, "process env beats .env")
	assert.Equal(t, "surplus", cfg.Profile, "file beats env")
	assert.Equal(t, 7*time.Second, cfg.RequestTimeout, "flag beats env")
	assert.Equal(t, time.Minute, cfg.StaleTime)
	assert.Equal(t, ":9102", cfg.MetricsAddr)
	assert.True(t, cfg.OfflineLogin)
}

func TestLoad_JSONFile(t *testing.T) {
	cfgFile := writeFile(t, "pantry.json", `{"base_url": "https://api.example.com", "profile": "expenses", "request_timeout": "5s"}`)

	cfg, err := Load([]string{"-config", cfgFile}, "")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, "expenses", cfg.Profile)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "bad timeout flag", args: []string{"-t", "soon"}},
		{name: "unknown profile", args: []string{"-p", "bakery"}},
		{name: "not a url", args: []string{"-a", "localhost:8000"}},
		{name: "missing config file", args: []string{"-c", "/does/not/exist.yaml"}},
		{name: "bad env duration", env: map[string]string{"PANTRY_STALE_TIME": "long"}},
		{name: "bad env bool", env: map[string]string{"PANTRY_OFFLINE_LOGIN": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.args, "")
			assert.Error(t, err)
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	cfgFile := writeFile(t, "bad.yaml", "profile: [unclosed")
	_, err := Load([]string{"-c", cfgFile}, "")
	assert.Error(t, err)
}

func TestValidate_Wraps(t *testing.T) {
	c := defaults()
	c.RequestTimeout = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
}
