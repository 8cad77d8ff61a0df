package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "http://127.0.0.1:9090", "-p", "surplus", "-t", "2s", "-d", "x.db", "-offline", "-m", ":9100", "-n", "nats://localhost:4222", "-l", "debug"},
			expected: Config{
				BaseURL:        "http://127.0.0.1:9090",
				Profile:        "surplus",
				RequestTimeout: 2 * time.Second,
				DBPath:         "x.db",
				OfflineLogin:   true,
				MetricsAddr:    ":9100",
				NATSURL:        "nats://localhost:4222",
				LogLevel:       "debug",
			},
		},
		{
			name:     "foreign flags ignored",
			args:     []string{"-i", "10", "-a=http://h:1"},
			expected: Config{BaseURL: "http://h:1"},
		},
		{
			name:    "bad duration",
			args:    []string{"-t", "abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{}
			err := parseFlags(&cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
