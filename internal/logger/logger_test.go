package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logpkg "github.com/maxviazov/care-events-dashboard/internal/logger"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		config      *logpkg.LoggerConfig
		expectError bool
		wantLevel   zerolog.Level
	}{
		{
			name: "valid production environment",
			config: &logpkg.LoggerConfig{
				ServiceName: "test-service",
				Env:         "prod",
				Level:       "info",
				TimeField:   "timestamp",
				TimeFormat:  "unix",
				Fields:      map[string]interface{}{"key": "value"},
			},
			wantLevel: zerolog.InfoLevel,
		},
		{
			name:        "invalid configuration - wrong env",
			config:      &logpkg.LoggerConfig{Env: "wrong-env", Level: "debug"},
			expectError: true,
		},
		{
			name:        "invalid log level",
			config:      &logpkg.LoggerConfig{Env: "prod", Level: "invalid-level"},
			expectError: true,
		},
		{
			name:        "invalid output target",
			config:      &logpkg.LoggerConfig{Env: "prod", OutputTarget: "syslog"},
			expectError: true,
		},
		{
			name:      "valid staging environment",
			config:    &logpkg.LoggerConfig{Env: "staging", Level: "warn", OutputTarget: "stderr", Stacktrace: true},
			wantLevel: zerolog.WarnLevel,
		},
		{
			name:      "dev defaults to debug",
			config:    &logpkg.LoggerConfig{Env: "dev", DebugFile: filepath.Join(os.TempDir(), "care-events-dashboard-test", "debug.log")},
			wantLevel: zerolog.DebugLevel,
		},
		{
			name:      "dev json format",
			config:    &logpkg.LoggerConfig{Env: "dev", Level: "error", Format: "json"},
			wantLevel: zerolog.ErrorLevel,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := logpkg.New(test.config)
			if test.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantLevel, zerolog.GlobalLevel())
		})
	}

	t.Run("debug log file creation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "debug.log")
		config := &logpkg.LoggerConfig{
			ServiceName: "integration-test",
			Env:         "dev",
			Level:       "debug",
			DebugFile:   path,
		}

		_, err := logpkg.New(config)
		require.NoError(t, err)

		_, statErr := os.Stat(path)
		assert.NoError(t, statErr)
	})

	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })
}
