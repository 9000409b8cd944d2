package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     slog.Level
	}{
		{
			name:     "debug level",
			logLevel: "debug",
			want:     slog.LevelDebug,
		},
		{
			name:     "info level",
			logLevel: "info",
			want:     slog.LevelInfo,
		},
		{
			name:     "warn level",
			logLevel: "warn",
			want:     slog.LevelWarn,
		},
		{
			name:     "error level",
			logLevel: "error",
			want:     slog.LevelError,
		},
		{
			name:     "invalid level defaults to info",
			logLevel: "invalid",
			want:     slog.LevelInfo,
		},
		{
			name:     "empty level defaults to info",
			logLevel: "",
			want:     slog.LevelInfo,
		},
		{
			name:     "case insensitive DEBUG",
			logLevel: "DEBUG",
			want:     slog.LevelDebug,
		},
		{
			name:     "warning alias",
			logLevel: "warning",
			want:     slog.LevelWarn,
		},
		{
			name:     "surrounding whitespace",
			logLevel: "  error ",
			want:     slog.LevelError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.logLevel))

			Setup(tt.logLevel)
			assert.NotNil(t, slog.Default())
			assert.True(t, slog.Default().Enabled(context.Background(), tt.want))
			if tt.want > slog.LevelDebug {
				assert.False(t, slog.Default().Enabled(context.Background(), tt.want-4))
			}
		})
	}
}

func TestSetupNoErrors(t *testing.T) {
	// Verify Setup can be called multiple times without panic
	Setup("info")
	Setup("debug")
	Setup("warn")
	Setup("error")

	assert.NotNil(t, slog.Default())
}
