package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rgehrsitz/hatgo/internal/hat"
)

var _ hat.Logger = (*Logger)(nil)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, level, err := New(Config{Level: tt.level})
			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.Equal(t, tt.want, level.Level())
		})
	}
}

func TestNew_Rejects(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid level")

	_, _, err = New(Config{Format: "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestNew_JSON(t *testing.T) {
	logger, _, err := New(Config{Level: "info", Format: FormatJSON})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestLogger_Printf(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromCore(core).With("country", "AT")

	logger.Debugf("matched %d groups", 3)
	logger.Infof("year %d", 2030)
	logger.Warnf("short by %.1f m3", 12.5)
	logger.Errorf("halted")

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, "matched 3 groups", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "short by 12.5 m3", entries[2].Message)
	assert.Equal(t, "AT", entries[3].ContextMap()["country"])
}

func TestLogger_LevelFilters(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := NewFromCore(core)

	logger.Infof("hidden")
	logger.Warnf("shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}
