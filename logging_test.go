package dfir

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNoOpLogger_AlwaysDisabled(t *testing.T) {
	var l noOpLogger
	require.False(t, l.IsEnabled(LevelDebug))
	require.False(t, l.IsEnabled(LevelError))
	l.Logf(LevelError, "should not panic: %d", 1)
}

func TestZerologLogger_RespectsConfiguredLevel(t *testing.T) {
	z := zerolog.New(io.Discard).Level(zerolog.WarnLevel)
	logger := NewZerologLogger(z)

	require.False(t, logger.IsEnabled(LevelDebug))
	require.True(t, logger.IsEnabled(LevelWarn))
	require.True(t, logger.IsEnabled(LevelError))

	logger.Logf(LevelWarn, "dropped %d items", 3)
}

func TestLogLevel_String(t *testing.T) {
	require.Equal(t, "DEBUG", LevelDebug.String())
	require.Equal(t, "WARN", LevelWarn.String())
	require.Equal(t, "ERROR", LevelError.String())
}
