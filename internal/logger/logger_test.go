package logger

import (
	"bytes"
	"chess-loader/internal/config"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFromConfigLevels(t *testing.T) {
	var buf bytes.Buffer
	base := newLogger(&buf, zerolog.DebugLevel)

	l := FromConfig(&config.Config{LogLevel: "WARN"}, base)
	require.Equal(t, zerolog.WarnLevel, l.GetLevel())
	require.Zero(t, buf.Len())

	l.Info().Msg("dropped")
	require.Zero(t, buf.Len())

	l.Warn().Msg("kept")
	require.Contains(t, buf.String(), `"message":"kept"`)
	require.Contains(t, buf.String(), `"caller"`)
}

func TestFromConfigUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	base := newLogger(&buf, zerolog.DebugLevel)

	for _, level := range []string{"loud", ""} {
		buf.Reset()
		l := FromConfig(&config.Config{LogLevel: level}, base)
		require.Equal(t, zerolog.InfoLevel, l.GetLevel())
		require.Contains(t, buf.String(), "unknown log level")
	}
}
