package logger

import (
	"chess-loader/internal/config"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// New returns the bootstrap logger. It logs everything until FromConfig
// applies LOG_LEVEL.
func New() zerolog.Logger {
	return newLogger(os.Stdout, zerolog.DebugLevel)
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(w).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(level)
}

// FromConfig re-levels the bootstrap logger once the configuration is known.
func FromConfig(cfg *config.Config, base zerolog.Logger) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		base.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	return base.Level(level)
}

var Module = fx.Provide(New)
