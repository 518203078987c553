package runctx

import (
	"chess-loader/internal/domain"
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const RunIDKey contextKey = "run_id"

// New tags ctx with a fresh run ID and a logger carrying it, so everything
// below the run (fetchers, retrier, repositories) logs with the same fields.
func New(ctx context.Context, logger zerolog.Logger, title domain.TitleGroup) (context.Context, string) {
	runID := uuid.New().String()

	ctx = context.WithValue(ctx, RunIDKey, runID)

	loggerWithID := logger.With().
		Str("run_id", runID).
		Str("title_group", string(title)).
		Logger()
	ctx = loggerWithID.WithContext(ctx)

	return ctx, runID
}

func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}
