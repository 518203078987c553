package load

import (
	"chess-loader/internal/api"
	"chess-loader/internal/constants"
	"chess-loader/internal/domain"
	"chess-loader/internal/extract"
	"chess-loader/internal/retrier"
	"chess-loader/internal/runctx"
	"context"
	"errors"
	"iter"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Destination persists extracted records. Each Load call receives a batch the
// destination owns from then on.
type Destination interface {
	LoadPlayers(ctx context.Context, batch []domain.PlayerHandle) error
	LoadProfiles(ctx context.Context, batch []domain.PlayerProfile) error
	LoadGames(ctx context.Context, batch []domain.GameRecord) error
	SaveRun(ctx context.Context, summary *domain.RunSummary) error
}

type Options struct {
	BatchSize int
}

type Orchestrator struct {
	dest   Destination
	opts   Options
	logger zerolog.Logger
}

func NewOrchestrator(dest Destination, opts Options, logger zerolog.Logger) *Orchestrator {
	if opts.BatchSize < 1 {
		opts.BatchSize = constants.DBBatchSize
	}
	return &Orchestrator{dest: dest, opts: opts, logger: logger}
}

// Run drains the three streams into the destination and reports the outcome.
// Per-record failures are recorded and skipped; a roster failure aborts the
// run with status failed. ctx should be the context the streams were
// extracted with so that cancelling it stops both fetching and loading.
func (o *Orchestrator) Run(ctx context.Context, title domain.TitleGroup, streams *extract.Streams) *domain.RunSummary {
	runID := runctx.RunID(ctx)
	if runID == "" {
		runID = uuid.New().String()
	}
	summary := domain.NewRunSummary(runID, title)
	logger := o.logger.With().Str("run_id", runID).Str("title_group", string(title)).Logger()

	logger.Info().Int("batch_size", o.opts.BatchSize).Msg("load run started")

	size := o.opts.BatchSize
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consume(gctx, logger, summary, size, domain.KindPlayer, streams.Players, o.dest.LoadPlayers)
	})
	g.Go(func() error {
		return consume(gctx, logger, summary, size, domain.KindProfile, streams.Profiles, o.dest.LoadProfiles)
	})
	g.Go(func() error {
		return consume(gctx, logger, summary, size, domain.KindGame, streams.Games, o.dest.LoadGames)
	})
	err := g.Wait()

	fatal := errors.Is(err, extract.ErrRosterUnavailable)
	if fatal {
		summary.AddFailure(domain.Failure{Kind: domain.KindRoster, Path: failedPath(err), Err: err})
		logger.Error().Err(err).Msg("roster unavailable, aborting run")
	}
	status := summary.Finish(fatal, ctx.Err() != nil)

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DatabaseTimeout)
	defer cancel()
	if err := o.dest.SaveRun(saveCtx, summary); err != nil {
		logger.Warn().Err(err).Msg("failed to save run summary")
	}

	logger.Info().
		Str("status", string(status)).
		Int("players", summary.Players()).
		Int("profiles", summary.Profiles()).
		Int("games", summary.Games()).
		Int("failures", len(summary.Failures())).
		Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("load run finished")

	return summary
}

// consume streams records of one kind into load in batches. It returns an
// error only for a roster failure.
func consume[T any](
	ctx context.Context,
	logger zerolog.Logger,
	summary *domain.RunSummary,
	size int,
	kind domain.EntityKind,
	seq iter.Seq2[T, error],
	load func(context.Context, []T) error,
) error {
	logger = logger.With().Str("kind", string(kind)).Logger()

	batch := make([]T, 0, size)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := load(ctx, batch); err != nil {
			logger.Error().Err(err).Int("records", len(batch)).Msg("failed to load batch")
			summary.AddFailure(domain.Failure{Kind: kind, Path: "load:" + string(kind), Err: err})
		} else {
			summary.AddLoaded(kind, len(batch))
		}
		batch = make([]T, 0, size)
	}

	for record, err := range seq {
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			if errors.Is(err, extract.ErrRosterUnavailable) {
				return err
			}
			// A cancellation of the run itself ends the loop above; anything
			// reporting itself cancelled while the run is live is a failure.
			if retrier.IsKind(err, retrier.Cancelled) && ctx.Err() != nil {
				break
			}
			path := failedPath(err)
			logger.Warn().Err(err).Str("path", path).Msg("record skipped")
			summary.AddFailure(domain.Failure{Kind: kind, Path: path, Err: err})
			continue
		}

		batch = append(batch, record)
		if len(batch) >= size {
			flush(ctx)
		}
	}

	// Whatever was fetched before a cancellation is still loaded.
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DatabaseTimeout)
	defer cancel()
	flush(flushCtx)
	return nil
}

func failedPath(err error) string {
	var failed *api.FetchFailed
	if errors.As(err, &failed) {
		return failed.Path
	}
	return ""
}
