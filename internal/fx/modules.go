package fx

import (
	"chess-loader/internal/api"
	"chess-loader/internal/config"
	"chess-loader/internal/database"
	"chess-loader/internal/extract"
	"chess-loader/internal/load"
	"chess-loader/internal/logger"
	"chess-loader/internal/repository"
	"chess-loader/internal/retrier"
	"chess-loader/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// ProvideFetcher serves the chess.com API, or a fixture file in dry-run mode,
// behind the configured retry policy.
func ProvideFetcher(cfg *config.Config, logger zerolog.Logger) (api.Fetcher, error) {
	var source api.Fetcher = api.NewHTTPFetcher(cfg)
	if cfg.DryRunFixture != "" {
		fake, err := api.LoadFixture(cfg.DryRunFixture)
		if err != nil {
			return nil, err
		}
		logger.Warn().Str("fixture", cfg.DryRunFixture).Msg("dry run, serving responses from fixture")
		source = fake
	}

	policy := retrier.NewPolicy(cfg.RetryMaxAttempts, cfg.RetryBaseDelay, cfg.RetryMaxDelay)
	return api.NewRetryingFetcher(source, policy), nil
}

func ProvideExtractor(fetcher api.Fetcher, cfg *config.Config, logger zerolog.Logger) *extract.Extractor {
	return extract.NewExtractor(fetcher, extract.Options{
		Workers:       cfg.FetchWorkers,
		ArchiveMonths: cfg.ArchiveMonths,
	}, logger)
}

func ProvideOrchestrator(dest load.Destination, cfg *config.Config, logger zerolog.Logger) *load.Orchestrator {
	return load.NewOrchestrator(dest, load.Options{BatchSize: cfg.LoadBatchSize}, logger)
}

var Module = fx.Options(
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewGameRepository),
	fx.Provide(repository.NewRunRepository),
	fx.Provide(fx.Annotate(repository.NewWarehouse, fx.As(new(load.Destination)))),
	// api client
	fx.Provide(ProvideFetcher),
	// pipeline
	fx.Provide(ProvideExtractor),
	fx.Provide(ProvideOrchestrator),
	// svc
	fx.Provide(service.NewLoaderService),
)

// New assembles the application. The configuration is loaded with the
// bootstrap logger; everything in Module and opts sees the logger leveled by
// LOG_LEVEL.
func New(opts ...fx.Option) fx.Option {
	return fx.Options(
		logger.Module,
		config.Module,
		fx.Module("loader",
			fx.Decorate(logger.FromConfig),
			Module,
			fx.Options(opts...),
		),
	)
}
