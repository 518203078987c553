package service

import (
	"chess-loader/internal/config"
	"chess-loader/internal/constants"
	"chess-loader/internal/domain"
	"chess-loader/internal/extract"
	"chess-loader/internal/load"
	"chess-loader/internal/runctx"
	"context"

	"github.com/rs/zerolog"
)

type LoaderService struct {
	extractor    *extract.Extractor
	orchestrator *load.Orchestrator
	cfg          *config.Config
	logger       zerolog.Logger
}

func NewLoaderService(extractor *extract.Extractor, orchestrator *load.Orchestrator, cfg *config.Config, logger zerolog.Logger) *LoaderService {
	return &LoaderService{extractor: extractor, orchestrator: orchestrator, cfg: cfg, logger: logger}
}

// Load runs one extraction of the configured title group into the
// destination. The run stops after constants.RunTimeout or when ctx is
// cancelled, whichever comes first.
func (s *LoaderService) Load(ctx context.Context) *domain.RunSummary {
	ctx, cancel := context.WithTimeout(ctx, constants.RunTimeout)
	defer cancel()

	ctx, runID := runctx.New(ctx, s.logger, s.cfg.TitleGroup)

	event := s.logger.Info().Str("run_id", runID).Str("title_group", string(s.cfg.TitleGroup))
	if s.cfg.MaxPlayers != nil {
		event = event.Int("max_players", *s.cfg.MaxPlayers)
	}
	event.Msg("starting load")

	streams := s.extractor.Extract(ctx, s.cfg.TitleGroup, s.cfg.MaxPlayers)
	return s.orchestrator.Run(ctx, s.cfg.TitleGroup, streams)
}

// ExitCode maps a run status to a process exit code. Partial runs loaded
// something and count as success.
func ExitCode(status domain.RunStatus) int {
	switch status {
	case domain.StatusSuccess, domain.StatusPartial:
		return 0
	default:
		return 1
	}
}
