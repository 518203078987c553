package service_test

import (
	"chess-loader/internal/api"
	"chess-loader/internal/config"
	"chess-loader/internal/domain"
	"chess-loader/internal/extract"
	"chess-loader/internal/load"
	"chess-loader/internal/runctx"
	"chess-loader/internal/service"
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	players []domain.PlayerHandle
	runIDs  []string
	runs    []*domain.RunSummary
}

func (r *recorder) LoadPlayers(ctx context.Context, batch []domain.PlayerHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players = append(r.players, batch...)
	r.runIDs = append(r.runIDs, runctx.RunID(ctx))
	return nil
}

func (r *recorder) LoadProfiles(context.Context, []domain.PlayerProfile) error { return nil }

func (r *recorder) LoadGames(context.Context, []domain.GameRecord) error { return nil }

func (r *recorder) SaveRun(_ context.Context, s *domain.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, s)
	return nil
}

func newService(t *testing.T, environ []string, fake api.Fetcher, dest load.Destination) *service.LoaderService {
	t.Helper()
	cfg, err := config.Parse(environ)
	require.NoError(t, err)

	x := extract.NewExtractor(fake, extract.Options{}, zerolog.Nop())
	o := load.NewOrchestrator(dest, load.Options{}, zerolog.Nop())
	return service.NewLoaderService(x, o, cfg, zerolog.Nop())
}

func TestLoadUsesConfiguredTitleAndCap(t *testing.T) {
	fake := api.NewFakeFetcher().
		Respond("titled/IM", api.Payload{"players": []any{"x", "y", "z"}}).
		Respond("player/x", api.Payload{"player_id": 1.0}).
		Respond("player/x/games/archives", api.Payload{"archives": []any{}})
	dest := &recorder{}

	s := newService(t, []string{"TITLE_GROUP=im", "MAX_PLAYERS=1"}, fake, dest)
	summary := s.Load(context.Background())

	require.Equal(t, domain.StatusSuccess, summary.Status())
	require.Equal(t, domain.TitleGroup("IM"), summary.TitleGroup)
	require.Len(t, dest.players, 1)
	require.Equal(t, "x", dest.players[0].Username)
	require.Zero(t, fake.Calls("player/y"))

	require.Len(t, dest.runs, 1)
	require.NotEmpty(t, summary.RunID)
	require.Equal(t, []string{summary.RunID}, dest.runIDs)
}

func TestLoadEachRunGetsItsOwnID(t *testing.T) {
	fake := api.NewFakeFetcher().Respond("titled/GM", api.Payload{"players": []any{}})
	dest := &recorder{}
	s := newService(t, nil, fake, dest)

	first := s.Load(context.Background())
	second := s.Load(context.Background())

	require.NotEqual(t, first.RunID, second.RunID)
	require.Equal(t, 2, fake.Calls("titled/GM"))
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, service.ExitCode(domain.StatusSuccess))
	require.Equal(t, 0, service.ExitCode(domain.StatusPartial))
	require.Equal(t, 1, service.ExitCode(domain.StatusFailed))
	require.Equal(t, 1, service.ExitCode(domain.StatusCancelled))
}
