// Package extract walks the title group → roster → profile/games hierarchy
// and exposes each entity kind as its own lazy stream.
//
// Streams share one roster fetch. Every per-player request is issued only when
// a consumer pulls from the stream that needs it, so a caller can start loading
// players and profiles while games are still being fetched. A failed request
// for one player is yielded as the error half of the pair and iteration moves
// on to the next player. A failed roster request is yielded once, wrapped in
// ErrRosterUnavailable, from every stream.
//
// Streams are single-pass. Ranging over a stream a second time yields nothing;
// call Extract again to start over.
package extract

import (
	"chess-loader/internal/api"
	"chess-loader/internal/domain"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var ErrRosterUnavailable = errors.New("roster unavailable")

type Options struct {
	// Workers bounds concurrent per-player fetches. 1 keeps every fetch on
	// the consumer's goroutine.
	Workers int

	// ArchiveMonths is how many of the most recent monthly game archives are
	// fetched per player. Zero or less fetches all of them.
	ArchiveMonths int
}

type Extractor struct {
	fetcher api.Fetcher
	opts    Options
	logger  zerolog.Logger
}

func NewExtractor(fetcher api.Fetcher, opts Options, logger zerolog.Logger) *Extractor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Extractor{fetcher: fetcher, opts: opts, logger: logger}
}

type Streams struct {
	Players  iter.Seq2[domain.PlayerHandle, error]
	Profiles iter.Seq2[domain.PlayerProfile, error]
	Games    iter.Seq2[domain.GameRecord, error]
}

// MaxPlayers returns a player cap for Extract.
func MaxPlayers(n int) *int { return &n }

// Extract prepares the streams for title. maxPlayers keeps the first n
// handles in source order; nil means no cap and n <= 0 yields empty streams.
// Nothing is fetched until a stream is ranged over.
func (e *Extractor) Extract(ctx context.Context, title domain.TitleGroup, maxPlayers *int) *Streams {
	// Prefer the run logger carried by ctx.
	if zerolog.Ctx(ctx).GetLevel() == zerolog.Disabled {
		ctx = e.logger.With().Str("title_group", string(title)).Logger().WithContext(ctx)
	}
	r := &roster{e: e, title: title, maxPlayers: maxPlayers}
	return &Streams{
		Players:  singlePass(e.players(ctx, r)),
		Profiles: singlePass(e.profiles(ctx, r)),
		Games:    singlePass(e.games(ctx, r)),
	}
}

type roster struct {
	e          *Extractor
	title      domain.TitleGroup
	maxPlayers *int

	once    sync.Once
	handles []domain.PlayerHandle
	err     error
}

func (r *roster) get(ctx context.Context) ([]domain.PlayerHandle, error) {
	r.once.Do(func() {
		r.handles, r.err = r.fetch(ctx)
	})
	return r.handles, r.err
}

func (r *roster) fetch(ctx context.Context) ([]domain.PlayerHandle, error) {
	logger := zerolog.Ctx(ctx)

	if r.maxPlayers != nil && *r.maxPlayers <= 0 {
		logger.Info().Int("max_players", *r.maxPlayers).Msg("player cap is zero, skipping roster")
		return nil, nil
	}

	path := api.RosterPath(r.title)
	payload, err := r.e.fetcher.Fetch(ctx, path)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch roster")
		return nil, fmt.Errorf("%w: %w", ErrRosterUnavailable, err)
	}

	usernames, err := payload.Strings("players")
	if err != nil {
		logger.Error().Err(err).Msg("malformed roster")
		return nil, fmt.Errorf("%w: %w", ErrRosterUnavailable, &api.FetchFailed{Path: path, Err: decodeFault(err)})
	}

	total := len(usernames)
	if r.maxPlayers != nil && *r.maxPlayers < len(usernames) {
		usernames = usernames[:*r.maxPlayers]
	}

	handles := make([]domain.PlayerHandle, len(usernames))
	for i, u := range usernames {
		handles[i] = domain.PlayerHandle{TitleGroup: r.title, Username: u, Position: i}
	}

	logger.Info().Int("roster_size", total).Int("retained", len(handles)).Msg("roster fetched")
	return handles, nil
}

func (e *Extractor) players(ctx context.Context, r *roster) iter.Seq2[domain.PlayerHandle, error] {
	return func(yield func(domain.PlayerHandle, error) bool) {
		handles, err := r.get(ctx)
		if err != nil {
			yield(domain.PlayerHandle{}, err)
			return
		}
		for _, h := range handles {
			if ctx.Err() != nil || !yield(h, nil) {
				return
			}
		}
	}
}

func (e *Extractor) profiles(ctx context.Context, r *roster) iter.Seq2[domain.PlayerProfile, error] {
	return func(yield func(domain.PlayerProfile, error) bool) {
		handles, err := r.get(ctx)
		if err != nil {
			yield(domain.PlayerProfile{}, err)
			return
		}
		for p, err := range ordered(ctx, handles, e.opts.Workers, e.fetchProfile) {
			if !yield(p, err) {
				return
			}
		}
	}
}

func (e *Extractor) games(ctx context.Context, r *roster) iter.Seq2[domain.GameRecord, error] {
	return func(yield func(domain.GameRecord, error) bool) {
		handles, err := r.get(ctx)
		if err != nil {
			yield(domain.GameRecord{}, err)
			return
		}
		for g, err := range ordered(ctx, handles, e.opts.Workers, e.fetchGames) {
			if !yield(g, err) {
				return
			}
		}
	}
}

func (e *Extractor) fetchProfile(ctx context.Context, h domain.PlayerHandle) []result[domain.PlayerProfile] {
	path := api.ProfilePath(h.Username)
	payload, err := e.fetcher.Fetch(ctx, path)
	if err != nil {
		return []result[domain.PlayerProfile]{{err: err}}
	}

	profile, err := decodeProfile(payload)
	if err != nil {
		return []result[domain.PlayerProfile]{{err: &api.FetchFailed{Path: path, Err: decodeFault(err)}}}
	}
	if profile.Username == "" {
		profile.Username = h.Username
	}
	return []result[domain.PlayerProfile]{{v: profile}}
}

// fetchGames reads the archives listing and then each selected monthly
// archive. A failed archive does not prevent the remaining ones.
func (e *Extractor) fetchGames(ctx context.Context, h domain.PlayerHandle) []result[domain.GameRecord] {
	listing, err := e.fetcher.Fetch(ctx, api.ArchivesPath(h.Username))
	if err != nil {
		return []result[domain.GameRecord]{{err: err}}
	}

	archives, err := listing.Strings("archives")
	if err != nil {
		return []result[domain.GameRecord]{{err: &api.FetchFailed{Path: api.ArchivesPath(h.Username), Err: decodeFault(err)}}}
	}
	if n := e.opts.ArchiveMonths; n > 0 && len(archives) > n {
		archives = archives[len(archives)-n:]
	}

	var out []result[domain.GameRecord]
	for _, archiveURL := range archives {
		if ctx.Err() != nil {
			return out
		}

		path, err := api.ArchivePath(archiveURL)
		if err != nil {
			out = append(out, result[domain.GameRecord]{err: &api.FetchFailed{Path: archiveURL, Err: decodeFault(err)}})
			continue
		}

		payload, err := e.fetcher.Fetch(ctx, path)
		if err != nil {
			out = append(out, result[domain.GameRecord]{err: err})
			continue
		}

		games, err := payload.Objects("games")
		if err != nil {
			out = append(out, result[domain.GameRecord]{err: &api.FetchFailed{Path: path, Err: decodeFault(err)}})
			continue
		}

		for _, raw := range games {
			g, err := decodeGame(raw, h.Username)
			if err != nil {
				out = append(out, result[domain.GameRecord]{err: &api.FetchFailed{Path: path, Err: decodeFault(err)}})
				continue
			}
			out = append(out, result[domain.GameRecord]{v: g})
		}
	}

	zerolog.Ctx(ctx).Debug().
		Str("username", h.Username).
		Int("archives", len(archives)).
		Int("records", len(out)).
		Msg("game history fetched")
	return out
}

// singlePass makes a sequence yield nothing after its first iteration.
func singlePass[K, V any](seq iter.Seq2[K, V]) iter.Seq2[K, V] {
	var used atomic.Bool
	return func(yield func(K, V) bool) {
		if used.Swap(true) {
			return
		}
		seq(yield)
	}
}

// Collect drains a stream into values and errors. Intended for small rosters
// and tests.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, []error) {
	var (
		values []T
		errs   []error
	)
	for v, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values = append(values, v)
	}
	return slices.Clip(values), errs
}
