package api

import (
	"chess-loader/internal/retrier"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var rateLimited = retrier.NewFault(retrier.Retryable, 429, errors.New("API error: 429"))

func TestRetryingFetcherSucceedsAfterTransientFaults(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4} {
		fake := NewFakeFetcher()
		for range n - 1 {
			fake.Fail("player/a", rateLimited)
		}
		fake.Respond("player/a", Payload{"username": "a"})

		f := NewRetryingFetcher(fake, retrier.Policy{MaxAttempts: n, Backoff: retrier.NoDelay})
		p, err := f.Fetch(context.Background(), "player/a")
		require.NoError(t, err)
		require.Equal(t, "a", p["username"])
		require.Equal(t, n, fake.Calls("player/a"))
	}
}

func TestRetryingFetcherExhaustsRetries(t *testing.T) {
	fake := NewFakeFetcher().Fail("titled/GM", rateLimited)
	f := NewRetryingFetcher(fake, retrier.Policy{MaxAttempts: 3, Backoff: retrier.NoDelay})

	_, err := f.Fetch(context.Background(), "titled/GM")

	var failed *FetchFailed
	require.ErrorAs(t, err, &failed)
	require.Equal(t, "titled/GM", failed.Path)

	var exhausted *retrier.RetriesExhausted
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Attempts)
	require.Equal(t, 3, fake.Calls("titled/GM"))
}

func TestRetryingFetcherNonRetryableShortCircuits(t *testing.T) {
	fake := NewFakeFetcher()
	f := NewRetryingFetcher(fake, retrier.Policy{MaxAttempts: 5, Backoff: retrier.NoDelay})

	_, err := f.Fetch(context.Background(), "player/ghost")

	var failed *FetchFailed
	require.ErrorAs(t, err, &failed)
	require.True(t, retrier.IsKind(err, retrier.NonRetryable))
	require.Equal(t, 1, fake.Calls("player/ghost"))
}

func TestFakeFetcherScriptRepeatsLastStep(t *testing.T) {
	fake := NewFakeFetcher().
		Fail("p", rateLimited).
		Respond("p", Payload{"n": 1.0})

	_, err := fake.Fetch(context.Background(), "p")
	require.Error(t, err)
	for range 3 {
		p, err := fake.Fetch(context.Background(), "p")
		require.NoError(t, err)
		require.Equal(t, 1.0, p["n"])
	}
	require.Equal(t, []string{"p", "p", "p", "p"}, fake.Requested())
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"titled/GM": {"players": ["magnuscarlsen", "hikaru"]},
		"player/hikaru": {"player_id": 15448422, "username": "hikaru"}
	}`), 0o600))

	fake, err := LoadFixture(path)
	require.NoError(t, err)

	p, err := fake.Fetch(context.Background(), "titled/GM")
	require.NoError(t, err)
	players, err := p.Strings("players")
	require.NoError(t, err)
	require.Equal(t, []string{"magnuscarlsen", "hikaru"}, players)
}

func TestPaths(t *testing.T) {
	require.Equal(t, "titled/GM", RosterPath("GM"))
	require.Equal(t, "player/hikaru", ProfilePath("Hikaru"))
	require.Equal(t, "player/hikaru/games/archives", ArchivesPath("hikaru"))

	p, err := ArchivePath("https://api.chess.com/pub/player/hikaru/games/2024/01")
	require.NoError(t, err)
	require.Equal(t, "player/hikaru/games/2024/01", p)

	_, err = ArchivePath("https://api.chess.com/pub/titled/GM")
	require.Error(t, err)
}

func TestPayloadAccessors(t *testing.T) {
	p := Payload{
		"players": []any{"a", 2.0},
		"games":   []any{map[string]any{"url": "u"}},
	}

	_, err := p.Strings("players")
	require.Error(t, err)
	_, err = p.Strings("missing")
	require.Error(t, err)

	games, err := p.Objects("games")
	require.NoError(t, err)
	require.Equal(t, "u", games[0]["url"])

	none, err := p.Objects("missing")
	require.NoError(t, err)
	require.Empty(t, none)
}
