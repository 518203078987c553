package api

import (
	"chess-loader/internal/retrier"
	"context"

	"github.com/rs/zerolog"
)

// RetryingFetcher wraps another Fetcher in the retry policy and attributes
// every failure to its path.
type RetryingFetcher struct {
	next   Fetcher
	policy retrier.Policy
}

func NewRetryingFetcher(next Fetcher, policy retrier.Policy) *RetryingFetcher {
	return &RetryingFetcher{next: next, policy: policy}
}

func (f *RetryingFetcher) Fetch(ctx context.Context, path string) (Payload, error) {
	logger := zerolog.Ctx(ctx).With().Str("path", path).Logger()
	ctx = logger.WithContext(ctx)

	payload, err := retrier.Do(ctx, f.policy, func(ctx context.Context) (Payload, error) {
		return f.next.Fetch(ctx, path)
	})
	if err != nil {
		logger.Debug().Err(err).Msg("fetch failed")
		return nil, &FetchFailed{Path: path, Err: err}
	}
	return payload, nil
}
