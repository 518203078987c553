// Package retrier wraps remote calls in a bounded retry policy.
//
// A Policy combines an attempt ceiling, a backoff factory and a Classifier.
// Retryable faults are retried with the policy's backoff until the ceiling is
// reached, at which point Do returns *RetriesExhausted carrying the last fault.
// Non-retryable faults are returned after the first call. Cancelling the
// context interrupts any pending backoff wait and no further calls are made.
package retrier

import (
	"chess-loader/internal/constants"
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// Policy configures Do. The zero value performs a single attempt with the
// default classifier.
type Policy struct {
	MaxAttempts int

	// Backoff returns fresh backoff state for one Do call. go-retry backoffs
	// are stateful and must not be shared between calls.
	Backoff func() retry.Backoff

	Classify Classifier
}

func NewPolicy(maxAttempts int, base, maxDelay time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff:     Exponential(base, maxDelay),
		Classify:    DefaultClassifier,
	}
}

// Exponential doubles the delay from base on every retry, with jitter, capping
// each delay at maxDelay when maxDelay is positive.
func Exponential(base, maxDelay time.Duration) func() retry.Backoff {
	if base <= 0 {
		return NoDelay
	}
	return func() retry.Backoff {
		b := retry.NewExponential(base)
		b = retry.WithJitterPercent(constants.RetryJitterPercent, b)
		if maxDelay > 0 {
			b = retry.WithCappedDuration(maxDelay, b)
		}
		return b
	}
}

// Constant waits d between attempts.
func Constant(d time.Duration) func() retry.Backoff {
	if d <= 0 {
		return NoDelay
	}
	return func() retry.Backoff {
		return retry.NewConstant(d)
	}
}

// NoDelay retries immediately.
func NoDelay() retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	})
}

// Do runs op until it succeeds, fails with a non-retryable fault, exhausts
// p.MaxAttempts, or ctx is done.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	maxAttempts := max(p.MaxAttempts, 1)
	classify := p.Classify
	if classify == nil {
		classify = DefaultClassifier
	}
	next := NoDelay()
	if p.Backoff != nil {
		next = p.Backoff()
	}

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, NewFault(Cancelled, 0, err)
	}

	logger := zerolog.Ctx(ctx)

	var (
		result   T
		attempts int
		last     error
		lastKind FaultKind
	)

	delays := retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := next.Next()
		if stop {
			return 0, true
		}
		if d < 0 {
			d = 0
		}
		logger.Warn().
			Err(last).
			Int("attempt", attempts).
			Int("max_attempts", maxAttempts).
			Dur("delay", d).
			Msg("transient fault, retrying")
		return d, false
	})
	backoff := retry.WithMaxRetries(uint64(maxAttempts-1), delays)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		v, err := op(ctx)
		if err == nil {
			result = v
			return nil
		}
		last = err
		lastKind = classify(err)
		if lastKind == Retryable {
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case err == nil:
		return result, nil
	case ctx.Err() != nil:
		return zero, NewFault(Cancelled, 0, ctx.Err())
	case lastKind == Retryable:
		return zero, &RetriesExhausted{Attempts: attempts, Last: last}
	case lastKind == Cancelled:
		return zero, NewFault(Cancelled, 0, err)
	default:
		return zero, err
	}
}
