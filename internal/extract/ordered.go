package extract

import (
	"chess-loader/internal/domain"
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
)

type result[T any] struct {
	v   T
	err error
}

// ordered runs fn for every handle and yields the flattened results in handle
// order. With more than one worker, fn runs on a bounded pool that stays at
// most 2*workers handles ahead of the consumer. Nothing is yielded once ctx is
// done.
func ordered[T any](ctx context.Context, handles []domain.PlayerHandle, workers int, fn func(context.Context, domain.PlayerHandle) []result[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		emit := func(rs []result[T]) bool {
			for _, r := range rs {
				if ctx.Err() != nil || !yield(r.v, r.err) {
					return false
				}
			}
			return true
		}

		if workers <= 1 {
			for _, h := range handles {
				if ctx.Err() != nil || !emit(fn(ctx, h)) {
					return
				}
			}
			return
		}

		ctx, cancel := context.WithCancel(ctx)

		slots := make([]chan []result[T], len(handles))
		for i := range slots {
			slots[i] = make(chan []result[T], 1)
		}
		ahead := make(chan struct{}, 2*workers)

		var g errgroup.Group
		g.SetLimit(workers)
		launched := make(chan struct{})
		go func() {
			defer close(launched)
			for i, h := range handles {
				select {
				case ahead <- struct{}{}:
				case <-ctx.Done():
					return
				}
				g.Go(func() error {
					slots[i] <- fn(ctx, h)
					return nil
				})
			}
		}()

		defer func() {
			cancel()
			<-launched
			_ = g.Wait()
		}()

		for i := range slots {
			select {
			case rs := <-slots[i]:
				<-ahead
				if !emit(rs) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}
