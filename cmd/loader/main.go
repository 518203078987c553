package main

import (
	"chess-loader/internal/constants"
	fxmodules "chess-loader/internal/fx"
	"chess-loader/internal/service"
	"context"
	"database/sql"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// outcome carries the exit code of the load run out of the fx graph. It stays
// 1 until a run finishes.
type outcome struct {
	code atomic.Int32
}

func newOutcome() *outcome {
	o := &outcome{}
	o.code.Store(1)
	return o
}

func main() {
	var result *outcome
	app := fx.New(
		fxmodules.New(
			fx.Provide(newOutcome),
			fx.Invoke(runLoader),
			fx.Populate(&result),
		),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		os.Exit(1)
	}

	sig := <-app.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		os.Exit(1)
	}

	code := int(result.code.Load())
	if sig.ExitCode > code {
		code = sig.ExitCode
	}
	os.Exit(code)
}

func runLoader(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	loader *service.LoaderService,
	result *outcome,
	db *sql.DB,
	logger zerolog.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)

				summary := loader.Load(ctx)
				code := service.ExitCode(summary.Status())
				result.code.Store(int32(code))

				logger.Info().
					Str("run_id", summary.RunID).
					Str("status", string(summary.Status())).
					Int("loaded", summary.Loaded()).
					Int("failures", len(summary.Failures())).
					Int("exit_code", code).
					Msg("load complete")

				if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					logger.Debug().Err(err).Msg("shutdown already in progress")
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			logger.Info().Msg("shutting down loader")
			cancel()

			select {
			case <-done:
			case <-stopCtx.Done():
				logger.Warn().Msg("load run did not stop before shutdown timeout")
			}

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			logger.Info().Msg("loader stopped")
			return nil
		},
	})
}
