package repository

import (
	"chess-loader/internal/domain"
	"context"
	"database/sql"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

const upsertRun = `
INSERT INTO load_runs (run_id, title_group, status, players, profiles, games, failures, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id) DO UPDATE SET
    status = excluded.status,
    players = excluded.players,
    profiles = excluded.profiles,
    games = excluded.games,
    failures = excluded.failures,
    finished_at = excluded.finished_at`

const insertFailure = `
INSERT INTO load_failures (id, run_id, kind, path, error) VALUES (?, ?, ?, ?, ?)`

type RunRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRunRepository(sqlDB *sql.DB, logger zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// StoredRun is a load_runs row.
type StoredRun struct {
	RunID      string
	TitleGroup domain.TitleGroup
	Status     domain.RunStatus
	Players    int
	Profiles   int
	Games      int
	Failures   int
	StartedAt  time.Time
	FinishedAt time.Time
}

type StoredFailure struct {
	ID    string
	Kind  domain.EntityKind
	Path  string
	Error string
}

// Save records the outcome of a run together with its failures. Saving the
// same run again replaces its failures.
func (r *RunRepository) Save(ctx context.Context, s *domain.RunSummary) error {
	failures := s.Failures()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, upsertRun,
		s.RunID, string(s.TitleGroup), string(s.Status()),
		s.Players(), s.Profiles(), s.Games(), len(failures),
		s.StartedAt.UTC(), s.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert run %s: %w", s.RunID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM load_failures WHERE run_id = ?`, s.RunID); err != nil {
		return fmt.Errorf("failed to clear failures of run %s: %w", s.RunID, err)
	}

	for _, f := range failures {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}

		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		if _, err := tx.ExecContext(ctx, insertFailure, id, s.RunID, string(f.Kind), f.Path, msg); err != nil {
			return fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	r.logger.Debug().
		Str("run_id", s.RunID).
		Int("failures", len(failures)).
		Msg("run saved")
	return nil
}

func (r *RunRepository) Get(ctx context.Context, runID string) (*StoredRun, error) {
	var (
		run           StoredRun
		title, status string
	)
	err := r.db.QueryRowContext(ctx, `
SELECT run_id, title_group, status, players, profiles, games, failures, started_at, finished_at
FROM load_runs WHERE run_id = ?`, runID).Scan(
		&run.RunID, &title, &status, &run.Players, &run.Profiles, &run.Games, &run.Failures,
		&run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	run.TitleGroup = domain.TitleGroup(title)
	run.Status = domain.RunStatus(status)
	return &run, nil
}

func (r *RunRepository) GetFailures(ctx context.Context, runID string) ([]StoredFailure, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, path, error FROM load_failures WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredFailure
	for rows.Next() {
		var (
			f    StoredFailure
			kind string
		)
		if err := rows.Scan(&f.ID, &kind, &f.Path, &f.Error); err != nil {
			return nil, err
		}
		f.Kind = domain.EntityKind(kind)
		out = append(out, f)
	}
	return out, rows.Err()
}
