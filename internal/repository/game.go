package repository

import (
	"chess-loader/internal/domain"
	"chess-loader/internal/runctx"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// A game already stored for the same player is replaced, so reloading an
// archive never duplicates rows.
const upsertGame = `
INSERT INTO games (
    player, url, end_time, rated, time_class, time_control, rules, eco, pgn,
    white_username, white_rating, white_result,
    black_username, black_rating, black_result,
    run_id, loaded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (player, url) DO UPDATE SET
    end_time = excluded.end_time,
    rated = excluded.rated,
    time_class = excluded.time_class,
    time_control = excluded.time_control,
    rules = excluded.rules,
    eco = excluded.eco,
    pgn = excluded.pgn,
    white_username = excluded.white_username,
    white_rating = excluded.white_rating,
    white_result = excluded.white_result,
    black_username = excluded.black_username,
    black_rating = excluded.black_rating,
    black_result = excluded.black_result,
    run_id = excluded.run_id,
    loaded_at = excluded.loaded_at`

type GameRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewGameRepository(sqlDB *sql.DB, logger zerolog.Logger) *GameRepository {
	return &GameRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *GameRepository) UpsertBatch(ctx context.Context, games []domain.GameRecord) error {
	if len(games) == 0 {
		return nil
	}

	runID := runctx.RunID(ctx)
	now := time.Now().UTC()

	return inTx(ctx, r.db, upsertGame, func(stmt *sql.Stmt) error {
		for _, g := range games {
			_, err := stmt.ExecContext(ctx,
				g.Player, g.URL, g.EndTime, g.Rated, g.TimeClass, g.TimeControl, g.Rules, g.ECO, g.PGN,
				g.White.Username, g.White.Rating, g.White.Result,
				g.Black.Username, g.Black.Rating, g.Black.Result,
				runID, now,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert game %s: %w", g.URL, err)
			}
		}
		return nil
	})
}

// GetByPlayer returns the stored games of player, most recent first.
func (r *GameRepository) GetByPlayer(ctx context.Context, player string, limit int) ([]domain.GameRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT url, end_time, rated, time_class, time_control, rules, eco, pgn,
       white_username, white_rating, white_result,
       black_username, black_rating, black_result
FROM games WHERE player = ? ORDER BY end_time DESC LIMIT ?`, player, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []domain.GameRecord
	for rows.Next() {
		g := domain.GameRecord{Player: player}
		err := rows.Scan(
			&g.URL, &g.EndTime, &g.Rated, &g.TimeClass, &g.TimeControl, &g.Rules, &g.ECO, &g.PGN,
			&g.White.Username, &g.White.Rating, &g.White.Result,
			&g.Black.Username, &g.Black.Rating, &g.Black.Result,
		)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (r *GameRepository) Count(ctx context.Context, player string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games WHERE player = ?`, player).Scan(&n)
	return n, err
}
