package repository

import (
	"chess-loader/internal/domain"
	"chess-loader/internal/runctx"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const upsertPlayer = `
INSERT INTO players (title_group, username, position, run_id, loaded_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (title_group, username) DO UPDATE SET
    position = excluded.position,
    run_id = excluded.run_id,
    loaded_at = excluded.loaded_at`

const upsertProfile = `
INSERT INTO profiles (
    player_id, username, api_id, url, name, avatar, title, followers, country,
    location, last_online, joined, status, is_streamer, verified, league,
    streaming_platforms, run_id, loaded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (player_id) DO UPDATE SET
    username = excluded.username,
    api_id = excluded.api_id,
    url = excluded.url,
    name = excluded.name,
    avatar = excluded.avatar,
    title = excluded.title,
    followers = excluded.followers,
    country = excluded.country,
    location = excluded.location,
    last_online = excluded.last_online,
    joined = excluded.joined,
    status = excluded.status,
    is_streamer = excluded.is_streamer,
    verified = excluded.verified,
    league = excluded.league,
    streaming_platforms = excluded.streaming_platforms,
    run_id = excluded.run_id,
    loaded_at = excluded.loaded_at`

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *PlayerRepository) UpsertBatch(ctx context.Context, players []domain.PlayerHandle) error {
	if len(players) == 0 {
		return nil
	}

	runID := runctx.RunID(ctx)
	now := time.Now().UTC()

	return inTx(ctx, r.db, upsertPlayer, func(stmt *sql.Stmt) error {
		for _, p := range players {
			if _, err := stmt.ExecContext(ctx, string(p.TitleGroup), p.Username, p.Position, runID, now); err != nil {
				return fmt.Errorf("failed to upsert player %s: %w", p.Username, err)
			}
		}
		return nil
	})
}

func (r *PlayerRepository) UpsertProfiles(ctx context.Context, profiles []domain.PlayerProfile) error {
	if len(profiles) == 0 {
		return nil
	}

	runID := runctx.RunID(ctx)
	now := time.Now().UTC()

	return inTx(ctx, r.db, upsertProfile, func(stmt *sql.Stmt) error {
		for _, p := range profiles {
			_, err := stmt.ExecContext(ctx,
				p.PlayerID, p.Username, p.ID, p.URL, p.Name, p.Avatar, p.Title, p.Followers, p.Country,
				p.Location, p.LastOnline, p.Joined, p.Status, p.IsStreamer, p.Verified, p.League,
				strings.Join(p.StreamingPlatforms, ","), runID, now,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert profile %d: %w", p.PlayerID, err)
			}
		}
		return nil
	})
}

// Roster returns the stored handles of title in roster order.
func (r *PlayerRepository) Roster(ctx context.Context, title domain.TitleGroup) ([]domain.PlayerHandle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT username, position FROM players WHERE title_group = ? ORDER BY position`, string(title))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var handles []domain.PlayerHandle
	for rows.Next() {
		h := domain.PlayerHandle{TitleGroup: title}
		if err := rows.Scan(&h.Username, &h.Position); err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, rows.Err()
}

func (r *PlayerRepository) GetProfile(ctx context.Context, username string) (*domain.PlayerProfile, error) {
	var (
		p         domain.PlayerProfile
		platforms string
	)
	err := r.db.QueryRowContext(ctx, `
SELECT player_id, username, api_id, url, name, avatar, title, followers, country,
       location, last_online, joined, status, is_streamer, verified, league, streaming_platforms
FROM profiles WHERE username = ? ORDER BY loaded_at DESC LIMIT 1`, username).Scan(
		&p.PlayerID, &p.Username, &p.ID, &p.URL, &p.Name, &p.Avatar, &p.Title, &p.Followers, &p.Country,
		&p.Location, &p.LastOnline, &p.Joined, &p.Status, &p.IsStreamer, &p.Verified, &p.League, &platforms,
	)
	if err != nil {
		return nil, err
	}
	if platforms != "" {
		p.StreamingPlatforms = strings.Split(platforms, ",")
	}
	return &p, nil
}

// inTx prepares query once and runs fn against it inside a transaction.
func inTx(ctx context.Context, db *sql.DB, query string, fn func(*sql.Stmt) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	if err := fn(stmt); err != nil {
		return err
	}
	return tx.Commit()
}
