package repository

import (
	"chess-loader/internal/domain"
	"context"
)

// Warehouse is the SQLite destination of a load run.
type Warehouse struct {
	players *PlayerRepository
	games   *GameRepository
	runs    *RunRepository
}

func NewWarehouse(players *PlayerRepository, games *GameRepository, runs *RunRepository) *Warehouse {
	return &Warehouse{players: players, games: games, runs: runs}
}

func (w *Warehouse) LoadPlayers(ctx context.Context, batch []domain.PlayerHandle) error {
	return w.players.UpsertBatch(ctx, batch)
}

func (w *Warehouse) LoadProfiles(ctx context.Context, batch []domain.PlayerProfile) error {
	return w.players.UpsertProfiles(ctx, batch)
}

func (w *Warehouse) LoadGames(ctx context.Context, batch []domain.GameRecord) error {
	return w.games.UpsertBatch(ctx, batch)
}

func (w *Warehouse) SaveRun(ctx context.Context, summary *domain.RunSummary) error {
	return w.runs.Save(ctx, summary)
}
