// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fio-word-game/internal/model"
)

// Common errors for repository operations.
var (
	ErrGameNotFound = errors.New("game not found")

	// ErrStatusConflict is returned by a conditional transition when the
	// game is not in the expected status. It covers both a missing row
	// and a row that advanced concurrently; callers treat either as a
	// rejected transition, never as a retryable write.
	ErrStatusConflict = errors.New("game is not in the expected status")
)

const gameColumns = "id, status, prize, phrase, winner_handle, created_at"

// GameRepository handles game persistence. All status transitions are
// conditional updates so a lost race shows up as ErrStatusConflict
// instead of a silent double-write.
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new GameRepository instance.
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

// Create inserts a new game in open status. The phrase must already be
// normalized (uppercase alphanumeric and spaces).
func (r *GameRepository) Create(ctx context.Context, phrase string, prize int64) (*model.Game, error) {
	const query = `
		INSERT INTO games (status, prize, phrase, created_at)
		VALUES ('open', $1, $2, NOW())
		RETURNING ` + gameColumns

	game, err := r.scanGame(r.pool.QueryRow(ctx, query, prize, phrase))
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return game, nil
}

// GetByID retrieves a game by id. Returns ErrGameNotFound if absent.
func (r *GameRepository) GetByID(ctx context.Context, id int64) (*model.Game, error) {
	const query = `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game, err := r.scanGame(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return game, nil
}

// GetActive retrieves the in-progress game, oldest first if more than one
// row ever exists. Returns ErrGameNotFound when no game is active.
func (r *GameRepository) GetActive(ctx context.Context) (*model.Game, error) {
	const query = `
		SELECT ` + gameColumns + `
		FROM games
		WHERE status = 'in_progress'
		ORDER BY created_at ASC
		LIMIT 1
	`

	game, err := r.scanGame(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get active game: %w", err)
	}
	return game, nil
}

// GetOldestOpen retrieves the oldest game still waiting to start.
// Returns ErrGameNotFound when the queue is empty.
func (r *GameRepository) GetOldestOpen(ctx context.Context) (*model.Game, error) {
	const query = `
		SELECT ` + gameColumns + `
		FROM games
		WHERE status = 'open'
		ORDER BY created_at ASC
		LIMIT 1
	`

	game, err := r.scanGame(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get open game: %w", err)
	}
	return game, nil
}

// ListCompleted retrieves completed games, newest first.
func (r *GameRepository) ListCompleted(ctx context.Context, limit int) ([]*model.Game, error) {
	const query = `
		SELECT ` + gameColumns + `
		FROM games
		WHERE status = 'completed'
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed games: %w", err)
	}
	defer rows.Close()

	var games []*model.Game
	for rows.Next() {
		game, err := r.scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}

// MarkInProgress transitions a game from open to in_progress. The update
// is conditional on the current status; a game that is not open (started
// by a concurrent pass, or already finished) yields ErrStatusConflict.
func (r *GameRepository) MarkInProgress(ctx context.Context, id int64) (*model.Game, error) {
	const query = `
		UPDATE games
		SET status = 'in_progress'
		WHERE id = $1 AND status = 'open'
		RETURNING ` + gameColumns

	game, err := r.scanGame(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("failed to start game: %w", err)
	}
	return game, nil
}

// MarkCompleted transitions a game from in_progress to completed and
// stamps the winner. A game that already completed (a duplicate winning
// observation) yields ErrStatusConflict, guarding against double payout.
func (r *GameRepository) MarkCompleted(ctx context.Context, id int64, winnerHandle string) (*model.Game, error) {
	const query = `
		UPDATE games
		SET status = 'completed', winner_handle = $2
		WHERE id = $1 AND status = 'in_progress'
		RETURNING ` + gameColumns

	game, err := r.scanGame(r.pool.QueryRow(ctx, query, id, winnerHandle))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("failed to complete game: %w", err)
	}
	return game, nil
}

func (r *GameRepository) scanGame(row pgx.Row) (*model.Game, error) {
	var game model.Game
	err := row.Scan(
		&game.ID,
		&game.Status,
		&game.Prize,
		&game.Phrase,
		&game.WinnerHandle,
		&game.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}
