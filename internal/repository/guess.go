package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"fio-word-game/internal/model"
)

// GuessRepository handles guess persistence. Guesses are an append-only
// audit trail; there is no update path.
type GuessRepository struct {
	pool *pgxpool.Pool
}

// NewGuessRepository creates a new GuessRepository instance.
func NewGuessRepository(pool *pgxpool.Pool) *GuessRepository {
	return &GuessRepository{pool: pool}
}

// Create records a guess with its outcome as evaluated at submission time.
func (r *GuessRepository) Create(ctx context.Context, gameID int64, handle, guess, outcome string) (*model.Guess, error) {
	const query = `
		INSERT INTO guesses (game_id, handle, guess, outcome, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, game_id, handle, guess, outcome, created_at
	`

	var g model.Guess
	err := r.pool.QueryRow(ctx, query, gameID, handle, guess, outcome).Scan(
		&g.ID,
		&g.GameID,
		&g.Handle,
		&g.Guess,
		&g.Outcome,
		&g.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guess: %w", err)
	}

	return &g, nil
}

// ListByGame retrieves all guesses for a game in submission order.
func (r *GuessRepository) ListByGame(ctx context.Context, gameID int64) ([]*model.Guess, error) {
	const query = `
		SELECT id, game_id, handle, guess, outcome, created_at
		FROM guesses
		WHERE game_id = $1
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guesses: %w", err)
	}
	defer rows.Close()

	var guesses []*model.Guess
	for rows.Next() {
		var g model.Guess
		err := rows.Scan(
			&g.ID,
			&g.GameID,
			&g.Handle,
			&g.Guess,
			&g.Outcome,
			&g.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guess: %w", err)
		}
		guesses = append(guesses, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guesses: %w", err)
	}

	return guesses, nil
}
