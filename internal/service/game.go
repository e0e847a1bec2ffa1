// Package service provides the game state machine, the request
// reconciliation engine and the reward sequencer.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"fio-word-game/internal/fio"
	"fio-word-game/internal/game"
	"fio-word-game/internal/model"
	"fio-word-game/internal/repository"
)

// GameStore is the persistence contract the services need from the game
// repository. Status transitions must be conditional on the current
// status and report a lost race as repository.ErrStatusConflict.
type GameStore interface {
	Create(ctx context.Context, phrase string, prize int64) (*model.Game, error)
	GetByID(ctx context.Context, id int64) (*model.Game, error)
	GetActive(ctx context.Context) (*model.Game, error)
	GetOldestOpen(ctx context.Context) (*model.Game, error)
	ListCompleted(ctx context.Context, limit int) ([]*model.Game, error)
	MarkInProgress(ctx context.Context, id int64) (*model.Game, error)
	MarkCompleted(ctx context.Context, id int64, winnerHandle string) (*model.Game, error)
}

// GuessStore is the persistence contract for the guess audit trail.
type GuessStore interface {
	Create(ctx context.Context, gameID int64, handle, guess, outcome string) (*model.Guess, error)
	ListByGame(ctx context.Context, gameID int64) ([]*model.Guess, error)
}

// Ledger is the external collaborator boundary: the pending-request
// source, the reject sink and the reward issuer.
type Ledger interface {
	PendingRequests(ctx context.Context) ([]fio.Request, error)
	Reject(ctx context.Context, requestID int64) error
	Pay(ctx context.Context, payeePublicKey string, amount int64) (string, error)
	RecordSettlement(ctx context.Context, requestID int64, payeeHandle, payeePublicKey string, amount int64, txID string) error
	Balance(ctx context.Context) (int64, error)
}

// GameService owns the game lifecycle (open -> in_progress -> completed)
// and the projections served to the HTTP layer.
type GameService struct {
	games       GameStore
	guesses     GuessStore
	ledger      Ledger
	recentLimit int
}

// NewGameService creates a new GameService instance.
func NewGameService(games GameStore, guesses GuessStore, ledger Ledger, recentLimit int) *GameService {
	return &GameService{
		games:       games,
		guesses:     guesses,
		ledger:      ledger,
		recentLimit: recentLimit,
	}
}

// ActiveGame returns the in-progress game with its guesses.
// Returns ErrNoActiveGame when no game is running.
func (s *GameService) ActiveGame(ctx context.Context) (*model.GameState, error) {
	g, err := s.games.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrGameNotFound) {
			return nil, ErrNoActiveGame
		}
		return nil, fmt.Errorf("failed to get active game: %w", err)
	}
	return s.project(ctx, g)
}

// GameByID returns a specific game with its guesses.
// Returns ErrGameNotFound when the id is unknown.
func (s *GameService) GameByID(ctx context.Context, id int64) (*model.GameState, error) {
	g, err := s.games.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}
	return s.project(ctx, g)
}

// RecentGames returns completed games, newest first.
func (s *GameService) RecentGames(ctx context.Context) ([]*model.GameState, error) {
	games, err := s.games.ListCompleted(ctx, s.recentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed games: %w", err)
	}

	states := make([]*model.GameState, 0, len(games))
	for _, g := range games {
		state, err := s.project(ctx, g)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

// StartNextGame selects the oldest open game and transitions it to
// in_progress. Returns ErrNoOpenGame when the queue is empty and
// ErrInsufficientFunds when the ledger balance cannot cover the prize;
// in the latter case the game stays open and is retried on a later pass.
// A transition lost to a concurrent start yields ErrInvalidTransition.
func (s *GameService) StartNextGame(ctx context.Context) (*model.GameState, error) {
	open, err := s.games.GetOldestOpen(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrGameNotFound) {
			return nil, ErrNoOpenGame
		}
		return nil, fmt.Errorf("failed to get open game: %w", err)
	}

	balance, err := s.ledger.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	if balance < open.Prize*fio.SUFPerFIO {
		log.Error().
			Int64("game_id", open.ID).
			Int64("balance_suf", balance).
			Int64("prize", open.Prize).
			Msg("Insufficient balance for game prize")
		return nil, ErrInsufficientFunds
	}

	started, err := s.games.MarkInProgress(ctx, open.ID)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("failed to start game %d: %w", open.ID, err)
	}

	log.Info().Int64("game_id", started.ID).Int64("prize", started.Prize).Msg("Started new game")
	return s.project(ctx, started)
}

// CompleteGame transitions an in-progress game to completed, stamping
// the winner. A game that is not in progress (a duplicate winning
// observation) yields ErrInvalidTransition.
func (s *GameService) CompleteGame(ctx context.Context, id int64, winnerHandle string) (*model.Game, error) {
	completed, err := s.games.MarkCompleted(ctx, id, winnerHandle)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("failed to complete game %d: %w", id, err)
	}

	log.Info().Int64("game_id", id).Str("winner", winnerHandle).Msg("Game completed")
	return completed, nil
}

// CreateGame inserts a new open game. The phrase must already be
// normalized and validated by the caller.
func (s *GameService) CreateGame(ctx context.Context, phrase string, prize int64) (*model.Game, error) {
	created, err := s.games.Create(ctx, phrase, prize)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	log.Info().Int64("game_id", created.ID).Int64("prize", prize).Msg("Created new game")
	return created, nil
}

// project builds the GameState view. The masked phrase is derived from
// the stored phrase and guess history on every call, so it can never
// drift from the authoritative correct-token set. Completed games reveal
// the phrase instead of masking it.
func (s *GameService) project(ctx context.Context, g *model.Game) (*model.GameState, error) {
	guesses, err := s.guesses.ListByGame(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guesses for game %d: %w", g.ID, err)
	}

	texts := make([]string, len(guesses))
	for i, gu := range guesses {
		texts[i] = gu.Guess
	}
	correct := game.CorrectTokens(g.Phrase, texts)

	state := &model.GameState{
		ID:             g.ID,
		Status:         g.Status,
		Prize:          g.Prize,
		CorrectGuesses: correct,
		WinnerHandle:   g.WinnerHandle,
		Guesses:        guesses,
	}

	if g.Status == model.StatusCompleted {
		state.MaskedPhrase = g.Phrase
		state.RevealedPhrase = g.Phrase
	} else {
		state.MaskedPhrase = game.MaskPhrase(g.Phrase, correct)
	}

	return state, nil
}
