package service

import "errors"

// Typed results surfaced to callers. These are the only signals crossing
// the service boundary; raw storage and gateway errors stay wrapped
// behind them.
var (
	// ErrNoActiveGame means no game is currently in progress.
	ErrNoActiveGame = errors.New("no active game")

	// ErrGameNotFound means the requested game does not exist.
	ErrGameNotFound = errors.New("game not found")

	// ErrNoOpenGame means there is no open game waiting to start.
	ErrNoOpenGame = errors.New("no open game available")

	// ErrInvalidTransition is a state machine guard rejection: the game
	// was not in the status the transition requires.
	ErrInvalidTransition = errors.New("invalid game state transition")

	// ErrInsufficientFunds means the ledger balance cannot cover the
	// prize; the game stays open and is retried later.
	ErrInsufficientFunds = errors.New("insufficient balance for game prize")

	// ErrUnauthorizedAdmin means a game-creation request came from a
	// counterparty outside the admin allow-list.
	ErrUnauthorizedAdmin = errors.New("counterparty not in admin allow-list")

	// ErrInvalidPhrase means a candidate phrase failed validation.
	ErrInvalidPhrase = errors.New("invalid phrase")

	// ErrInvalidAmount means a creation request carried a non-positive,
	// non-integral or out-of-bounds prize amount.
	ErrInvalidAmount = errors.New("invalid prize amount")
)
