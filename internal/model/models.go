// Package model defines the data models for the word game service.
package model

import "time"

// Game statuses. A game only ever moves forward:
// open -> in_progress -> completed.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Guess outcomes, computed once when the guess is recorded.
const (
	OutcomeMiss    = "miss"
	OutcomeCorrect = "correct"
	OutcomeWinner  = "winner"
)

// Game represents one round of the word-guessing contest.
// The phrase is stored uppercase and never changes after creation.
// WinnerHandle is set only when the game completes with a winning guess.
type Game struct {
	ID           int64     `db:"id"`
	Status       string    `db:"status"`
	Prize        int64     `db:"prize"`
	Phrase       string    `db:"phrase"`
	WinnerHandle *string   `db:"winner_handle"`
	CreatedAt    time.Time `db:"created_at"`
}

// Guess is one recorded guess against a game. Guesses are append-only;
// the outcome is never recomputed after insert.
type Guess struct {
	ID        int64     `db:"id"`
	GameID    int64     `db:"game_id"`
	Handle    string    `db:"handle"`
	Guess     string    `db:"guess"`
	Outcome   string    `db:"outcome"`
	CreatedAt time.Time `db:"created_at"`
}

// GameState is the projection returned to the HTTP layer. The masked
// phrase is always derived from phrase + guesses, never stored, and the
// full phrase is only revealed once the game is completed.
type GameState struct {
	ID             int64    `json:"id"`
	Status         string   `json:"status"`
	Prize          int64    `json:"prize"`
	MaskedPhrase   string   `json:"maskedPhrase"`
	CorrectGuesses []string `json:"correctGuesses"`
	RevealedPhrase string   `json:"revealedPhrase,omitempty"`
	WinnerHandle   *string  `json:"winnerHandle"`
	Guesses        []*Guess `json:"guesses,omitempty"`
}
