package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"fio-word-game/internal/fio"
	"fio-word-game/internal/game"
	"fio-word-game/internal/model"
	"fio-word-game/internal/pkg/guard"
	"fio-word-game/internal/repository"
)

// ReconcilerConfig holds the static identities and limits the
// reconciliation engine classifies requests against.
type ReconcilerConfig struct {
	// GuessHandle is the channel identity whose requests are guesses.
	GuessHandle string
	// AdminHandle is the channel identity whose requests are
	// game-creation commands.
	AdminHandle string
	// Admins is the allow-list of counterparties permitted to create
	// games through the admin channel.
	Admins []string
	// MaxPrize bounds the prize a creation request may set, in FIO.
	MaxPrize int64
	// ReadInterval throttles reconciliation passes triggered from the
	// read path.
	ReadInterval time.Duration
}

// Reconciler runs reconciliation passes over pending ledger requests:
// fetch, classify, apply, acknowledge. The guess pass runs under the
// single-flight guard; the creation pass polls independently, which is
// safe because the two channels act on disjoint sender identities and
// disjoint status transitions.
type Reconciler struct {
	games    GameStore
	guesses  GuessStore
	ledger   Ledger
	gameSvc  *GameService
	guard    *guard.PassGuard
	cfg      ReconcilerConfig
	lastRead atomic.Int64 // unix nanos of the last read-triggered pass
}

// NewReconciler creates a reconciliation engine. The guard is injected
// so its staleness timeout stays configuration, not hidden global state.
func NewReconciler(games GameStore, guesses GuessStore, ledger Ledger, gameSvc *GameService, g *guard.PassGuard, cfg ReconcilerConfig) *Reconciler {
	return &Reconciler{
		games:   games,
		guesses: guesses,
		ledger:  ledger,
		gameSvc: gameSvc,
		guard:   g,
		cfg:     cfg,
	}
}

// ReconcileGuesses runs one guess reconciliation pass. When another pass
// already holds the guard and is fresh, this one is silently skipped;
// the next timer tick will try again. A pass that finds no active game
// does nothing. Per-request failures are logged and never abort the
// rest of the batch.
func (r *Reconciler) ReconcileGuesses(ctx context.Context) error {
	if !r.guard.TryAcquire() {
		log.Debug().Msg("Another reconciliation pass is in progress, skipping")
		return nil
	}
	defer r.guard.Release()

	if _, err := r.games.GetActive(ctx); err != nil {
		if errors.Is(err, repository.ErrGameNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get active game: %w", err)
	}

	requests, err := r.ledger.PendingRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending requests: %w", err)
	}
	if len(requests) == 0 {
		return nil
	}

	log.Info().Int("count", len(requests)).Msg("Processing pending requests")

	for _, req := range requests {
		// Requests on other channels are left for their owning pass.
		if req.PayerHandle != r.cfg.GuessHandle {
			continue
		}

		// Re-read the active game before each request: an earlier
		// request in this batch may have completed the game and started
		// the next one, and a winning guess must be attributed to the
		// game active at the moment it is evaluated.
		active, err := r.games.GetActive(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrGameNotFound) {
				log.Info().Msg("No active game available, stopping request processing")
				break
			}
			return fmt.Errorf("failed to get active game: %w", err)
		}

		if err := r.processGuess(ctx, active.ID, req); err != nil {
			log.Error().Err(err).Int64("request_id", req.ID).Msg("Error processing request")
		}
	}

	return nil
}

// MaybeReconcileGuesses runs a guess pass if at least ReadInterval has
// elapsed since the last read-triggered one. Used by read handlers to
// keep state fresh without hammering the ledger.
func (r *Reconciler) MaybeReconcileGuesses(ctx context.Context) error {
	now := time.Now().UnixNano()
	last := r.lastRead.Load()
	if now-last < r.cfg.ReadInterval.Nanoseconds() {
		return nil
	}
	if !r.lastRead.CompareAndSwap(last, now) {
		return nil
	}
	return r.ReconcileGuesses(ctx)
}

// processGuess evaluates one guess request against the given game,
// records the guess, and either settles the win or rejects the request.
func (r *Reconciler) processGuess(ctx context.Context, gameID int64, req fio.Request) error {
	current, err := r.games.GetByID(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to load game %d: %w", gameID, err)
	}

	history, err := r.guesses.ListByGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to load guess history: %w", err)
	}
	texts := make([]string, len(history))
	for i, h := range history {
		texts[i] = h.Guess
	}

	res := game.Evaluate(current.Phrase, texts, req.Memo)

	if _, err := r.guesses.Create(ctx, gameID, req.PayeeHandle, res.Normalized, res.Outcome()); err != nil {
		return fmt.Errorf("failed to record guess: %w", err)
	}

	log.Info().
		Int64("game_id", gameID).
		Int64("request_id", req.ID).
		Str("guess", res.Normalized).
		Str("outcome", res.Outcome()).
		Msg("Processed guess")

	if res.Winner {
		return r.settleWin(ctx, current, req)
	}

	if err := r.ledger.Reject(ctx, req.ID); err != nil {
		return fmt.Errorf("failed to reject request %d: %w", req.ID, err)
	}
	return nil
}

// settleWin is the reward sequence: mark the game completed, pay the
// prize, record the settlement against the request id, then best-effort
// start the next game. Completion is the gate: when it fails because the
// game already completed (a duplicate winning observation), the request
// is rejected as a no-op and nothing is paid. A payout or settlement
// failure after completion is surfaced loudly and never retried here,
// since blindly resubmitting the payment risks paying twice.
func (r *Reconciler) settleWin(ctx context.Context, g *model.Game, req fio.Request) error {
	if _, err := r.gameSvc.CompleteGame(ctx, g.ID, req.PayeeHandle); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			log.Info().
				Int64("game_id", g.ID).
				Int64("request_id", req.ID).
				Msg("Game already completed, rejecting duplicate winning request")
			if rejErr := r.ledger.Reject(ctx, req.ID); rejErr != nil {
				return fmt.Errorf("failed to reject duplicate request %d: %w", req.ID, rejErr)
			}
			return nil
		}
		return err
	}

	amount := g.Prize * fio.SUFPerFIO

	txID, err := r.ledger.Pay(ctx, req.PayeePublicKey, amount)
	if err != nil {
		log.Error().
			Err(err).
			Int64("game_id", g.ID).
			Int64("request_id", req.ID).
			Int64("amount_suf", amount).
			Msg("Payout failed after game completion; manual reconciliation required")
		return fmt.Errorf("payout for game %d failed: %w", g.ID, err)
	}

	if err := r.ledger.RecordSettlement(ctx, req.ID, req.PayeeHandle, req.PayeePublicKey, amount, txID); err != nil {
		log.Error().
			Err(err).
			Int64("game_id", g.ID).
			Int64("request_id", req.ID).
			Int64("amount_suf", amount).
			Str("tx", txID).
			Msg("Settlement recording failed after payout; manual reconciliation required")
		return fmt.Errorf("settlement for game %d failed: %w", g.ID, err)
	}

	// An unstarted next game is recoverable on the next pass.
	if _, err := r.gameSvc.StartNextGame(ctx); err != nil && !errors.Is(err, ErrNoOpenGame) {
		log.Warn().Err(err).Msg("Failed to start next game after win")
	}

	return nil
}

// ReconcileCreations runs one admin-channel pass over pending requests.
// Admin-channel requests are commands, not claims: every one of them is
// acknowledged as rejected after processing, whether or not a game was
// created. Requests from identities owned by neither channel are left
// untouched.
func (r *Reconciler) ReconcileCreations(ctx context.Context) error {
	requests, err := r.ledger.PendingRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending requests: %w", err)
	}

	for _, req := range requests {
		if req.PayerHandle != r.cfg.AdminHandle {
			continue
		}
		if err := r.processCreation(ctx, req); err != nil {
			log.Error().Err(err).Int64("request_id", req.ID).Msg("Error processing creation request")
		}
	}

	return nil
}

func (r *Reconciler) processCreation(ctx context.Context, req fio.Request) error {
	err := r.createFromRequest(ctx, req)
	switch {
	case err == nil:
		log.Info().Int64("request_id", req.ID).Msg("Game created from admin request")
	case errors.Is(err, ErrUnauthorizedAdmin),
		errors.Is(err, ErrInvalidPhrase),
		errors.Is(err, ErrInvalidAmount):
		log.Info().
			Err(err).
			Int64("request_id", req.ID).
			Str("payee", req.PayeeHandle).
			Msg("Creation request refused")
	default:
		// Storage failure: leave the request pending so a later pass
		// retries the creation.
		return err
	}

	if err := r.ledger.Reject(ctx, req.ID); err != nil {
		return fmt.Errorf("failed to reject creation request %d: %w", req.ID, err)
	}
	return nil
}

// createFromRequest validates an authorized creation command and inserts
// the new open game.
func (r *Reconciler) createFromRequest(ctx context.Context, req fio.Request) error {
	if !r.isAdmin(req.PayeeHandle) {
		return ErrUnauthorizedAdmin
	}

	phrase := game.NormalizePhrase(req.Memo)
	if !game.ValidPhrase(phrase) {
		return fmt.Errorf("%w: %q", ErrInvalidPhrase, phrase)
	}

	prize, err := r.parsePrize(req.Amount)
	if err != nil {
		return err
	}

	_, err = r.gameSvc.CreateGame(ctx, phrase, prize)
	return err
}

func (r *Reconciler) isAdmin(handle string) bool {
	for _, h := range r.cfg.Admins {
		if h == handle {
			return true
		}
	}
	return false
}

// parsePrize parses a creation amount. Prizes are whole FIO: the value
// must be a positive integral number no greater than the configured
// maximum.
func (r *Reconciler) parsePrize(amount string) (int64, error) {
	f, err := strconv.ParseFloat(amount, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if f <= 0 || f != math.Trunc(f) || int64(f) > r.cfg.MaxPrize {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return int64(f), nil
}
