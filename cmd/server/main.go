// Package main is the entry point for the FIO word game server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fio-word-game/internal/config"
	"fio-word-game/internal/fio"
	"fio-word-game/internal/pkg/db"
	"fio-word-game/internal/pkg/guard"
	"fio-word-game/internal/repository"
	"fio-word-game/internal/server"
	"fio-word-game/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	gameRepo := repository.NewGameRepository(dbPool.Pool)
	guessRepo := repository.NewGuessRepository(dbPool.Pool)

	// Initialize the ledger gateway client
	ledger := fio.NewClient(&cfg.Fio)

	// Initialize services
	gameService := service.NewGameService(gameRepo, guessRepo, ledger, cfg.Game.RecentGamesLimit)

	passGuard := guard.New(cfg.Guard.StaleAfter)
	reconciler := service.NewReconciler(gameRepo, guessRepo, ledger, gameService, passGuard, service.ReconcilerConfig{
		GuessHandle:  cfg.Fio.GuessHandle,
		AdminHandle:  cfg.Fio.AdminHandle,
		Admins:       cfg.Fio.Admins,
		MaxPrize:     cfg.Game.MaxPrize,
		ReadInterval: cfg.Poll.ReadInterval,
	})

	// Initialize HTTP server
	httpAPI := server.New(gameService, reconciler, dbPool, cfg.Poll.ReadInterval)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpAPI.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the reconciliation tickers
	go runGuessPoller(ctx, reconciler, cfg.Poll.GuessInterval)
	go runCreationPoller(ctx, reconciler, cfg.Poll.CreationInterval)

	// Start HTTP server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server is starting...")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown: stop accepting requests, then stop the pollers.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()
	log.Info().Msg("Server stopped gracefully")
}

// runGuessPoller periodically folds pending guess requests into the
// active game. The first pass runs immediately on startup so a restart
// does not wait a full interval to catch up.
func runGuessPoller(ctx context.Context, reconciler *service.Reconciler, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	reconcileGuessesLogged(ctx, reconciler)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reconcileGuessesLogged(ctx, reconciler)
		}
	}
}

// runCreationPoller periodically processes admin game-creation requests.
func runCreationPoller(ctx context.Context, reconciler *service.Reconciler, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	reconcileCreationsLogged(ctx, reconciler)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reconcileCreationsLogged(ctx, reconciler)
		}
	}
}

func reconcileGuessesLogged(ctx context.Context, reconciler *service.Reconciler) {
	if err := reconciler.ReconcileGuesses(ctx); err != nil {
		log.Error().Err(err).Msg("Guess reconciliation pass failed")
	}
}

func reconcileCreationsLogged(ctx context.Context, reconciler *service.Reconciler) {
	if err := reconciler.ReconcileCreations(ctx); err != nil {
		log.Error().Err(err).Msg("Game creation pass failed")
	}
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create games table. The partial unique index is what
	// guarantees at most one game is in progress at any time.
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS games (
			id BIGSERIAL PRIMARY KEY,
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			prize BIGINT NOT NULL,
			phrase TEXT NOT NULL,
			winner_handle VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_games_status_created ON games(status, created_at);
		CREATE UNIQUE INDEX IF NOT EXISTS one_active_game ON games((status)) WHERE status = 'in_progress';
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: games table created")

	// Migration 2: Create guesses table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS guesses (
			id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			handle VARCHAR(255) NOT NULL,
			guess TEXT NOT NULL,
			outcome VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_guesses_game ON guesses(game_id, id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: guesses table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
