// Package server exposes the read-only HTTP API consumed by the game
// front end. It never exposes raw storage errors; absent games map to
// 404 with a JSON error body.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"

	"fio-word-game/internal/model"
)

// GameAPI is the projection surface the handlers consume.
type GameAPI interface {
	ActiveGame(ctx context.Context) (*model.GameState, error)
	GameByID(ctx context.Context, id int64) (*model.GameState, error)
	RecentGames(ctx context.Context) ([]*model.GameState, error)
	StartNextGame(ctx context.Context) (*model.GameState, error)
}

// ReconcileTrigger lets read handlers opportunistically run a throttled
// reconciliation pass so pages see fresh guesses.
type ReconcileTrigger interface {
	MaybeReconcileGuesses(ctx context.Context) error
}

// HealthChecker reports storage liveness for the health endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server wires the HTTP routes to the game services.
type Server struct {
	games        GameAPI
	reconciler   ReconcileTrigger
	health       HealthChecker
	pollInterval time.Duration
}

// New creates a Server. pollInterval is advertised to clients as their
// refresh cadence.
func New(games GameAPI, reconciler ReconcileTrigger, health HealthChecker, pollInterval time.Duration) *Server {
	return &Server{
		games:        games,
		reconciler:   reconciler,
		health:       health,
		pollInterval: pollInterval,
	}
}

// Router builds the chi router with logging and no-cache middleware.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(requestLogMiddleware()).Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(requestLogMiddleware())
		r.Use(noCacheMiddleware)
		r.Get("/game", s.handleActiveGame)
		r.Get("/game/{gameID}", s.handleGameByID)
		r.Get("/games", s.handleRecentGames)
	})

	return r
}

func requestLogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{})),
		&httplog.Options{
			Level:  slog.LevelInfo,
			Schema: httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				return []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("path", req.URL.Path),
				}
			},
		},
	)
}

// noCacheMiddleware prevents caching for all API routes: game state is
// polled and must never be served stale.
func noCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}
