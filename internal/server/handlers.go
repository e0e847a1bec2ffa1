package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"fio-word-game/internal/model"
	"fio-word-game/internal/service"
)

type activeGameResponse struct {
	Game         *model.GameState `json:"game"`
	PollInterval int64            `json:"pollInterval"`
}

type gamesResponse struct {
	Games []*model.GameState `json:"games"`
}

// handleActiveGame returns the current game. When none is in progress it
// tries to promote the oldest funded candidate so the page never goes
// dark just because the previous round finished.
func (s *Server) handleActiveGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state, err := s.games.ActiveGame(ctx)
	if errors.Is(err, service.ErrNoActiveGame) {
		state, err = s.games.StartNextGame(ctx)
		if err != nil {
			if !errors.Is(err, service.ErrNoOpenGame) {
				log.Warn().Err(err).Msg("failed to start next game on demand")
			}
			writeJSONError(w, http.StatusNotFound, "no active game found")
			return
		}
	} else if err != nil {
		log.Error().Err(err).Msg("failed to load active game")
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, activeGameResponse{
		Game:         state,
		PollInterval: s.pollInterval.Milliseconds(),
	})
}

func (s *Server) handleGameByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "gameID"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid game id")
		return
	}

	// Viewing a game is the hint that players are waiting on results, so
	// fold in any pending guesses first. Failures here only mean slightly
	// stale data.
	if err := s.reconciler.MaybeReconcileGuesses(ctx); err != nil {
		log.Warn().Err(err).Msg("on-demand guess reconciliation failed")
	}

	state, err := s.games.GameByID(ctx, id)
	if errors.Is(err, service.ErrGameNotFound) {
		writeJSONError(w, http.StatusNotFound, "game not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("game_id", id).Msg("failed to load game")
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, activeGameResponse{
		Game:         state,
		PollInterval: s.pollInterval.Milliseconds(),
	})
}

func (s *Server) handleRecentGames(w http.ResponseWriter, r *http.Request) {
	states, err := s.games.RecentGames(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list recent games")
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if states == nil {
		states = []*model.GameState{}
	}
	writeJSON(w, http.StatusOK, gamesResponse{Games: states})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health.HealthCheck(r.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed")
		writeJSONError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
