package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fio-word-game/internal/model"
	"fio-word-game/internal/service"
)

type fakeGameAPI struct {
	active      *model.GameState
	activeErr   error
	byID        map[int64]*model.GameState
	recent      []*model.GameState
	recentErr   error
	started     *model.GameState
	startErr    error
	startCalled int
}

func (f *fakeGameAPI) ActiveGame(context.Context) (*model.GameState, error) {
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	return f.active, nil
}

func (f *fakeGameAPI) GameByID(_ context.Context, id int64) (*model.GameState, error) {
	state, ok := f.byID[id]
	if !ok {
		return nil, service.ErrGameNotFound
	}
	return state, nil
}

func (f *fakeGameAPI) RecentGames(context.Context) ([]*model.GameState, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.recent, nil
}

func (f *fakeGameAPI) StartNextGame(context.Context) (*model.GameState, error) {
	f.startCalled++
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.started, nil
}

type fakeReconciler struct {
	called int
	err    error
}

func (f *fakeReconciler) MaybeReconcileGuesses(context.Context) error {
	f.called++
	return f.err
}

type fakeHealth struct{ err error }

func (f *fakeHealth) HealthCheck(context.Context) error { return f.err }

func newTestServer(api *fakeGameAPI, rec *fakeReconciler, health *fakeHealth) *httptest.Server {
	if rec == nil {
		rec = &fakeReconciler{}
	}
	if health == nil {
		health = &fakeHealth{}
	}
	srv := New(api, rec, health, 3*time.Second)
	return httptest.NewServer(srv.Router())
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestActiveGame(t *testing.T) {
	api := &fakeGameAPI{
		active: &model.GameState{ID: 1, Status: model.StatusInProgress, Prize: 5, MaskedPhrase: "C__"},
	}
	ts := newTestServer(api, nil, nil)
	defer ts.Close()

	var body activeGameResponse
	code := getJSON(t, ts.URL+"/api/game", &body)

	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, body.Game)
	assert.Equal(t, int64(1), body.Game.ID)
	assert.Equal(t, "C__", body.Game.MaskedPhrase)
	assert.Equal(t, int64(3000), body.PollInterval)
	assert.Equal(t, 0, api.startCalled)
}

func TestActiveGameStartsNextWhenIdle(t *testing.T) {
	api := &fakeGameAPI{
		activeErr: service.ErrNoActiveGame,
		started:   &model.GameState{ID: 2, Status: model.StatusInProgress, Prize: 3, MaskedPhrase: "___"},
	}
	ts := newTestServer(api, nil, nil)
	defer ts.Close()

	var body activeGameResponse
	code := getJSON(t, ts.URL+"/api/game", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, api.startCalled)
	require.NotNil(t, body.Game)
	assert.Equal(t, int64(2), body.Game.ID)
}

func TestActiveGameNoneAvailable(t *testing.T) {
	api := &fakeGameAPI{
		activeErr: service.ErrNoActiveGame,
		startErr:  service.ErrNoOpenGame,
	}
	ts := newTestServer(api, nil, nil)
	defer ts.Close()

	var body map[string]string
	code := getJSON(t, ts.URL+"/api/game", &body)

	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "no active game found", body["error"])
}

func TestGameByIDTriggersReconcile(t *testing.T) {
	api := &fakeGameAPI{
		byID: map[int64]*model.GameState{
			7: {ID: 7, Status: model.StatusCompleted, Prize: 5, MaskedPhrase: "CAT", RevealedPhrase: "CAT"},
		},
	}
	rec := &fakeReconciler{}
	ts := newTestServer(api, rec, nil)
	defer ts.Close()

	var body activeGameResponse
	code := getJSON(t, ts.URL+"/api/game/7", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, rec.called)
	require.NotNil(t, body.Game)
	assert.Equal(t, "CAT", body.Game.RevealedPhrase)
}

func TestGameByIDReconcileFailureStillServes(t *testing.T) {
	api := &fakeGameAPI{
		byID: map[int64]*model.GameState{3: {ID: 3, Status: model.StatusInProgress}},
	}
	rec := &fakeReconciler{err: errors.New("ledger offline")}
	ts := newTestServer(api, rec, nil)
	defer ts.Close()

	code := getJSON(t, ts.URL+"/api/game/3", nil)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, rec.called)
}

func TestGameByIDNotFound(t *testing.T) {
	ts := newTestServer(&fakeGameAPI{byID: map[int64]*model.GameState{}}, nil, nil)
	defer ts.Close()

	var body map[string]string
	code := getJSON(t, ts.URL+"/api/game/99", &body)

	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "game not found", body["error"])
}

func TestGameByIDInvalidID(t *testing.T) {
	ts := newTestServer(&fakeGameAPI{}, nil, nil)
	defer ts.Close()

	code := getJSON(t, ts.URL+"/api/game/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = getJSON(t, ts.URL+"/api/game/-1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRecentGames(t *testing.T) {
	api := &fakeGameAPI{
		recent: []*model.GameState{
			{ID: 5, Status: model.StatusCompleted},
			{ID: 4, Status: model.StatusCompleted},
		},
	}
	ts := newTestServer(api, nil, nil)
	defer ts.Close()

	var body gamesResponse
	code := getJSON(t, ts.URL+"/api/games", &body)

	assert.Equal(t, http.StatusOK, code)
	require.Len(t, body.Games, 2)
	assert.Equal(t, int64(5), body.Games[0].ID)
}

func TestRecentGamesEmptyIsArray(t *testing.T) {
	ts := newTestServer(&fakeGameAPI{}, nil, nil)
	defer ts.Close()

	var body map[string]json.RawMessage
	code := getJSON(t, ts.URL+"/api/games", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, "[]", string(body["games"]))
}

func TestAPICacheHeaders(t *testing.T) {
	api := &fakeGameAPI{active: &model.GameState{ID: 1, Status: model.StatusInProgress}}
	ts := newTestServer(api, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/game")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Contains(t, resp.Header.Get("Cache-Control"), "no-store")
}

func TestHealth(t *testing.T) {
	ts := newTestServer(&fakeGameAPI{}, nil, &fakeHealth{})
	defer ts.Close()

	var body map[string]string
	code := getJSON(t, ts.URL+"/healthz", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestHealthDatabaseDown(t *testing.T) {
	ts := newTestServer(&fakeGameAPI{}, nil, &fakeHealth{err: errors.New("connection refused")})
	defer ts.Close()

	code := getJSON(t, ts.URL+"/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
