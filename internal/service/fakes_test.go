package service

import (
	"context"
	"sync"
	"time"

	"fio-word-game/internal/fio"
	"fio-word-game/internal/model"
	"fio-word-game/internal/repository"
)

// fakeGameStore is an in-memory GameStore with the same conditional
// transition semantics as the pgx repository.
type fakeGameStore struct {
	mu     sync.Mutex
	nextID int64
	games  []*model.Game

	createErr error
}

func newFakeGameStore() *fakeGameStore {
	return &fakeGameStore{nextID: 1}
}

func (f *fakeGameStore) add(status, phrase string, prize int64) *model.Game {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &model.Game{
		ID:        f.nextID,
		Status:    status,
		Prize:     prize,
		Phrase:    phrase,
		CreatedAt: time.Unix(f.nextID, 0),
	}
	f.nextID++
	f.games = append(f.games, g)
	return g
}

func (f *fakeGameStore) Create(_ context.Context, phrase string, prize int64) (*model.Game, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.add(model.StatusOpen, phrase, prize), nil
}

func (f *fakeGameStore) GetByID(_ context.Context, id int64) (*model.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.games {
		if g.ID == id {
			cp := *g
			return &cp, nil
		}
	}
	return nil, repository.ErrGameNotFound
}

func (f *fakeGameStore) first(status string) (*model.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *model.Game
	for _, g := range f.games {
		if g.Status != status {
			continue
		}
		if oldest == nil || g.CreatedAt.Before(oldest.CreatedAt) {
			oldest = g
		}
	}
	if oldest == nil {
		return nil, repository.ErrGameNotFound
	}
	cp := *oldest
	return &cp, nil
}

func (f *fakeGameStore) GetActive(_ context.Context) (*model.Game, error) {
	return f.first(model.StatusInProgress)
}

func (f *fakeGameStore) GetOldestOpen(_ context.Context) (*model.Game, error) {
	return f.first(model.StatusOpen)
}

func (f *fakeGameStore) ListCompleted(_ context.Context, limit int) ([]*model.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Game
	for i := len(f.games) - 1; i >= 0 && len(out) < limit; i-- {
		if f.games[i].Status == model.StatusCompleted {
			cp := *f.games[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeGameStore) transition(id int64, from, to string, winner *string) (*model.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.games {
		if g.ID != id {
			continue
		}
		if g.Status != from {
			return nil, repository.ErrStatusConflict
		}
		g.Status = to
		if winner != nil {
			g.WinnerHandle = winner
		}
		cp := *g
		return &cp, nil
	}
	return nil, repository.ErrStatusConflict
}

func (f *fakeGameStore) MarkInProgress(_ context.Context, id int64) (*model.Game, error) {
	return f.transition(id, model.StatusOpen, model.StatusInProgress, nil)
}

func (f *fakeGameStore) MarkCompleted(_ context.Context, id int64, winnerHandle string) (*model.Game, error) {
	return f.transition(id, model.StatusInProgress, model.StatusCompleted, &winnerHandle)
}

// fakeGuessStore is an in-memory GuessStore.
type fakeGuessStore struct {
	mu      sync.Mutex
	nextID  int64
	guesses []*model.Guess

	createErr error
}

func newFakeGuessStore() *fakeGuessStore {
	return &fakeGuessStore{nextID: 1}
}

func (f *fakeGuessStore) Create(_ context.Context, gameID int64, handle, guess, outcome string) (*model.Guess, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &model.Guess{
		ID:        f.nextID,
		GameID:    gameID,
		Handle:    handle,
		Guess:     guess,
		Outcome:   outcome,
		CreatedAt: time.Now(),
	}
	f.nextID++
	f.guesses = append(f.guesses, g)
	return g, nil
}

func (f *fakeGuessStore) ListByGame(_ context.Context, gameID int64) ([]*model.Guess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Guess
	for _, g := range f.guesses {
		if g.GameID == gameID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeGuessStore) byGame(gameID int64) []*model.Guess {
	out, _ := f.ListByGame(context.Background(), gameID)
	return out
}

type fakePayment struct {
	PublicKey string
	Amount    int64
}

type fakeSettlement struct {
	RequestID int64
	Handle    string
	PublicKey string
	Amount    int64
	TxID      string
}

// fakeLedger is an in-memory Ledger with injectable failures.
type fakeLedger struct {
	mu          sync.Mutex
	pending     []fio.Request
	balance     int64
	rejected    []int64
	payments    []fakePayment
	settlements []fakeSettlement

	pendingCalls int
	pendingErr   error
	rejectErr    error
	payErr       error
	settleErr    error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balance: 1_000_000 * fio.SUFPerFIO}
}

func (f *fakeLedger) PendingRequests(_ context.Context) ([]fio.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingCalls++
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	out := make([]fio.Request, len(f.pending))
	copy(out, f.pending)
	return out, nil
}

func (f *fakeLedger) Reject(_ context.Context, requestID int64) error {
	if f.rejectErr != nil {
		return f.rejectErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, requestID)
	return nil
}

func (f *fakeLedger) Pay(_ context.Context, payeePublicKey string, amount int64) (string, error) {
	if f.payErr != nil {
		return "", f.payErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, fakePayment{PublicKey: payeePublicKey, Amount: amount})
	return "tx-1", nil
}

func (f *fakeLedger) RecordSettlement(_ context.Context, requestID int64, payeeHandle, payeePublicKey string, amount int64, txID string) error {
	if f.settleErr != nil {
		return f.settleErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settlements = append(f.settlements, fakeSettlement{
		RequestID: requestID,
		Handle:    payeeHandle,
		PublicKey: payeePublicKey,
		Amount:    amount,
		TxID:      txID,
	})
	return nil
}

func (f *fakeLedger) Balance(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}
