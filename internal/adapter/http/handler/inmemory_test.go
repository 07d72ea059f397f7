package handler_test

import (
	"context"
	"sync"

	"atm-engine/internal/core/domain"
	"atm-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- In-Memory Withdrawal Journal ---

type inMemoryWithdrawalRepo struct {
	mu      sync.RWMutex
	records []domain.WithdrawalRecord
}

func (r *inMemoryWithdrawalRepo) Create(_ context.Context, w *domain.WithdrawalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *w)
	return nil
}

func (r *inMemoryWithdrawalRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.WithdrawalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.records {
		if r.records[i].ID == id {
			rec := r.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWithdrawalRepo) List(_ context.Context, params ports.WithdrawalListParams) ([]domain.WithdrawalRecord, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filtered []domain.WithdrawalRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if params.Status == nil || r.records[i].Status == *params.Status {
			filtered = append(filtered, r.records[i])
		}
	}

	total := int64(len(filtered))
	start := min((params.Page-1)*params.PageSize, len(filtered))
	end := min(start+params.PageSize, len(filtered))
	return append([]domain.WithdrawalRecord{}, filtered[start:end]...), total, nil
}

func (r *inMemoryWithdrawalRepo) count(status domain.WithdrawalStatus) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, rec := range r.records {
		if rec.Status == status {
			n++
		}
	}
	return n
}

// --- In-Memory Deposit Store ---

type inMemoryDepositRepo struct {
	mu    sync.Mutex
	saved map[string]domain.DepositSnapshot
	saves int
}

func newInMemoryDepositRepo() *inMemoryDepositRepo {
	return &inMemoryDepositRepo{saved: make(map[string]domain.DepositSnapshot)}
}

func (r *inMemoryDepositRepo) Load(_ context.Context, currency string) (*domain.DepositSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.saved[currency]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (r *inMemoryDepositRepo) Save(_ context.Context, _ pgx.Tx, snap domain.DepositSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	packs := append([]domain.BanknotesPack{}, snap.Packs...)
	domain.SortPacks(packs)
	snap.Packs = packs
	r.saved[snap.Currency.String()] = snap
	r.saves++
	return nil
}

func (r *inMemoryDepositRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// --- In-Memory Transactor ---

type inMemoryTransactor struct{}

func (inMemoryTransactor) Begin(_ context.Context) (pgx.Tx, error) {
	return &inMemoryTx{}, nil
}

// inMemoryTx implements pgx.Tx for the in-memory repos, which ignore it.
type inMemoryTx struct {
	pgx.Tx
}

func (*inMemoryTx) Commit(_ context.Context) error   { return nil }
func (*inMemoryTx) Rollback(_ context.Context) error { return nil }
