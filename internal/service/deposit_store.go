package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"atm-engine/internal/core/atm"
	"atm-engine/internal/core/domain"
	"atm-engine/internal/core/ports"
)

// DepositStore persists the machine inventory. Every write reads the
// inventory and saves it under one lock, so the saved rows always follow
// the order in which the inventory changed.
type DepositStore struct {
	mu          sync.Mutex
	depositRepo ports.DepositRepository
	transactor  ports.DBTransactor
	enabled     bool
}

// NewDepositStore creates a DepositStore. A disabled store never touches the
// database.
func NewDepositStore(depositRepo ports.DepositRepository, transactor ports.DBTransactor, enabled bool) *DepositStore {
	return &DepositStore{
		depositRepo: depositRepo,
		transactor:  transactor,
		enabled:     enabled,
	}
}

// Load returns the saved inventory for currency, or nil.
func (s *DepositStore) Load(ctx context.Context, currency string) (*domain.DepositSnapshot, error) {
	if !s.enabled {
		return nil, nil
	}
	return s.depositRepo.Load(ctx, currency)
}

// Sync saves the current inventory of m.
func (s *DepositStore) Sync(ctx context.Context, m *atm.Machine) (domain.DepositSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshotOf(m.CurrentDeposit())
	if !s.enabled {
		return snap, nil
	}
	return snap, s.save(ctx, snap)
}

// Swap saves deposit and then installs it in m. A failed save leaves m untouched.
func (s *DepositStore) Swap(ctx context.Context, m *atm.Machine, deposit *atm.MoneyDeposit) (domain.DepositSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshotOf(deposit)
	if s.enabled {
		if err := s.save(ctx, snap); err != nil {
			return snap, err
		}
	}
	m.SetDeposit(deposit)
	return snap, nil
}

// save writes snap in its own database transaction.
func (s *DepositStore) save(ctx context.Context, snap domain.DepositSnapshot) error {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := s.depositRepo.Save(ctx, tx, snap); err != nil {
		return fmt.Errorf("save deposit: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func snapshotOf(d *atm.MoneyDeposit) domain.DepositSnapshot {
	return domain.DepositSnapshot{
		Currency:  d.Currency(),
		Packs:     d.Snapshot(),
		UpdatedAt: time.Now().UTC(),
	}
}
