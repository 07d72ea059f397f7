package service

import (
	"context"
	"fmt"

	"atm-engine/internal/core/atm"
	"atm-engine/internal/core/domain"
	"atm-engine/pkg/apperror"

	"github.com/rs/zerolog"
)

// DepositServiceImpl implements ports.DepositService.
type DepositServiceImpl struct {
	machine *atm.Machine
	store   *DepositStore
	initial []domain.BanknotesPack
	log     zerolog.Logger
}

// NewDepositService creates a new DepositServiceImpl. initial is the cassette
// load used by Restore when nothing was persisted.
func NewDepositService(
	machine *atm.Machine,
	store *DepositStore,
	initial []domain.BanknotesPack,
	log zerolog.Logger,
) *DepositServiceImpl {
	return &DepositServiceImpl{
		machine: machine,
		store:   store,
		initial: initial,
		log:     log,
	}
}

// Current returns a copy of the machine inventory.
func (s *DepositServiceImpl) Current(_ context.Context) (*domain.DepositSnapshot, error) {
	snap := snapshotOf(s.machine.CurrentDeposit())
	return &snap, nil
}

// Replace swaps the machine inventory for packs, persisting the new load first
// when persistence is enabled.
func (s *DepositServiceImpl) Replace(ctx context.Context, packs []domain.BanknotesPack) (*domain.DepositSnapshot, error) {
	unit := s.machine.CurrentDeposit().Currency()
	if err := validatePacks(unit.String(), packs); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	snap, err := s.store.Swap(ctx, s.machine, atm.NewMoneyDeposit(unit, packs...))
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.log.Info().
		Str("currency", unit.String()).
		Int64("total", snap.Total()).
		Msg("deposit replaced")

	return &snap, nil
}

// Restore loads the persisted inventory into the machine, falling back to the
// configured initial load.
func (s *DepositServiceImpl) Restore(ctx context.Context) (*domain.DepositSnapshot, error) {
	unit := s.machine.CurrentDeposit().Currency()
	packs := s.initial
	source := "config"

	stored, err := s.store.Load(ctx, unit.String())
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load deposit: %w", err))
	}
	if stored != nil {
		packs = stored.Packs
		source = "database"
	}

	if err := validatePacks(unit.String(), packs); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("restore deposit from %s: %w", source, err))
	}
	s.machine.SetDeposit(atm.NewMoneyDeposit(unit, packs...))

	snap := snapshotOf(s.machine.CurrentDeposit())
	s.log.Info().
		Str("currency", unit.String()).
		Str("source", source).
		Int64("total", snap.Total()).
		Msg("deposit restored")

	return &snap, nil
}

func validatePacks(code string, packs []domain.BanknotesPack) error {
	for _, p := range packs {
		if !p.Denomination.IsValid() {
			return fmt.Errorf("%w: %s", domain.ErrUnknownBanknote, p.Denomination)
		}
		if p.Denomination.Currency().String() != code {
			return fmt.Errorf("banknote %s does not belong to %s", p.Denomination, code)
		}
		if p.Count < 0 {
			return fmt.Errorf("%w: %s", domain.ErrNegativeCount, p)
		}
	}
	return nil
}
