package atm

import (
	"context"
	"fmt"
	"sync"

	"atm-engine/internal/core/domain"
	"atm-engine/internal/core/ports"

	"github.com/rs/zerolog"
	"golang.org/x/text/currency"
)

// Machine is the withdrawal decision engine. It owns its deposit exclusively.
type Machine struct {
	bank ports.BankGateway
	log  zerolog.Logger

	mu      sync.Mutex // held for a whole withdrawal: validation, charge and release
	deposit *MoneyDeposit
}

// NewMachine creates a machine with an empty deposit in unit.
func NewMachine(bank ports.BankGateway, unit currency.Unit, log zerolog.Logger) *Machine {
	return &Machine{
		bank:    bank,
		log:     log,
		deposit: NewMoneyDeposit(unit),
	}
}

// Withdraw runs the withdrawal protocol:
// currency check -> authorize -> amount check -> charge -> release.
// The first failing step ends the protocol; earlier steps have no side effects
// to undo. A failed withdrawal leaves the deposit unchanged.
func (m *Machine) Withdraw(ctx context.Context, pin domain.PinCode, card domain.Card, amount domain.Money) (domain.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if amount.Currency.String() != m.deposit.Currency().String() {
		return domain.Withdrawal{}, fail(domain.ErrorCodeWrongCurrency,
			fmt.Errorf("requested %s, machine holds %s", amount.Currency, m.deposit.Currency()))
	}

	token, err := m.bank.Authorize(ctx, pin, card.Number())
	if err != nil {
		return domain.Withdrawal{}, fail(domain.ErrorCodeAuthorization, err)
	}

	plan, ok := planDispense(m.deposit, amount.Amount)
	if !ok {
		return domain.Withdrawal{}, fail(domain.ErrorCodeWrongAmount,
			fmt.Errorf("%s cannot be dispensed from %s", amount, m.deposit))
	}

	if err := m.bank.Charge(ctx, token, amount); err != nil {
		return domain.Withdrawal{}, fail(domain.ErrorCodeNoFundsOnAccount, err)
	}

	if err := m.deposit.releaseAll(plan); err != nil {
		m.log.Error().
			Err(err).
			Str("card", card.Masked()).
			Str("amount", amount.String()).
			Msg("account charged but banknotes could not be released")
		return domain.Withdrawal{}, fmt.Errorf("%w: %v", ErrInventoryInconsistent, err)
	}

	w := domain.NewWithdrawal(plan)
	m.log.Debug().
		Str("card", card.Masked()).
		Str("amount", amount.String()).
		Interface("packs", w.Packs()).
		Msg("banknotes released")
	return w, nil
}

// CurrentDeposit returns a copy of the inventory.
func (m *Machine) CurrentDeposit() *MoneyDeposit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deposit.Clone()
}

// SetDeposit replaces the inventory with a copy of d. A nil d is ignored.
func (m *Machine) SetDeposit(d *MoneyDeposit) {
	if d == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deposit = d.Clone()
}
