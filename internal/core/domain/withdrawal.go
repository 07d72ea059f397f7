package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Withdrawal is the immutable result of a successful dispensing decision.
// Packs are ordered from the highest denomination; zero-count packs are dropped.
type Withdrawal struct {
	packs []BanknotesPack
}

// NewWithdrawal copies packs, drops empty ones and orders the rest highest first.
func NewWithdrawal(packs []BanknotesPack) Withdrawal {
	out := make([]BanknotesPack, 0, len(packs))
	for _, p := range packs {
		if p.Count > 0 {
			out = append(out, p)
		}
	}
	SortPacks(out)
	return Withdrawal{packs: out}
}

// Packs returns a copy of the dispensed packs.
func (w Withdrawal) Packs() []BanknotesPack {
	out := make([]BanknotesPack, len(w.packs))
	copy(out, w.packs)
	return out
}

// Total returns the dispensed value in whole currency units.
func (w Withdrawal) Total() int64 {
	return TotalOf(w.packs)
}

// Equal compares packs in order.
func (w Withdrawal) Equal(other Withdrawal) bool {
	if len(w.packs) != len(other.packs) {
		return false
	}
	for i := range w.packs {
		if w.packs[i] != other.packs[i] {
			return false
		}
	}
	return true
}

// WithdrawalStatus is the outcome recorded in the journal.
type WithdrawalStatus string

const (
	WithdrawalStatusSuccess WithdrawalStatus = "SUCCESS"
	WithdrawalStatusFailed  WithdrawalStatus = "FAILED"
)

// WithdrawalRecord is a journal entry for one withdrawal attempt. It doubles as
// the receipt returned to the terminal for successful attempts.
type WithdrawalRecord struct {
	ID             uuid.UUID        `json:"id"`
	IdempotencyKey string           `json:"-"`
	CardMasked     string           `json:"card"`
	Amount         decimal.Decimal  `json:"amount"`
	Currency       string           `json:"currency"`
	Status         WithdrawalStatus `json:"status"`
	ErrorCode      *ErrorCode       `json:"error_code,omitempty"`
	Packs          []BanknotesPack  `json:"packs"`
	CreatedAt      time.Time        `json:"created_at"`
}

// IsSuccess reports whether banknotes were dispensed.
func (r *WithdrawalRecord) IsSuccess() bool {
	return r.Status == WithdrawalStatusSuccess
}

// DepositSnapshot is a point-in-time copy of the machine inventory.
type DepositSnapshot struct {
	Currency  currency.Unit
	Packs     []BanknotesPack
	UpdatedAt time.Time
}

// Total returns the value of all held banknotes in whole currency units.
func (s DepositSnapshot) Total() int64 {
	return TotalOf(s.Packs)
}
