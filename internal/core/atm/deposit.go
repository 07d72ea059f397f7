package atm

import (
	"errors"
	"fmt"
	"strings"

	"atm-engine/internal/core/domain"

	"golang.org/x/text/currency"
)

// ErrInsufficientInventory is returned by release when the deposit holds fewer
// banknotes than requested.
var ErrInsufficientInventory = errors.New("insufficient banknotes in deposit")

// MoneyDeposit is the cash inventory of one machine, in a single currency.
// Counts never go negative. Only the Machine can take banknotes out.
type MoneyDeposit struct {
	currency currency.Unit
	holdings map[domain.Banknote]int
}

// NewMoneyDeposit builds a deposit. Packs of the same denomination are summed.
// Pack currencies are not checked against unit.
func NewMoneyDeposit(unit currency.Unit, packs ...domain.BanknotesPack) *MoneyDeposit {
	d := &MoneyDeposit{
		currency: unit,
		holdings: make(map[domain.Banknote]int, len(packs)),
	}
	for _, p := range packs {
		d.holdings[p.Denomination] += p.Count
	}
	return d
}

// Currency returns the currency of the deposit.
func (d *MoneyDeposit) Currency() currency.Unit {
	return d.currency
}

// IsAvailable reports whether more than count banknotes of b are held.
// A request for exactly the remaining stock is not available.
func (d *MoneyDeposit) IsAvailable(b domain.Banknote, count int) bool {
	return d.holdings[b] > count
}

// IsPackAvailable is IsAvailable for a pack.
func (d *MoneyDeposit) IsPackAvailable(p domain.BanknotesPack) bool {
	return d.IsAvailable(p.Denomination, p.Count)
}

// AvailableCount returns the held count of b; 0 if never stocked.
func (d *MoneyDeposit) AvailableCount(b domain.Banknote) int {
	return d.holdings[b]
}

// release takes one pack out of the deposit.
func (d *MoneyDeposit) release(p domain.BanknotesPack) error {
	if p.Count < 0 {
		return fmt.Errorf("%w: %s", domain.ErrNegativeCount, p)
	}
	left := d.holdings[p.Denomination] - p.Count
	if left < 0 {
		return fmt.Errorf("%w: want %s, have %d", ErrInsufficientInventory, p, d.holdings[p.Denomination])
	}
	d.holdings[p.Denomination] = left
	return nil
}

// releaseAll takes every pack out or none of them.
func (d *MoneyDeposit) releaseAll(packs []domain.BanknotesPack) error {
	want := make(map[domain.Banknote]int, len(packs))
	for _, p := range packs {
		if p.Count < 0 {
			return fmt.Errorf("%w: %s", domain.ErrNegativeCount, p)
		}
		want[p.Denomination] += p.Count
	}
	for b, n := range want {
		if d.holdings[b] < n {
			return fmt.Errorf("%w: want %dx%s, have %d", ErrInsufficientInventory, n, b, d.holdings[b])
		}
	}
	for _, p := range packs {
		if err := d.release(p); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns one pack per tracked denomination, highest first.
// The slice is a copy.
func (d *MoneyDeposit) Snapshot() []domain.BanknotesPack {
	out := make([]domain.BanknotesPack, 0, len(d.holdings))
	for b, n := range d.holdings {
		out = append(out, domain.BanknotesPack{Denomination: b, Count: n})
	}
	domain.SortPacks(out)
	return out
}

// Total returns the value of all held banknotes in whole currency units.
func (d *MoneyDeposit) Total() int64 {
	return domain.TotalOf(d.Snapshot())
}

// Clone returns an independent copy.
func (d *MoneyDeposit) Clone() *MoneyDeposit {
	return NewMoneyDeposit(d.currency, d.Snapshot()...)
}

// Equal compares currency and holdings, including tracked zero counts.
func (d *MoneyDeposit) Equal(other *MoneyDeposit) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.currency.String() != other.currency.String() || len(d.holdings) != len(other.holdings) {
		return false
	}
	for b, n := range d.holdings {
		m, ok := other.holdings[b]
		if !ok || m != n {
			return false
		}
	}
	return true
}

func (d *MoneyDeposit) String() string {
	parts := make([]string, 0, len(d.holdings))
	for _, p := range d.Snapshot() {
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("MoneyDeposit[%s %s]", d.currency, strings.Join(parts, ","))
}
