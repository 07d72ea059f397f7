package atm

import (
	"atm-engine/internal/core/domain"

	"github.com/shopspring/decimal"
)

// isDispensable reports whether amount is a positive whole multiple of the
// smallest banknote of the deposit currency, and no more than the deposit holds.
func isDispensable(amount decimal.Decimal, d *MoneyDeposit) bool {
	smallest, ok := domain.SmallestBanknote(d.Currency())
	if !ok || !amount.IsPositive() || !amount.IsInteger() {
		return false
	}
	if amount.GreaterThan(decimal.NewFromInt(d.Total())) {
		return false
	}
	return amount.Mod(decimal.NewFromInt(smallest.Value())).IsZero()
}

// dispensableCount is the largest count of b for which IsAvailable holds,
// i.e. one less than the stock.
func dispensableCount(d *MoneyDeposit, b domain.Banknote) int {
	if n := d.AvailableCount(b) - 1; n > 0 {
		return n
	}
	return 0
}

// planDispense splits amount into packs, highest denomination first, taking at
// each step as many banknotes as fit into the remainder and are available.
// It reports false if a remainder is left once every denomination was tried.
// The deposit is not modified.
func planDispense(d *MoneyDeposit, amount decimal.Decimal) ([]domain.BanknotesPack, bool) {
	if !isDispensable(amount, d) {
		return nil, false
	}
	remaining := amount.IntPart()
	var plan []domain.BanknotesPack
	for _, b := range domain.BanknotesOf(d.Currency()) {
		if remaining == 0 {
			break
		}
		count := remaining / b.Value()
		if limit := int64(dispensableCount(d, b)); count > limit {
			count = limit
		}
		if count <= 0 {
			continue
		}
		plan = append(plan, domain.BanknotesPack{Denomination: b, Count: int(count)})
		remaining -= count * b.Value()
	}
	if remaining != 0 {
		return nil, false
	}
	return plan, true
}
