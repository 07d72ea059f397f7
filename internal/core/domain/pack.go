package domain

import (
	"fmt"
	"sort"
)

// BanknotesPack is a quantity of a single denomination. Count 0 means none.
type BanknotesPack struct {
	Denomination Banknote `json:"denomination"`
	Count        int      `json:"count"`
}

// NewBanknotesPack creates a pack, rejecting negative counts.
func NewBanknotesPack(count int, denomination Banknote) (BanknotesPack, error) {
	if count < 0 {
		return BanknotesPack{}, fmt.Errorf("%w: %d x %s", ErrNegativeCount, count, denomination)
	}
	if !denomination.IsValid() {
		return BanknotesPack{}, fmt.Errorf("%w: %s", ErrUnknownBanknote, denomination)
	}
	return BanknotesPack{Denomination: denomination, Count: count}, nil
}

// Pack is NewBanknotesPack for literals known to be valid. It panics otherwise.
func Pack(count int, denomination Banknote) BanknotesPack {
	p, err := NewBanknotesPack(count, denomination)
	if err != nil {
		panic(err)
	}
	return p
}

// Value returns face value times count.
func (p BanknotesPack) Value() int64 {
	return p.Denomination.Value() * int64(p.Count)
}

func (p BanknotesPack) String() string {
	return fmt.Sprintf("%dx%s", p.Count, p.Denomination)
}

// SortPacks orders packs from the highest denomination.
func SortPacks(packs []BanknotesPack) {
	sort.SliceStable(packs, func(i, j int) bool {
		return packs[i].Denomination.Value() > packs[j].Denomination.Value()
	})
}

// TotalOf sums the value of packs.
func TotalOf(packs []BanknotesPack) int64 {
	var sum int64
	for _, p := range packs {
		sum += p.Value()
	}
	return sum
}
