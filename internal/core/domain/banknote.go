package domain

import (
	"fmt"
	"sort"

	"golang.org/x/text/currency"
)

// Currencies with a banknote family.
var (
	PLN = currency.MustParseISO("PLN")
	EUR = currency.MustParseISO("EUR")
)

// Banknote is one face value of a currency family. The set is closed.
type Banknote uint8

const (
	BanknoteInvalid Banknote = iota
	PL10
	PL20
	PL50
	PL100
	PL200
	PL500
	EU5
	EU10
	EU20
	EU50
	EU100
	EU200
	EU500
)

type banknoteInfo struct {
	name  string
	value int64
	unit  currency.Unit
}

var banknotes = map[Banknote]banknoteInfo{
	PL10:  {"PL_10", 10, PLN},
	PL20:  {"PL_20", 20, PLN},
	PL50:  {"PL_50", 50, PLN},
	PL100: {"PL_100", 100, PLN},
	PL200: {"PL_200", 200, PLN},
	PL500: {"PL_500", 500, PLN},
	EU5:   {"EU_5", 5, EUR},
	EU10:  {"EU_10", 10, EUR},
	EU20:  {"EU_20", 20, EUR},
	EU50:  {"EU_50", 50, EUR},
	EU100: {"EU_100", 100, EUR},
	EU200: {"EU_200", 200, EUR},
	EU500: {"EU_500", 500, EUR},
}

// families maps a currency code to its banknotes, highest face value first.
var families = buildFamilies()

func buildFamilies() map[string][]Banknote {
	out := make(map[string][]Banknote)
	for b, info := range banknotes {
		code := info.unit.String()
		out[code] = append(out[code], b)
	}
	for _, family := range out {
		sort.Slice(family, func(i, j int) bool {
			return family[i].Value() > family[j].Value()
		})
	}
	return out
}

// Value returns the face value in whole currency units.
func (b Banknote) Value() int64 {
	return banknotes[b].value
}

// Currency returns the currency the banknote belongs to.
func (b Banknote) Currency() currency.Unit {
	return banknotes[b].unit
}

// IsValid reports whether b is a member of the closed set.
func (b Banknote) IsValid() bool {
	_, ok := banknotes[b]
	return ok
}

func (b Banknote) String() string {
	if info, ok := banknotes[b]; ok {
		return info.name
	}
	return fmt.Sprintf("Banknote(%d)", uint8(b))
}

// MarshalText encodes the banknote by name, e.g. "PL_20".
func (b Banknote) MarshalText() ([]byte, error) {
	if !b.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBanknote, uint8(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText decodes a banknote name.
func (b *Banknote) UnmarshalText(text []byte) error {
	for note, info := range banknotes {
		if info.name == string(text) {
			*b = note
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownBanknote, string(text))
}

// BanknotesOf returns the family of unit ordered from the highest face value.
// Unknown currencies have no banknotes.
func BanknotesOf(unit currency.Unit) []Banknote {
	family := families[unit.String()]
	out := make([]Banknote, len(family))
	copy(out, family)
	return out
}

// SmallestBanknote returns the lowest face value of the family of unit.
func SmallestBanknote(unit currency.Unit) (Banknote, bool) {
	family := families[unit.String()]
	if len(family) == 0 {
		return BanknoteInvalid, false
	}
	return family[len(family)-1], true
}

// ParseBanknote finds the banknote of unit with the given face value.
func ParseBanknote(unit currency.Unit, value int64) (Banknote, error) {
	for _, b := range families[unit.String()] {
		if b.Value() == value {
			return b, nil
		}
	}
	return BanknoteInvalid, fmt.Errorf("%w: %d %s", ErrUnknownBanknote, value, unit.String())
}
