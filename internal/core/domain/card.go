package domain

import (
	"fmt"
	"strings"
)

// Card identifies the cardholder account. Only the number is forwarded to the bank.
type Card struct {
	number string
}

// NewCard normalises a card number (spaces and dashes removed) and checks
// length and the Luhn checksum.
func NewCard(number string) (Card, error) {
	clean := strings.NewReplacer(" ", "", "-", "").Replace(number)
	if len(clean) < 12 || len(clean) > 19 || !isDigits(clean) {
		return Card{}, fmt.Errorf("%w: bad length or characters", ErrInvalidCard)
	}
	if !passesLuhn(clean) {
		return Card{}, fmt.Errorf("%w: checksum mismatch", ErrInvalidCard)
	}
	return Card{number: clean}, nil
}

// Number returns the normalised card number.
func (c Card) Number() string {
	return c.number
}

// Masked hides all but the last four digits.
func (c Card) Masked() string {
	if len(c.number) <= 4 {
		return c.number
	}
	return strings.Repeat("*", len(c.number)-4) + c.number[len(c.number)-4:]
}

// PinCode is the cardholder secret. It is opaque to the machine and never printed.
type PinCode struct {
	digits string
}

// NewPinCode accepts 4 to 6 digits.
func NewPinCode(digits string) (PinCode, error) {
	if len(digits) < 4 || len(digits) > 6 || !isDigits(digits) {
		return PinCode{}, ErrInvalidPin
	}
	return PinCode{digits: digits}, nil
}

// Digits returns the raw PIN for the bank gateway.
func (p PinCode) Digits() string {
	return p.digits
}

func (p PinCode) String() string {
	return "****"
}

// AuthorizationToken is issued by the bank on successful authorization and
// passed unchanged to the charge call.
type AuthorizationToken string

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func passesLuhn(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
