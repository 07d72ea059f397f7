package ports

import (
	"context"

	"atm-engine/internal/core/domain"
)

//go:generate mockgen -source=bank.go -destination=mocks/mock_bank.go -package=mocks

// BankGateway is the banking backend that owns account state.
// Timeouts and retries are the implementation's concern.
type BankGateway interface {
	// Authorize checks the PIN/card pair and returns a token for Charge.
	Authorize(ctx context.Context, pin domain.PinCode, cardNumber string) (domain.AuthorizationToken, error)
	// Charge debits the authorized account.
	Charge(ctx context.Context, token domain.AuthorizationToken, amount domain.Money) error
}
