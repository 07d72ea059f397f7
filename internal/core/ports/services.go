package ports

import (
	"context"
	"time"

	"atm-engine/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations for operators.
type TokenService interface {
	Generate(operator string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Operator string
}

// IdempotencyCache stores withdrawal receipts by idempotency key.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached receipt JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Claim marks key as in flight. Returns false if another request holds it.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// --- Service Ports (Business Logic) ---

// WithdrawalService runs cash withdrawals for the terminal.
type WithdrawalService interface {
	Withdraw(ctx context.Context, req WithdrawRequest) (*domain.WithdrawalRecord, error)
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRecord, error)
	ListWithdrawals(ctx context.Context, params WithdrawalListParams) ([]domain.WithdrawalRecord, int64, error)
}

// WithdrawRequest holds raw terminal input for a withdrawal.
type WithdrawRequest struct {
	IdempotencyKey string // empty = no replay protection
	CardNumber     string
	Pin            string
	Amount         string
	Currency       string
}

// DepositService administers the machine inventory.
type DepositService interface {
	Current(ctx context.Context) (*domain.DepositSnapshot, error)
	Replace(ctx context.Context, packs []domain.BanknotesPack) (*domain.DepositSnapshot, error)
	Restore(ctx context.Context) (*domain.DepositSnapshot, error)
}

// AuthService authenticates machine operators.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}
