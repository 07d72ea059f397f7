package ports

import (
	"context"

	"atm-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// DepositRepository persists copies of the machine inventory.
// Methods accepting pgx.Tx are used inside transaction blocks.
type DepositRepository interface {
	// Load returns the last saved snapshot for the currency, or nil if none exists.
	Load(ctx context.Context, currency string) (*domain.DepositSnapshot, error)
	Save(ctx context.Context, tx pgx.Tx, snapshot domain.DepositSnapshot) error
}

// WithdrawalRepository is the journal of withdrawal attempts.
type WithdrawalRepository interface {
	Create(ctx context.Context, record *domain.WithdrawalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRecord, error)
	List(ctx context.Context, params WithdrawalListParams) ([]domain.WithdrawalRecord, int64, error)
}

// WithdrawalListParams holds filter + pagination for listing the journal.
type WithdrawalListParams struct {
	Status   *domain.WithdrawalStatus
	Page     int
	PageSize int
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
