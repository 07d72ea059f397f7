package postgres

import (
	"context"
	"fmt"
	"time"

	"atm-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// DepositRepo implements ports.DepositRepository. One row per (currency, denomination).
type DepositRepo struct {
	pool Pool
}

// NewDepositRepo creates a new DepositRepo.
func NewDepositRepo(pool Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

// Load returns the saved inventory for currency, or nil if none was saved.
func (r *DepositRepo) Load(ctx context.Context, currency string) (*domain.DepositSnapshot, error) {
	unit, err := domain.ParseCurrency(currency)
	if err != nil {
		return nil, err
	}

	query := `SELECT denomination, count, updated_at FROM atm_deposits WHERE currency = $1`
	rows, err := r.pool.Query(ctx, query, unit.String())
	if err != nil {
		return nil, fmt.Errorf("load deposit: %w", err)
	}
	defer rows.Close()

	snap := &domain.DepositSnapshot{Currency: unit}
	found := false
	for rows.Next() {
		var (
			name      string
			count     int
			updatedAt time.Time
		)
		if err := rows.Scan(&name, &count, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan deposit row: %w", err)
		}

		var b domain.Banknote
		if err := b.UnmarshalText([]byte(name)); err != nil {
			return nil, fmt.Errorf("deposit row: %w", err)
		}
		p, err := domain.NewBanknotesPack(count, b)
		if err != nil {
			return nil, fmt.Errorf("deposit row: %w", err)
		}
		snap.Packs = append(snap.Packs, p)
		if updatedAt.After(snap.UpdatedAt) {
			snap.UpdatedAt = updatedAt
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deposit rows: %w", err)
	}
	if !found {
		return nil, nil
	}

	domain.SortPacks(snap.Packs)
	return snap, nil
}

// Save replaces the stored inventory for the snapshot's currency within a
// database transaction.
func (r *DepositRepo) Save(ctx context.Context, tx pgx.Tx, snap domain.DepositSnapshot) error {
	code := snap.Currency.String()

	if _, err := tx.Exec(ctx, `DELETE FROM atm_deposits WHERE currency = $1`, code); err != nil {
		return fmt.Errorf("clear deposit: %w", err)
	}

	query := `INSERT INTO atm_deposits (currency, denomination, count, updated_at) VALUES ($1, $2, $3, $4)`
	for _, p := range snap.Packs {
		if _, err := tx.Exec(ctx, query, code, p.Denomination.String(), p.Count, snap.UpdatedAt); err != nil {
			return fmt.Errorf("insert deposit %s: %w", p.Denomination, err)
		}
	}
	return nil
}
