package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"atm-engine/internal/core/domain"
	"atm-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	withdrawalColumns = `id, idempotency_key, card_masked, amount, currency, status, error_code, packs, created_at`
	withdrawalSelect  = `id, idempotency_key, card_masked, amount::text, currency, status, error_code, packs, created_at`
)

// WithdrawalRepo implements ports.WithdrawalRepository.
type WithdrawalRepo struct {
	pool Pool
}

// NewWithdrawalRepo creates a new WithdrawalRepo.
func NewWithdrawalRepo(pool Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

// Create appends a withdrawal attempt to the journal.
func (r *WithdrawalRepo) Create(ctx context.Context, w *domain.WithdrawalRecord) error {
	packs, err := json.Marshal(w.Packs)
	if err != nil {
		return fmt.Errorf("marshal packs: %w", err)
	}

	var idempKey, errorCode *string
	if w.IdempotencyKey != "" {
		idempKey = &w.IdempotencyKey
	}
	if w.ErrorCode != nil {
		code := string(*w.ErrorCode)
		errorCode = &code
	}

	query := `INSERT INTO withdrawals (` + withdrawalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.pool.Exec(ctx, query,
		w.ID, idempKey, w.CardMasked, w.Amount.String(), w.Currency,
		string(w.Status), errorCode, packs, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

// GetByID fetches one journal entry, or nil if it does not exist.
func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRecord, error) {
	query := `SELECT ` + withdrawalSelect + ` FROM withdrawals WHERE id = $1`

	w, err := scanWithdrawal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

// List fetches journal entries, newest first, with optional status filter.
func (r *WithdrawalRepo) List(ctx context.Context, params ports.WithdrawalListParams) ([]domain.WithdrawalRecord, int64, error) {
	where := ""
	var args []any
	if params.Status != nil {
		where = "WHERE status = $1"
		args = append(args, string(*params.Status))
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM withdrawals %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count withdrawals: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM withdrawals %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		withdrawalSelect, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()

	records := []domain.WithdrawalRecord{}
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate withdrawal rows: %w", err)
	}
	return records, total, nil
}

func scanWithdrawal(row pgx.Row) (*domain.WithdrawalRecord, error) {
	var (
		w         domain.WithdrawalRecord
		idempKey  *string
		amount    string
		status    string
		errorCode *string
		packs     []byte
	)
	err := row.Scan(
		&w.ID, &idempKey, &w.CardMasked, &amount, &w.Currency,
		&status, &errorCode, &packs, &w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan withdrawal: %w", err)
	}

	if idempKey != nil {
		w.IdempotencyKey = *idempKey
	}
	if w.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("decode amount %q: %w", amount, err)
	}
	w.Status = domain.WithdrawalStatus(status)
	if errorCode != nil {
		code := domain.ErrorCode(*errorCode)
		w.ErrorCode = &code
	}
	w.Packs = []domain.BanknotesPack{}
	if len(packs) > 0 {
		if err := json.Unmarshal(packs, &w.Packs); err != nil {
			return nil, fmt.Errorf("decode packs: %w", err)
		}
	}
	return &w, nil
}
