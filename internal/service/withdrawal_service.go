package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"atm-engine/internal/core/atm"
	"atm-engine/internal/core/domain"
	"atm-engine/internal/core/ports"
	"atm-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// claimTTL bounds how long a crashed request can block its idempotency key.
	claimTTL = 2 * time.Minute
)

// WithdrawalServiceImpl implements ports.WithdrawalService on top of the machine.
type WithdrawalServiceImpl struct {
	machine        *atm.Machine
	withdrawalRepo ports.WithdrawalRepository
	store          *DepositStore
	idempCache     ports.IdempotencyCache
	idempTTL       time.Duration
	log            zerolog.Logger
}

// NewWithdrawalService creates a new WithdrawalServiceImpl.
func NewWithdrawalService(
	machine *atm.Machine,
	withdrawalRepo ports.WithdrawalRepository,
	store *DepositStore,
	idempCache ports.IdempotencyCache,
	idempTTL time.Duration,
	log zerolog.Logger,
) *WithdrawalServiceImpl {
	return &WithdrawalServiceImpl{
		machine:        machine,
		withdrawalRepo: withdrawalRepo,
		store:          store,
		idempCache:     idempCache,
		idempTTL:       idempTTL,
		log:            log,
	}
}

// Withdraw validates terminal input, replays a cached receipt for a repeated
// idempotency key, and otherwise runs one withdrawal on the machine.
// Every attempt that reaches the machine is journaled.
func (s *WithdrawalServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*domain.WithdrawalRecord, error) {
	card, err := domain.NewCard(req.CardNumber)
	if err != nil {
		return nil, apperror.Validation("invalid card number")
	}
	pin, err := domain.NewPinCode(req.Pin)
	if err != nil {
		return nil, apperror.Validation("pin must be 4 to 6 digits")
	}
	amount, err := domain.ParseMoney(req.Amount, req.Currency)
	switch {
	case errors.Is(err, domain.ErrUnknownCurrency):
		return nil, apperror.ErrWrongCurrency(err)
	case err != nil:
		return nil, apperror.Validation("amount must be a non-negative decimal number")
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey(card, req.IdempotencyKey)
		if receipt := s.cachedReceipt(ctx, idempKey); receipt != nil {
			return receipt, nil
		}

		claimed, err := s.idempCache.Claim(ctx, idempKey, claimTTL)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency claim failed, withdrawing without replay protection")
		case !claimed:
			return nil, apperror.ErrWithdrawalInProgress()
		default:
			defer s.releaseClaim(context.WithoutCancel(ctx), idempKey)
		}
	}

	record := &domain.WithdrawalRecord{
		ID:             uuid.New(),
		IdempotencyKey: idempKey,
		CardMasked:     card.Masked(),
		Amount:         amount.Amount,
		Currency:       amount.Currency.String(),
		Status:         domain.WithdrawalStatusFailed,
		Packs:          []domain.BanknotesPack{},
		CreatedAt:      time.Now().UTC(),
	}

	withdrawal, err := s.machine.Withdraw(ctx, pin, card, amount)
	if err != nil {
		return nil, s.recordFailure(ctx, record, err)
	}

	record.Status = domain.WithdrawalStatusSuccess
	record.Packs = withdrawal.Packs()
	s.journal(ctx, record)

	if _, err := s.store.Sync(ctx, s.machine); err != nil {
		s.log.Warn().Err(err).Str("withdrawal_id", record.ID.String()).Msg("failed to persist deposit after withdrawal")
	}

	if idempKey != "" {
		s.cacheReceipt(ctx, idempKey, record)
	}

	s.log.Info().
		Str("withdrawal_id", record.ID.String()).
		Str("card", record.CardMasked).
		Str("amount", amount.String()).
		Int("packs", len(record.Packs)).
		Msg("withdrawal dispensed")

	return record, nil
}

// recordFailure journals a failed attempt and maps the machine error to an AppError.
func (s *WithdrawalServiceImpl) recordFailure(ctx context.Context, record *domain.WithdrawalRecord, err error) error {
	code, classified := atm.CodeOf(err)
	if classified {
		record.ErrorCode = &code
	}
	s.journal(ctx, record)

	if !classified {
		s.log.Error().
			Err(err).
			Str("withdrawal_id", record.ID.String()).
			Str("card", record.CardMasked).
			Msg("withdrawal failed after charge")
		if errors.Is(err, atm.ErrInventoryInconsistent) {
			return apperror.ErrInventoryInconsistent(err)
		}
		return apperror.InternalError(err)
	}

	s.log.Info().
		Str("withdrawal_id", record.ID.String()).
		Str("card", record.CardMasked).
		Str("error_code", string(code)).
		Msg("withdrawal refused")
	return apperror.FromErrorCode(code, err)
}

func (s *WithdrawalServiceImpl) journal(ctx context.Context, record *domain.WithdrawalRecord) {
	if err := s.withdrawalRepo.Create(ctx, record); err != nil {
		s.log.Warn().Err(err).Str("withdrawal_id", record.ID.String()).Msg("failed to journal withdrawal")
	}
}

func (s *WithdrawalServiceImpl) cachedReceipt(ctx context.Context, key string) *domain.WithdrawalRecord {
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, withdrawing without replay protection")
		return nil
	}
	if cached == nil {
		return nil
	}

	var receipt domain.WithdrawalRecord
	if err := json.Unmarshal(cached, &receipt); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding unreadable cached receipt")
		return nil
	}
	receipt.IdempotencyKey = key
	return &receipt
}

func (s *WithdrawalServiceImpl) cacheReceipt(ctx context.Context, key string, record *domain.WithdrawalRecord) {
	raw, err := json.Marshal(record)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to marshal receipt")
		return
	}
	if err := s.idempCache.Set(ctx, key, raw, s.idempTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache receipt in redis")
	}
}

func (s *WithdrawalServiceImpl) releaseClaim(ctx context.Context, key string) {
	if err := s.idempCache.Release(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to release idempotency claim")
	}
}

// GetWithdrawal retrieves one journal entry.
func (s *WithdrawalServiceImpl) GetWithdrawal(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRecord, error) {
	record, err := s.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get withdrawal: %w", err))
	}
	if record == nil {
		return nil, apperror.ErrNotFound("Withdrawal")
	}
	return record, nil
}

// ListWithdrawals pages through the journal, newest first.
func (s *WithdrawalServiceImpl) ListWithdrawals(ctx context.Context, params ports.WithdrawalListParams) ([]domain.WithdrawalRecord, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	records, total, err := s.withdrawalRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list withdrawals: %w", err))
	}
	return records, total, nil
}
