package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"atm-engine/internal/core/atm"
	"atm-engine/internal/core/domain"
	"atm-engine/internal/core/ports"
	"atm-engine/internal/core/ports/mocks"
	"atm-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testCard = "4111 1111 1111 1111"
	testPin  = "1234"
	testTTL  = 10 * time.Minute
)

type withdrawalTestDeps struct {
	svc            *WithdrawalServiceImpl
	machine        *atm.Machine
	bank           *mocks.MockBankGateway
	withdrawalRepo *mocks.MockWithdrawalRepository
	depositRepo    *mocks.MockDepositRepository
	transactor     *mocks.MockDBTransactor
	idempCache     *mocks.MockIdempotencyCache
}

func setupWithdrawalService(t *testing.T, persist bool, packs ...domain.BanknotesPack) *withdrawalTestDeps {
	ctrl := gomock.NewController(t)
	d := &withdrawalTestDeps{
		bank:           mocks.NewMockBankGateway(ctrl),
		withdrawalRepo: mocks.NewMockWithdrawalRepository(ctrl),
		depositRepo:    mocks.NewMockDepositRepository(ctrl),
		transactor:     mocks.NewMockDBTransactor(ctrl),
		idempCache:     mocks.NewMockIdempotencyCache(ctrl),
	}
	d.machine = atm.NewMachine(d.bank, domain.PLN, zerolog.Nop())
	d.machine.SetDeposit(atm.NewMoneyDeposit(domain.PLN, packs...))
	d.svc = NewWithdrawalService(
		d.machine, d.withdrawalRepo, NewDepositStore(d.depositRepo, d.transactor, persist),
		d.idempCache, testTTL, zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	committed bool
}

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error {
	m.committed = true
	return nil
}

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}

func mustCard(t *testing.T) domain.Card {
	t.Helper()
	c, err := domain.NewCard(testCard)
	require.NoError(t, err)
	return c
}

func mustPin(t *testing.T) domain.PinCode {
	t.Helper()
	p, err := domain.NewPinCode(testPin)
	require.NoError(t, err)
	return p
}

func withdrawReq(amount, cur string) ports.WithdrawRequest {
	return ports.WithdrawRequest{CardNumber: testCard, Pin: testPin, Amount: amount, Currency: cur}
}

// ==================== Withdraw Tests ====================

func TestWithdrawalService_Withdraw_Success(t *testing.T) {
	d := setupWithdrawalService(t, true, domain.Pack(5, domain.PL100), domain.Pack(10, domain.PL20))
	ctx := context.Background()
	tx := &mockTx{}

	req := withdrawReq("60", "PLN")
	req.IdempotencyKey = "terminal-7-0001"
	key := domain.BuildIdempotencyKey(mustCard(t), "terminal-7-0001")

	d.idempCache.EXPECT().Get(ctx, key).Return(nil, nil)
	d.idempCache.EXPECT().Claim(ctx, key, claimTTL).Return(true, nil)
	gomock.InOrder(
		d.bank.EXPECT().Authorize(ctx, mustPin(t), "4111111111111111").Return(domain.AuthorizationToken("tok-1"), nil),
		d.bank.EXPECT().Charge(ctx, domain.AuthorizationToken("tok-1"), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ domain.AuthorizationToken, m domain.Money) error {
				assert.True(t, m.Equal(domain.MoneyOf(60, domain.PLN)))
				return nil
			}),
	)
	d.withdrawalRepo.EXPECT().Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, r *domain.WithdrawalRecord) error {
			assert.Equal(t, domain.WithdrawalStatusSuccess, r.Status)
			assert.Nil(t, r.ErrorCode)
			assert.Equal(t, key, r.IdempotencyKey)
			return nil
		})
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.depositRepo.EXPECT().Save(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, snap domain.DepositSnapshot) error {
			assert.Equal(t, int64(5*100+7*20), snap.Total())
			return nil
		})
	gomock.InOrder(
		d.idempCache.EXPECT().Set(ctx, key, gomock.Any(), testTTL).Return(nil),
		d.idempCache.EXPECT().Release(gomock.Any(), key).Return(nil),
	)

	record, err := d.svc.Withdraw(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.IsSuccess())
	assert.Equal(t, "************1111", record.CardMasked)
	assert.Equal(t, "PLN", record.Currency)
	assert.Equal(t, []domain.BanknotesPack{domain.Pack(3, domain.PL20)}, record.Packs)
	assert.True(t, tx.committed)
	assert.Equal(t, 7, d.machine.CurrentDeposit().AvailableCount(domain.PL20))
}

func TestWithdrawalService_Withdraw_ReplaysCachedReceipt(t *testing.T) {
	d := setupWithdrawalService(t, true, domain.Pack(10, domain.PL20))
	ctx := context.Background()

	cached := domain.WithdrawalRecord{
		ID:         uuid.New(),
		CardMasked: "************1111",
		Currency:   "PLN",
		Status:     domain.WithdrawalStatusSuccess,
		Packs:      []domain.BanknotesPack{domain.Pack(3, domain.PL20)},
	}
	raw, err := json.Marshal(cached)
	require.NoError(t, err)

	req := withdrawReq("60", "PLN")
	req.IdempotencyKey = "dup"
	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(raw, nil)

	record, err := d.svc.Withdraw(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, cached.ID, record.ID)
	assert.Equal(t, cached.Packs, record.Packs)
	assert.Equal(t, 10, d.machine.CurrentDeposit().AvailableCount(domain.PL20), "replay must not dispense")
}

func TestWithdrawalService_Withdraw_CacheDownStillWithdraws(t *testing.T) {
	d := setupWithdrawalService(t, false, domain.Pack(10, domain.PL20))
	ctx := context.Background()

	req := withdrawReq("20", "PLN")
	req.IdempotencyKey = "k"

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, errors.New("redis: connection refused"))
	d.idempCache.EXPECT().Claim(ctx, gomock.Any(), claimTTL).Return(false, errors.New("redis: connection refused"))
	d.bank.EXPECT().Authorize(ctx, gomock.Any(), gomock.Any()).Return(domain.AuthorizationToken("t"), nil)
	d.bank.EXPECT().Charge(ctx, gomock.Any(), gomock.Any()).Return(nil)
	d.withdrawalRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), testTTL).Return(errors.New("redis: connection refused"))

	record, err := d.svc.Withdraw(ctx, req)
	require.NoError(t, err)
	assert.True(t, record.IsSuccess())
}

func TestWithdrawalService_Withdraw_KeyInFlight(t *testing.T) {
	d := setupWithdrawalService(t, false, domain.Pack(10, domain.PL20))
	ctx := context.Background()

	req := withdrawReq("20", "PLN")
	req.IdempotencyKey = "busy"

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.idempCache.EXPECT().Claim(ctx, gomock.Any(), claimTTL).Return(false, nil)

	record, err := d.svc.Withdraw(ctx, req)
	assert.Nil(t, record)
	assertAppError(t, err, "REQ_003")
	assert.Equal(t, 10, d.machine.CurrentDeposit().AvailableCount(domain.PL20))
}

func TestWithdrawalService_Withdraw_ReleasesClaimOnRefusal(t *testing.T) {
	d := setupWithdrawalService(t, false, domain.Pack(10, domain.PL20))
	ctx := context.Background()

	req := withdrawReq("20", "PLN")
	req.IdempotencyKey = "k"

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.idempCache.EXPECT().Claim(ctx, gomock.Any(), claimTTL).Return(true, nil)
	d.bank.EXPECT().Authorize(ctx, gomock.Any(), gomock.Any()).Return(domain.AuthorizationToken(""), domain.ErrAuthorizationRejected)
	d.withdrawalRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Release(gomock.Any(), gomock.Any()).Return(errors.New("redis: timeout"))

	_, err := d.svc.Withdraw(ctx, req)
	assertAppError(t, err, "AUTHORIZATION")
}

func TestWithdrawalService_Withdraw_ReleasesClaimAfterClientGone(t *testing.T) {
	d := setupWithdrawalService(t, false, domain.Pack(10, domain.PL20))
	ctx, cancel := context.WithCancel(context.Background())

	req := withdrawReq("20", "PLN")
	req.IdempotencyKey = "k"

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.idempCache.EXPECT().Claim(ctx, gomock.Any(), claimTTL).Return(true, nil)
	d.bank.EXPECT().Authorize(ctx, gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.PinCode, string) (domain.AuthorizationToken, error) {
			cancel()
			return "", context.Canceled
		})
	d.withdrawalRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Release(gomock.Any(), gomock.Any()).
		DoAndReturn(func(releaseCtx context.Context, _ string) error {
			assert.NoError(t, releaseCtx.Err())
			return nil
		})

	_, err := d.svc.Withdraw(ctx, req)
	assertAppError(t, err, "AUTHORIZATION")
}

func TestWithdrawalService_Withdraw_WithoutKeySkipsCache(t *testing.T) {
	d := setupWithdrawalService(t, false, domain.Pack(10, domain.PL20))
	ctx := context.Background()

	d.bank.EXPECT().Authorize(ctx, gomock.Any(), gomock.Any()).Return(domain.AuthorizationToken("t"), nil)
	d.bank.EXPECT().Charge(ctx, gomock.Any(), gomock.Any()).Return(nil)
	d.withdrawalRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.Withdraw(ctx, withdrawReq("20", "PLN"))
	require.NoError(t, err)
}

func TestWithdrawalService_Withdraw_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  ports.WithdrawRequest
		code string
	}{
		{"bad card", ports.WithdrawRequest{CardNumber: "4111111111111112", Pin: testPin, Amount: "20", Currency: "PLN"}, "REQ_001"},
		{"bad pin", ports.WithdrawRequest{CardNumber: testCard, Pin: "12", Amount: "20", Currency: "PLN"}, "REQ_001"},
		{"bad amount", ports.WithdrawRequest{CardNumber: testCard, Pin: testPin, Amount: "lots", Currency: "PLN"}, "REQ_001"},
		{"negative amount", ports.WithdrawRequest{CardNumber: testCard, Pin: testPin, Amount: "-20", Currency: "PLN"}, "REQ_001"},
		{"unknown currency", ports.WithdrawRequest{CardNumber: testCard, Pin: testPin, Amount: "20", Currency: "XYZ1"}, "WRONG_CURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupWithdrawalService(t, true, domain.Pack(10, domain.PL20))

			record, err := d.svc.Withdraw(context.Background(), tt.req)
			assert.Nil(t, record)
			assertAppError(t, err, tt.code)
		})
	}
}

func TestWithdrawalService_Withdraw_RefusalsAreJournaled(t *testing.T) {
	tests := []struct {
		name  string
		req   ports.WithdrawRequest
		setup func(d *withdrawalTestDeps)
		code  domain.ErrorCode
	}{
		{
			name:  "wrong currency",
			req:   withdrawReq("20", "EUR"),
			setup: func(d *withdrawalTestDeps) {},
			code:  domain.ErrorCodeWrongCurrency,
		},
		{
			name: "authorization rejected",
			req:  withdrawReq("20", "PLN"),
			setup: func(d *withdrawalTestDeps) {
				d.bank.EXPECT().Authorize(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.AuthorizationToken(""), domain.ErrAuthorizationRejected)
			},
			code: domain.ErrorCodeAuthorization,
		},
		{
			name: "amount not dispensable",
			req:  withdrawReq("30", "PLN"),
			setup: func(d *withdrawalTestDeps) {
				d.bank.EXPECT().Authorize(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.AuthorizationToken("t"), nil)
			},
			code: domain.ErrorCodeWrongAmount,
		},
		{
			name: "charge rejected",
			req:  withdrawReq("20", "PLN"),
			setup: func(d *withdrawalTestDeps) {
				d.bank.EXPECT().Authorize(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.AuthorizationToken("t"), nil)
				d.bank.EXPECT().Charge(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.ErrAccountRejected)
			},
			code: domain.ErrorCodeNoFundsOnAccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupWithdrawalService(t, true, domain.Pack(10, domain.PL20))
			tt.setup(d)

			var journaled *domain.WithdrawalRecord
			d.withdrawalRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, r *domain.WithdrawalRecord) error {
					journaled = r
					return nil
				})

			record, err := d.svc.Withdraw(context.Background(), tt.req)
			assert.Nil(t, record)
			assertAppError(t, err, string(tt.code))

			require.NotNil(t, journaled)
			assert.Equal(t, domain.WithdrawalStatusFailed, journaled.Status)
			require.NotNil(t, journaled.ErrorCode)
			assert.Equal(t, tt.code, *journaled.ErrorCode)
			assert.Equal(t, 10, d.machine.CurrentDeposit().AvailableCount(domain.PL20), "refusal must not touch the deposit")
		})
	}
}

func TestWithdrawalService_Withdraw_JournalFailureIsNotFatal(t *testing.T) {
	d := setupWithdrawalService(t, false, domain.Pack(10, domain.PL20))
	ctx := context.Background()

	d.bank.EXPECT().Authorize(ctx, gomock.Any(), gomock.Any()).Return(domain.AuthorizationToken("t"), nil)
	d.bank.EXPECT().Charge(ctx, gomock.Any(), gomock.Any()).Return(nil)
	d.withdrawalRepo.EXPECT().Create(ctx, gomock.Any()).Return(errors.New("pg: connection closed"))

	record, err := d.svc.Withdraw(ctx, withdrawReq("40", "PLN"))
	require.NoError(t, err)
	assert.Equal(t, []domain.BanknotesPack{domain.Pack(2, domain.PL20)}, record.Packs)
}

func TestWithdrawalService_Withdraw_PersistFailureIsNotFatal(t *testing.T) {
	d := setupWithdrawalService(t, true, domain.Pack(10, domain.PL20))
	ctx := context.Background()

	d.bank.EXPECT().Authorize(ctx, gomock.Any(), gomock.Any()).Return(domain.AuthorizationToken("t"), nil)
	d.bank.EXPECT().Charge(ctx, gomock.Any(), gomock.Any()).Return(nil)
	d.withdrawalRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.transactor.EXPECT().Begin(ctx).Return(nil, errors.New("pool closed"))

	record, err := d.svc.Withdraw(ctx, withdrawReq("20", "PLN"))
	require.NoError(t, err)
	assert.True(t, record.IsSuccess())
}

func TestWithdrawalService_RecordFailure_Unclassified(t *testing.T) {
	d := setupWithdrawalService(t, false)
	ctx := context.Background()

	d.withdrawalRepo.EXPECT().Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, r *domain.WithdrawalRecord) error {
			assert.Nil(t, r.ErrorCode)
			return nil
		}).Times(2)

	err := d.svc.recordFailure(ctx, &domain.WithdrawalRecord{ID: uuid.New()},
		fmt.Errorf("%w: short by 1xPL_20", atm.ErrInventoryInconsistent))
	assertAppError(t, err, "SYS_004")

	err = d.svc.recordFailure(ctx, &domain.WithdrawalRecord{ID: uuid.New()}, errors.New("boom"))
	assertAppError(t, err, "SYS_001")
}

// ==================== Journal Queries ====================

func TestWithdrawalService_GetWithdrawal(t *testing.T) {
	d := setupWithdrawalService(t, false)
	ctx := context.Background()
	id := uuid.New()

	d.withdrawalRepo.EXPECT().GetByID(ctx, id).Return(&domain.WithdrawalRecord{ID: id}, nil)
	record, err := d.svc.GetWithdrawal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)

	d.withdrawalRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)
	_, err = d.svc.GetWithdrawal(ctx, id)
	assertAppError(t, err, "REQ_002")

	d.withdrawalRepo.EXPECT().GetByID(ctx, id).Return(nil, errors.New("db down"))
	_, err = d.svc.GetWithdrawal(ctx, id)
	assertAppError(t, err, "SYS_002")
}

func TestWithdrawalService_ListWithdrawals_NormalizesPaging(t *testing.T) {
	tests := []struct {
		name     string
		in       ports.WithdrawalListParams
		page     int
		pageSize int
	}{
		{"defaults", ports.WithdrawalListParams{}, 1, defaultPageSize},
		{"too large", ports.WithdrawalListParams{Page: 3, PageSize: 1000}, 3, maxPageSize},
		{"as given", ports.WithdrawalListParams{Page: 2, PageSize: 10}, 2, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupWithdrawalService(t, false)
			ctx := context.Background()

			d.withdrawalRepo.EXPECT().List(ctx, gomock.Any()).
				DoAndReturn(func(_ context.Context, p ports.WithdrawalListParams) ([]domain.WithdrawalRecord, int64, error) {
					assert.Equal(t, tt.page, p.Page)
					assert.Equal(t, tt.pageSize, p.PageSize)
					return []domain.WithdrawalRecord{{ID: uuid.New()}}, 1, nil
				})

			records, total, err := d.svc.ListWithdrawals(ctx, tt.in)
			require.NoError(t, err)
			assert.Len(t, records, 1)
			assert.Equal(t, int64(1), total)
		})
	}
}

func TestWithdrawalService_ListWithdrawals_DBError(t *testing.T) {
	d := setupWithdrawalService(t, false)
	d.withdrawalRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, int64(0), errors.New("db down"))

	_, _, err := d.svc.ListWithdrawals(context.Background(), ports.WithdrawalListParams{})
	assertAppError(t, err, "SYS_002")
}
