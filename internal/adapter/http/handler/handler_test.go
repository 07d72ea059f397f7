package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"atm-engine/internal/core/domain"
	"atm-engine/internal/core/ports"
	"atm-engine/internal/core/ports/mocks"
	"atm-engine/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func successRecord() *domain.WithdrawalRecord {
	return &domain.WithdrawalRecord{
		ID:         uuid.New(),
		CardMasked: "************1111",
		Amount:     decimal.NewFromInt(60),
		Currency:   "PLN",
		Status:     domain.WithdrawalStatusSuccess,
		Packs:      []domain.BanknotesPack{domain.Pack(3, domain.PL20)},
		CreatedAt:  time.Now().UTC(),
	}
}

var validWithdrawBody = map[string]string{
	"card_number": "4111 1111 1111 1111",
	"pin":         "1234",
	"amount":      "60",
	"currency":    "PLN",
}

// --- Withdrawal Handler Tests ---

func TestWithdraw_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(mockSvc)

	record := successRecord()
	mockSvc.EXPECT().Withdraw(gomock.Any(), ports.WithdrawRequest{
		IdempotencyKey: "terminal-7-0001",
		CardNumber:     "4111 1111 1111 1111",
		Pin:            "1234",
		Amount:         "60",
		Currency:       "PLN",
	}).Return(record, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/api/v1/withdrawals", validWithdrawBody)
	c.Request.Header.Set("Idempotency-Key", "terminal-7-0001")

	h.Withdraw(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, record.ID.String(), data["id"])
	assert.Equal(t, "60.00", data["amount"])
	assert.Equal(t, float64(60), data["total"])
	packs := data["packs"].([]interface{})
	require.Len(t, packs, 1)
	assert.Equal(t, "PL_20", packs[0].(map[string]interface{})["denomination"])
	assert.Equal(t, float64(3), packs[0].(map[string]interface{})["count"])
}

func TestWithdraw_ValidationError(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]string
		header string
	}{
		{"empty body", map[string]string{}, ""},
		{"bad luhn", map[string]string{"card_number": "4111111111111112", "pin": "1234", "amount": "60", "currency": "PLN"}, ""},
		{"bad pin", map[string]string{"card_number": "4111111111111111", "pin": "1", "amount": "60", "currency": "PLN"}, ""},
		{"bad amount", map[string]string{"card_number": "4111111111111111", "pin": "1234", "amount": "-5", "currency": "PLN"}, ""},
		{"bad idempotency key", validWithdrawBody, "not allowed!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			h := NewWithdrawalHandler(mocks.NewMockWithdrawalService(ctrl))

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = jsonRequest(http.MethodPost, "/api/v1/withdrawals", tt.body)
			if tt.header != "" {
				c.Request.Header.Set("Idempotency-Key", tt.header)
			}

			h.Withdraw(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "REQ_001", decodeBody(t, w)["error_code"])
		})
	}
}

func TestWithdraw_Refusals(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperror.ErrAuthorization(domain.ErrAuthorizationRejected), http.StatusUnauthorized, "AUTHORIZATION"},
		{apperror.ErrNoFundsOnAccount(domain.ErrAccountRejected), http.StatusPaymentRequired, "NO_FUNDS_ON_ACCOUNT"},
		{apperror.ErrWrongAmount(nil), http.StatusUnprocessableEntity, "WRONG_AMOUNT"},
		{apperror.ErrWrongCurrency(nil), http.StatusBadRequest, "WRONG_CURRENCY"},
		{apperror.ErrWithdrawalInProgress(), http.StatusConflict, "REQ_003"},
		{errors.New("unexpected"), http.StatusInternalServerError, "SYS_000"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockSvc := mocks.NewMockWithdrawalService(ctrl)
			h := NewWithdrawalHandler(mockSvc)
			mockSvc.EXPECT().Withdraw(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = jsonRequest(http.MethodPost, "/api/v1/withdrawals", validWithdrawBody)

			h.Withdraw(c)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeBody(t, w)["error_code"])
		})
	}
}

func TestGetWithdrawal(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(mockSvc)

	record := successRecord()
	mockSvc.EXPECT().GetWithdrawal(gomock.Any(), record.ID).Return(record, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/withdrawals/"+record.ID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: record.ID.String()}}

	h.GetWithdrawal(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "SUCCESS", data["status"])
}

func TestGetWithdrawal_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewWithdrawalHandler(mocks.NewMockWithdrawalService(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/withdrawals/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	h.GetWithdrawal(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetWithdrawal_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(mockSvc)
	mockSvc.EXPECT().GetWithdrawal(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrNotFound("Withdrawal"))

	id := uuid.New().String()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/withdrawals/"+id, nil)
	c.Params = gin.Params{{Key: "id", Value: id}}

	h.GetWithdrawal(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListWithdrawals_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(mockSvc)

	mockSvc.EXPECT().ListWithdrawals(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, p ports.WithdrawalListParams) ([]domain.WithdrawalRecord, int64, error) {
			require.NotNil(t, p.Status)
			assert.Equal(t, domain.WithdrawalStatusSuccess, *p.Status)
			assert.Equal(t, 2, p.Page)
			assert.Equal(t, 10, p.PageSize)
			return []domain.WithdrawalRecord{*successRecord()}, int64(11), nil
		})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/withdrawals?status=SUCCESS&page=2&page_size=10", nil)

	h.ListWithdrawals(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Len(t, resp["data"].([]interface{}), 1)
	meta := resp["meta"].(map[string]interface{})
	assert.Equal(t, float64(11), meta["total"])
	assert.Equal(t, float64(2), meta["page"])
}

func TestListWithdrawals_BadQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewWithdrawalHandler(mocks.NewMockWithdrawalService(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/withdrawals?status=PENDING", nil)

	h.ListWithdrawals(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListWithdrawals_ServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(mockSvc)
	mockSvc.EXPECT().ListWithdrawals(gomock.Any(), gomock.Any()).Return(nil, int64(0), apperror.ErrDatabaseError(errors.New("db down")))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/withdrawals", nil)

	h.ListWithdrawals(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// --- Deposit Handler Tests ---

func TestGetDeposit(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockDepositService(ctrl)
	h := NewDepositHandler(mockSvc)

	mockSvc.EXPECT().Current(gomock.Any()).Return(&domain.DepositSnapshot{
		Currency: domain.PLN,
		Packs:    []domain.BanknotesPack{domain.Pack(5, domain.PL100), domain.Pack(0, domain.PL50)},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/deposit", nil)

	h.GetDeposit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "PLN", data["currency"])
	assert.Equal(t, float64(500), data["total"])
	assert.Len(t, data["packs"], 2)
}

func TestReplaceDeposit_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockDepositService(ctrl)
	h := NewDepositHandler(mockSvc)

	want := []domain.BanknotesPack{domain.Pack(100, domain.PL20), domain.Pack(0, domain.PL10)}
	mockSvc.EXPECT().Replace(gomock.Any(), want).Return(&domain.DepositSnapshot{
		Currency: domain.PLN,
		Packs:    []domain.BanknotesPack{domain.Pack(100, domain.PL20), domain.Pack(0, domain.PL10)},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPut, "/api/v1/deposit", map[string]interface{}{
		"packs": []map[string]interface{}{
			{"denomination": "PL_20", "count": 100},
			{"denomination": "PL_10", "count": 0},
		},
	})

	h.ReplaceDeposit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2000), decodeBody(t, w)["data"].(map[string]interface{})["total"])
}

func TestReplaceDeposit_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewDepositHandler(mocks.NewMockDepositService(ctrl))

	for _, body := range []interface{}{
		map[string]interface{}{},
		map[string]interface{}{"packs": []map[string]interface{}{{"denomination": "PL_7", "count": 1}}},
		map[string]interface{}{"packs": []map[string]interface{}{{"denomination": "PL_20", "count": -1}}},
	} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = jsonRequest(http.MethodPut, "/api/v1/deposit", body)

		h.ReplaceDeposit(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestReplaceDeposit_ForeignCurrency(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockDepositService(ctrl)
	h := NewDepositHandler(mockSvc)
	mockSvc.EXPECT().Replace(gomock.Any(), gomock.Any()).Return(nil, apperror.Validation("EU_50 is not a PLN banknote"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPut, "/api/v1/deposit", map[string]interface{}{
		"packs": []map[string]interface{}{{"denomination": "EU_50", "count": 4}},
	})

	h.ReplaceDeposit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "EU_50")
}

// --- Auth Handler Tests ---

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	expiry := time.Now().Add(time.Hour)
	mockAuth.EXPECT().Login(gomock.Any(), "operator", "correct horse").Return("jwt_token", expiry, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "  operator ",
		"password": "correct horse",
	})

	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "jwt_token", data["token"])
	assert.Equal(t, float64(expiry.Unix()), data["expiry"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)
	mockAuth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return("", time.Time{}, apperror.ErrInvalidCredentials())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "x", "password": "y"})

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAuthHandler(mocks.NewMockAuthService(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{})

	h.Login(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Health Check & Docs ---

func TestHealthCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	pg := mocks.NewMockHealthChecker(ctrl)
	rd := mocks.NewMockHealthChecker(ctrl)
	pg.EXPECT().Name().Return("postgresql").AnyTimes()
	rd.EXPECT().Name().Return("redis").AnyTimes()

	pg.EXPECT().Ping(gomock.Any()).Return(nil).Times(2)
	rd.EXPECT().Ping(gomock.Any()).Return(nil)
	rd.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
	HealthCheck(pg, rd)(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeBody(t, w)["status"])

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
	HealthCheck(pg, rd)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	assert.Equal(t, "unhealthy", deps["redis"].(map[string]interface{})["status"])
	assert.Equal(t, "healthy", deps["postgresql"].(map[string]interface{})["status"])
}

func TestSwaggerUI(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/swagger", nil)

	SwaggerUI(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/swagger/spec")
}

func TestSwaggerSpec(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/swagger/spec", nil)

	SwaggerSpec(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
	assert.Contains(t, w.Body.String(), "/withdrawals")
}
