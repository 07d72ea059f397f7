package handler

import (
	"atm-engine/internal/adapter/http/dto"
	"atm-engine/internal/core/domain"
	"atm-engine/internal/core/ports"
	"atm-engine/pkg/apperror"
	"atm-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WithdrawalHandler handles cash withdrawal endpoints.
type WithdrawalHandler struct {
	withdrawalSvc ports.WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawalSvc ports.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalSvc: withdrawalSvc}
}

// Withdraw handles POST /api/v1/withdrawals.
func (h *WithdrawalHandler) Withdraw(c *gin.Context) {
	var hdr dto.WithdrawHeaders
	if err := c.ShouldBindHeader(&hdr); err != nil {
		response.Error(c, apperror.Validation("invalid Idempotency-Key header"))
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	record, err := h.withdrawalSvc.Withdraw(c.Request.Context(), ports.WithdrawRequest{
		IdempotencyKey: hdr.IdempotencyKey,
		CardNumber:     req.CardNumber,
		Pin:            req.Pin,
		Amount:         req.Amount,
		Currency:       req.Currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromWithdrawal(record))
}

// GetWithdrawal handles GET /api/v1/withdrawals/:id.
func (h *WithdrawalHandler) GetWithdrawal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid withdrawal id"))
		return
	}

	record, err := h.withdrawalSvc.GetWithdrawal(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromWithdrawal(record))
}

// ListWithdrawals handles GET /api/v1/withdrawals.
func (h *WithdrawalHandler) ListWithdrawals(c *gin.Context) {
	var q dto.ListWithdrawalsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	params := ports.WithdrawalListParams{Page: q.Page, PageSize: q.PageSize}
	if q.Status != "" {
		status := domain.WithdrawalStatus(q.Status)
		params.Status = &status
	}

	records, total, err := h.withdrawalSvc.ListWithdrawals(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WithdrawalResponse, 0, len(records))
	for i := range records {
		items = append(items, dto.FromWithdrawal(&records[i]))
	}

	page, pageSize := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	response.Page(c, items, response.PageMeta{Page: page, PageSize: pageSize, Total: total})
}
