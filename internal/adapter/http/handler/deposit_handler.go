package handler

import (
	"atm-engine/internal/adapter/http/dto"
	"atm-engine/internal/core/ports"
	"atm-engine/pkg/apperror"
	"atm-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// DepositHandler handles cassette inventory endpoints for operators.
type DepositHandler struct {
	depositSvc ports.DepositService
}

// NewDepositHandler creates a new DepositHandler.
func NewDepositHandler(depositSvc ports.DepositService) *DepositHandler {
	return &DepositHandler{depositSvc: depositSvc}
}

// GetDeposit handles GET /api/v1/deposit.
func (h *DepositHandler) GetDeposit(c *gin.Context) {
	snap, err := h.depositSvc.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromDeposit(snap))
}

// ReplaceDeposit handles PUT /api/v1/deposit.
func (h *DepositHandler) ReplaceDeposit(c *gin.Context) {
	var req dto.ReplaceDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	packs, err := req.ToPacks()
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	snap, err := h.depositSvc.Replace(c.Request.Context(), packs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromDeposit(snap))
}
