package dto

import (
	"time"

	"atm-engine/internal/core/domain"
)

// WithdrawRequest is the request body for a cash withdrawal.
// Currency is not validated here: an unknown code is a WRONG_CURRENCY refusal.
type WithdrawRequest struct {
	CardNumber string `json:"card_number" binding:"required,card_number"`
	Pin        string `json:"pin" binding:"required,pin_code"`
	Amount     string `json:"amount" binding:"required,money_amount"`
	Currency   string `json:"currency" binding:"required,max=8"`
}

// WithdrawHeaders holds the optional replay protection header.
type WithdrawHeaders struct {
	IdempotencyKey string `header:"Idempotency-Key" binding:"omitempty,max=64,safe_id"`
}

// ListWithdrawalsQuery is the query string of the journal listing.
type ListWithdrawalsQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=SUCCESS FAILED"`
	Page     int    `form:"page" binding:"omitempty,gte=1"`
	PageSize int    `form:"page_size" binding:"omitempty,gte=1,lte=100"`
}

// PackPayload is one denomination and count, e.g. {"denomination":"PL_20","count":100}.
type PackPayload struct {
	Denomination string `json:"denomination" binding:"required,banknote"`
	Count        *int   `json:"count" binding:"required,gte=0"`
}

// ReplaceDepositRequest is the request body for loading the cassettes.
type ReplaceDepositRequest struct {
	Packs []PackPayload `json:"packs" binding:"required,min=1,dive"`
}

// LoginRequest is the request body for operator login.
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=128"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// PackResponse describes one pack of banknotes.
type PackResponse struct {
	Denomination string `json:"denomination"`
	Value        int64  `json:"value"`
	Count        int    `json:"count"`
}

// WithdrawalResponse is a receipt or journal entry.
type WithdrawalResponse struct {
	ID        string         `json:"id"`
	Card      string         `json:"card"`
	Amount    string         `json:"amount"`
	Currency  string         `json:"currency"`
	Status    string         `json:"status"`
	ErrorCode *string        `json:"error_code,omitempty"`
	Packs     []PackResponse `json:"packs"`
	Total     int64          `json:"total"`
	CreatedAt string         `json:"created_at"`
}

// DepositResponse is the machine inventory.
type DepositResponse struct {
	Currency  string         `json:"currency"`
	Packs     []PackResponse `json:"packs"`
	Total     int64          `json:"total"`
	UpdatedAt string         `json:"updated_at"`
}

// ToPacks converts validated payloads to domain packs.
func (r ReplaceDepositRequest) ToPacks() ([]domain.BanknotesPack, error) {
	packs := make([]domain.BanknotesPack, 0, len(r.Packs))
	for _, p := range r.Packs {
		var b domain.Banknote
		if err := b.UnmarshalText([]byte(p.Denomination)); err != nil {
			return nil, err
		}
		count := 0
		if p.Count != nil {
			count = *p.Count
		}
		pack, err := domain.NewBanknotesPack(count, b)
		if err != nil {
			return nil, err
		}
		packs = append(packs, pack)
	}
	return packs, nil
}

// FromPacks converts domain packs for output.
func FromPacks(packs []domain.BanknotesPack) []PackResponse {
	out := make([]PackResponse, 0, len(packs))
	for _, p := range packs {
		out = append(out, PackResponse{
			Denomination: p.Denomination.String(),
			Value:        p.Denomination.Value(),
			Count:        p.Count,
		})
	}
	return out
}

// FromWithdrawal converts a journal record.
func FromWithdrawal(r *domain.WithdrawalRecord) WithdrawalResponse {
	resp := WithdrawalResponse{
		ID:        r.ID.String(),
		Card:      r.CardMasked,
		Amount:    r.Amount.StringFixed(2),
		Currency:  r.Currency,
		Status:    string(r.Status),
		Packs:     FromPacks(r.Packs),
		Total:     domain.TotalOf(r.Packs),
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
	if r.ErrorCode != nil {
		code := string(*r.ErrorCode)
		resp.ErrorCode = &code
	}
	return resp
}

// FromDeposit converts an inventory snapshot.
func FromDeposit(s *domain.DepositSnapshot) DepositResponse {
	return DepositResponse{
		Currency:  s.Currency.String(),
		Packs:     FromPacks(s.Packs),
		Total:     s.Total(),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}
