package dto

import (
	"regexp"

	"atm-engine/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("card_number", validateCardNumber)
		_ = v.RegisterValidation("pin_code", validatePinCode)
		_ = v.RegisterValidation("money_amount", validateMoneyAmount)
		_ = v.RegisterValidation("banknote", validateBanknote)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateCardNumber accepts digits with optional spaces or dashes and a valid Luhn checksum.
func validateCardNumber(fl validator.FieldLevel) bool {
	_, err := domain.NewCard(fl.Field().String())
	return err == nil
}

func validatePinCode(fl validator.FieldLevel) bool {
	_, err := domain.NewPinCode(fl.Field().String())
	return err == nil
}

// validateMoneyAmount accepts a non-negative decimal like "60" or "60.00".
func validateMoneyAmount(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && !d.IsNegative()
}

// validateBanknote accepts a denomination name like "PL_20".
func validateBanknote(fl validator.FieldLevel) bool {
	var b domain.Banknote
	return b.UnmarshalText([]byte(fl.Field().String())) == nil
}
