package domain

import "errors"

// ErrorCode classifies a failed withdrawal.
type ErrorCode string

const (
	ErrorCodeAuthorization    ErrorCode = "AUTHORIZATION"
	ErrorCodeNoFundsOnAccount ErrorCode = "NO_FUNDS_ON_ACCOUNT"
	ErrorCodeWrongAmount      ErrorCode = "WRONG_AMOUNT"
	ErrorCodeWrongCurrency    ErrorCode = "WRONG_CURRENCY"
)

// ErrorCodes lists every withdrawal failure kind.
var ErrorCodes = []ErrorCode{
	ErrorCodeAuthorization,
	ErrorCodeNoFundsOnAccount,
	ErrorCodeWrongAmount,
	ErrorCodeWrongCurrency,
}

// Value object validation errors.
var (
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrNegativeCount   = errors.New("banknote count must not be negative")
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrUnknownBanknote = errors.New("unknown banknote")
	ErrInvalidCard     = errors.New("invalid card number")
	ErrInvalidPin      = errors.New("invalid pin code")
)

// Bank gateway errors. Gateway adapters wrap these with %w.
var (
	ErrAuthorizationRejected = errors.New("authorization rejected by bank")
	ErrAccountRejected       = errors.New("charge rejected by bank")
	ErrGatewayUnavailable    = errors.New("bank gateway unavailable")
)
