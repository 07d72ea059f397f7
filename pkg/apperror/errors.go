package apperror

import (
	"fmt"
	"net/http"

	"atm-engine/internal/core/domain"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Withdrawal outcomes (codes match domain.ErrorCode) ----

func ErrAuthorization(err error) *AppError {
	return Wrap(string(domain.ErrorCodeAuthorization), "Card or PIN rejected by bank", http.StatusUnauthorized, err)
}

func ErrNoFundsOnAccount(err error) *AppError {
	return Wrap(string(domain.ErrorCodeNoFundsOnAccount), "Account charge rejected by bank", http.StatusPaymentRequired, err)
}

func ErrWrongAmount(err error) *AppError {
	return Wrap(string(domain.ErrorCodeWrongAmount), "Amount cannot be dispensed", http.StatusUnprocessableEntity, err)
}

func ErrWrongCurrency(err error) *AppError {
	return Wrap(string(domain.ErrorCodeWrongCurrency), "Currency not supported by this machine", http.StatusBadRequest, err)
}

// FromErrorCode maps a withdrawal error code to its AppError.
func FromErrorCode(code domain.ErrorCode, err error) *AppError {
	switch code {
	case domain.ErrorCodeAuthorization:
		return ErrAuthorization(err)
	case domain.ErrorCodeNoFundsOnAccount:
		return ErrNoFundsOnAccount(err)
	case domain.ErrorCodeWrongAmount:
		return ErrWrongAmount(err)
	case domain.ErrorCodeWrongCurrency:
		return ErrWrongCurrency(err)
	default:
		return InternalError(fmt.Errorf("unknown error code %q: %w", code, err))
	}
}

// ---- Operator Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Requests (REQ) ----

// Validation returns a REQ_001 validation error.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("REQ_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ErrWithdrawalInProgress is returned when another request holds the same idempotency key.
func ErrWithdrawalInProgress() *AppError {
	return New("REQ_003", "Withdrawal with this idempotency key is already in progress", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_002", "Internal database error", http.StatusInternalServerError, err)
}

func ErrInventoryInconsistent(err error) *AppError {
	return Wrap("SYS_004", "Cash inventory inconsistent, machine needs service", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
