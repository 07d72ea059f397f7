package atm

import (
	"errors"
	"fmt"

	"atm-engine/internal/core/domain"
)

// ErrInventoryInconsistent signals that a validated plan could not be released.
// It is an internal fault, not one of the withdrawal error codes.
var ErrInventoryInconsistent = errors.New("deposit changed between validation and release")

// OperationError is a classified withdrawal failure.
type OperationError struct {
	Code domain.ErrorCode
	Err  error // cause, may be nil
}

func (e *OperationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("atm operation failed [%s]: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("atm operation failed [%s]", e.Code)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func fail(code domain.ErrorCode, err error) *OperationError {
	return &OperationError{Code: code, Err: err}
}

// CodeOf extracts the error code of a classified failure.
func CodeOf(err error) (domain.ErrorCode, bool) {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Code, true
	}
	return "", false
}
