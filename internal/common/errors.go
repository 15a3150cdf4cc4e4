package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrStorage      = errors.New("storage error")
	ErrValidation   = errors.New("validation failed")
	ErrGateway      = errors.New("gateway error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// GatewayError tags a failed external call with the operation that failed.
func GatewayError(op string, cause error) error {
	return NewAppError("GATEWAY_ERROR", op, errors.Join(ErrGateway, cause))
}

// StorageError tags a failed read or write of a persisted artifact.
func StorageError(op string, cause error) error {
	return NewAppError("STORAGE_ERROR", op, errors.Join(ErrStorage, cause))
}
