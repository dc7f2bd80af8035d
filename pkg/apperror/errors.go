package apperror

import (
	"fmt"
	"net/http"
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

// ---- Wallet & Ledger (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New("WAL_001", "Insufficient available balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_002", "Invalid amount", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("WAL_003", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ErrConcurrentModification is surfaced after bounded internal retries; the
// caller may safely retry with the same idempotency key.
func ErrConcurrentModification() *AppError {
	return New("WAL_004", "Wallet modified concurrently, retry the operation", http.StatusConflict)
}

func ErrWalletDeactivated() *AppError {
	return New("WAL_005", "Wallet is deactivated", http.StatusForbidden)
}

// ---- Escrow & Settlement (ESC) ----

func ErrInvalidStateTransition(detail string) *AppError {
	return New("ESC_001", fmt.Sprintf("Invalid hold state transition: %s", detail), http.StatusConflict)
}

// ErrIdempotencyConflict signals that an idempotency key was reused with a
// different payload or outcome. A replay with the same payload is not an
// error and returns the prior result instead.
func ErrIdempotencyConflict() *AppError {
	return New("ESC_002", "Idempotency key reused with a different request", http.StatusConflict)
}

func ErrIdempotencyKeyRequired() *AppError {
	return New("ESC_003", "Idempotency key is required", http.StatusBadRequest)
}

// ---- Security (SEC) ----

func ErrInvalidToken() *AppError {
	return New("SEC_001", "Invalid or expired service token", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrStorageUnavailable reports a failed durable commit. The operation fails
// closed: no partial credit, no partial status flip. Callers retry with the
// same idempotency key.
func ErrStorageUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Storage unavailable, retry with the same idempotency key", http.StatusServiceUnavailable, err)
}

// Validation returns a WAL_002-style validation error.
func Validation(message string) *AppError {
	return New("WAL_002", message, http.StatusBadRequest)
}
