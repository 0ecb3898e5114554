package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrUnavailable     = errors.New("upstream unavailable")
	ErrNotDeployed     = errors.New("contract not deployed")
	ErrSignerMissing   = errors.New("signer not configured")
	ErrMalformedResult = errors.New("malformed contract result")
	ErrTxReverted      = errors.New("transaction reverted")
	ErrTxDropped       = errors.New("transaction dropped: no receipt before timeout")
)

// Stable error codes returned to API clients.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeValidation          = "VALIDATION_FAILED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeUpstream            = "UPSTREAM_UNAVAILABLE"
	CodeSignerNotConfigured = "SIGNER_NOT_CONFIGURED"
	CodeTxReverted          = "TX_REVERTED"
	CodeInternalError       = "INTERNAL_ERROR"
)

// AppError carries the HTTP status and a stable code alongside the cause.
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	// Details maps form fields to messages for validation failures.
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

// Validation reports per-field form errors. Message is the first field's
// message in fields order.
func Validation(fields map[string]string, order ...string) *AppError {
	msg := "validation failed"
	for _, f := range order {
		if m, ok := fields[f]; ok {
			msg = m
			break
		}
	}
	e := NewAppError(http.StatusBadRequest, CodeValidation, msg, ErrInvalidInput)
	e.Details = fields
	return e
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeAlreadyExists, message, ErrAlreadyExists)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

// ServiceUnavailable wraps a failed RPC or indexer call.
func ServiceUnavailable(message string, err error) *AppError {
	if err == nil {
		err = ErrUnavailable
	}
	return NewAppError(http.StatusServiceUnavailable, CodeUpstream, message, err)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

// AsAppError unwraps err into an AppError. Bare sentinels are mapped to
// their natural status; anything else becomes a 500.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, CodeNotFound, err.Error(), err)
	case errors.Is(err, ErrAlreadyExists):
		return NewAppError(http.StatusConflict, CodeAlreadyExists, err.Error(), err)
	case errors.Is(err, ErrInvalidInput):
		return NewAppError(http.StatusBadRequest, CodeInvalidInput, err.Error(), err)
	case errors.Is(err, ErrNotDeployed), errors.Is(err, ErrUnavailable):
		return NewAppError(http.StatusServiceUnavailable, CodeUpstream, err.Error(), err)
	case errors.Is(err, ErrTxReverted):
		return NewAppError(http.StatusUnprocessableEntity, CodeTxReverted, err.Error(), err)
	case errors.Is(err, ErrSignerMissing):
		return NewAppError(http.StatusNotImplemented, CodeSignerNotConfigured, err.Error(), err)
	}
	return InternalError(err)
}
