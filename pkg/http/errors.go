package http

import (
	"fmt"
	"net/http"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundError(message string) *AppError {
	return newAppError("ERR_NOT_FOUND", message, http.StatusNotFound)
}

func BadRequestError(message string) *AppError {
	return newAppError("ERR_BAD_REQUEST", message, http.StatusBadRequest)
}

// UnavailableError creates a 503 error, used when no upstream data could be obtained at all.
func UnavailableError(message string) *AppError {
	return newAppError("ERR_UNAVAILABLE", message, http.StatusServiceUnavailable)
}
