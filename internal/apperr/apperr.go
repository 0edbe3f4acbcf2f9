// Package apperr is the error taxonomy shared by stores and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeInternal     Code = "INTERNAL_ERROR"
)

var statusByCode = map[Code]int{
	CodeValidation:   http.StatusUnprocessableEntity,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeNotFound:     http.StatusNotFound,
	CodeConflict:     http.StatusConflict,
	CodeInternal:     http.StatusInternalServerError,
}

// Error is a classified failure with a client-safe message.
type Error struct {
	code    Code
	message string
	details map[string]any
	err     error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err while keeping it reachable through errors.Unwrap.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, err: err}
}

func NotFound(format string, args ...any) *Error {
	return Newf(CodeNotFound, format, args...)
}

func Validation(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

func Unauthorized() *Error {
	return New(CodeUnauthorized, "Unauthorized")
}

func (e *Error) WithDetails(details map[string]any) *Error {
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Code() Code { return e.code }

func (e *Error) Message() string { return e.message }

func (e *Error) Details() map[string]any { return e.details }

// HTTPStatus maps the code to a response status.
func (e *Error) HTTPStatus() int {
	if s, ok := statusByCode[e.code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

func IsCode(err error, code Code) bool {
	e := As(err)
	return e != nil && e.code == code
}

func IsNotFound(err error) bool { return IsCode(err, CodeNotFound) }

func IsValidation(err error) bool { return IsCode(err, CodeValidation) }
