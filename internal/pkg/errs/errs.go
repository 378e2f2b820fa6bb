/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and includes a business code, a message, an HTTP status code and an optional cause so that
relay errors can be classified with errors.Is while keeping the underlying I/O error.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"resc/internal/pkg/logx"
)

// CustomError is the custom error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the human-readable error description.
	Message string

	// Status is the HTTP status code used when the error reaches the admin API.
	Status int

	// Cause is the wrapped lower-level error, if any.
	Cause error
}

// Sentinels for errors.Is comparisons. Only the code is compared.
var (
	Transport         = &CustomError{Code: ErrTransport}
	Protocol          = &CustomError{Code: ErrProtocol}
	AuthRejected      = &CustomError{Code: ErrAuthRejected}
	RoutingMiss       = &CustomError{Code: ErrRoutingMiss}
	NoServerAvailable = &CustomError{Code: ErrNoServerAvailable}
	FrameTooLarge     = &CustomError{Code: ErrFrameTooLarge}
)

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("error code %d: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("error code %d: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *CustomError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a CustomError carrying the same code.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError constructs and returns a new *CustomError instance based on a predefined error code.
// The optional details parameter allows for formatting arguments (printf-style) to be supplied
// for the error message. If an unknown code is provided, it defaults to returning ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &CustomError{
			Code:    unknownErr.Code,
			Message: unknownErr.Message,
			Status:  unknownErr.Status,
		}
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
				"code", code,
			)
		}
	}

	return &customErr
}

// Wrap builds the error for code and records cause as its underlying error.
func Wrap(code int, cause error, details ...any) *CustomError {
	customErr := NewError(code, details...)
	customErr.Cause = cause
	return customErr
}

// CodeOf returns the code of the first CustomError in err's chain, or ErrUnknown.
func CodeOf(err error) int {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return ErrUnknown
}
