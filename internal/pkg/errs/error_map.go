/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
admin HTTP responses and relay-side error classification.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: Admin API Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Content-Type must be application/json.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Invalid JSON format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request body must contain a single JSON object.", Status: http.StatusBadRequest},
	ErrNotAvailable:         {Code: ErrNotAvailable, Message: "Not available on this node.", Status: http.StatusNotFound},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 3xxx: Operator Security Errors
	ErrUnauthorized: {Code: ErrUnauthorized, Message: "Operator token required.", Status: http.StatusUnauthorized},

	// 4xxx: Relay Errors
	ErrTransport:         {Code: ErrTransport, Message: "transport failure"},
	ErrProtocol:          {Code: ErrProtocol, Message: "malformed frame"},
	ErrAuthRejected:      {Code: ErrAuthRejected, Message: "credentials rejected"},
	ErrRoutingMiss:       {Code: ErrRoutingMiss, Message: "recipient %s is not connected"},
	ErrNoServerAvailable: {Code: ErrNoServerAvailable, Message: "no chat server available"},
	ErrFrameTooLarge:     {Code: ErrFrameTooLarge, Message: "frame of %d bytes exceeds limit of %d"},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
