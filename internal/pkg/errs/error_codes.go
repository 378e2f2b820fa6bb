/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify relay and admin API errors
both internally within the tracker and chat servers and in responses to operators.
*/
package errs

// 1xxx: Admin API Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request body is not JSON.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body could not be decoded.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing data after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrNotAvailable indicates an endpoint that this process role does not serve.
	ErrNotAvailable = 1005

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 3xxx: Operator Security Errors
const (
	// ErrUnauthorized indicates a missing or invalid operator token on the admin API.
	ErrUnauthorized = 3005
)

// 4xxx: Relay Errors
const (
	// ErrTransport indicates a send or receive returned short or failed. Connection-fatal.
	ErrTransport = 4001

	// ErrProtocol indicates a frame that decodes to an invalid message. The message is dropped.
	ErrProtocol = 4002

	// ErrAuthRejected indicates a credential mismatch at the auth gate.
	ErrAuthRejected = 4003

	// ErrRoutingMiss indicates a direct message addressed to an identity that is not registered.
	ErrRoutingMiss = 4004

	// ErrNoServerAvailable indicates the tracker pool was empty when a client asked for a server.
	ErrNoServerAvailable = 4005

	// ErrFrameTooLarge indicates a declared frame length beyond the accepted maximum.
	ErrFrameTooLarge = 4006
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
