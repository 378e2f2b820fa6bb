/*
Package randx provides functions for generating unique identifiers.

It is used to tag every session and audit event with a standard UUID so that log lines from
the TCP listener, the WebSocket gateway and the audit sink can be correlated.
*/
package randx

import (
	"github.com/google/uuid"
)

// SessionID generates a standard UUID v4 string identifying one client or server connection.
func SessionID() string {
	return uuid.New().String()
}

// EventID generates a standard UUID v4 string used as the primary key of an audit event.
func EventID() string {
	return uuid.New().String()
}

// IsValidID reports whether id is a canonical UUID string.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}
