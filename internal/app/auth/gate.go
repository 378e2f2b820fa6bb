/*
Package auth contains the chat server's authentication gate.

The gate is first-login-wins: the first (username, password) pair seen for a name claims it,
and later logins succeed only with the exact same password. Credentials are plaintext and
live only in memory for the lifetime of the process. This mirrors the behaviour the relay
has always had; it is not an account system.
*/
package auth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"resc/internal/app/protocol"
	"resc/internal/pkg/errs"
	"resc/internal/pkg/logx"
)

// requestSeparator splits an authentication frame into username and password.
const requestSeparator = "|"

// Gate validates or lazily registers credentials.
type Gate struct {
	// mu protects credentials.
	mu sync.Mutex

	// credentials maps username to the password that claimed it.
	credentials map[string]string

	logger zerolog.Logger
}

// NewGate returns a gate with no claimed names.
func NewGate() *Gate {
	return &Gate{
		credentials: make(map[string]string),
		logger:      logx.Component("AuthGate"),
	}
}

// Validate claims username for password when the name is unseen, and otherwise reports
// whether password matches the one that claimed it.
func (g *Gate) Validate(username, password string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	stored, ok := g.credentials[username]
	if !ok {
		g.credentials[username] = password
		g.logger.Info().Str("username", username).Msg("Username claimed.")
		return true
	}

	if stored != password {
		g.logger.Warn().Str("username", username).Msg("Credential mismatch.")
		return false
	}

	return true
}

// Known returns how many usernames have been claimed.
func (g *Gate) Known() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.credentials)
}

// ParseRequest splits a "username|password" frame. The password may itself contain '|'.
func ParseRequest(raw string) (string, string, error) {
	username, password, found := strings.Cut(raw, requestSeparator)
	if !found {
		return "", "", errs.Wrap(errs.ErrProtocol, fmt.Errorf("authentication frame without separator"))
	}

	if err := protocol.ValidateIdentity(username, false); err != nil {
		return "", "", err
	}

	return username, password, nil
}

// FormatRequest renders the authentication frame a client sends.
func FormatRequest(username, password string) string {
	return username + requestSeparator + password
}
