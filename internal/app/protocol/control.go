package protocol

import (
	"fmt"
	"strings"

	"resc/internal/pkg/errs"
)

// Control frames exchanged outside the command grammar.
const (
	// AuthSuccess and AuthFailure answer an authentication frame.
	AuthSuccess = "SUCCESSFUL"
	AuthFailure = "UNSUCCESSFUL"

	// HelloClient and HelloServer open a connection to the tracker.
	HelloClient = "CLIENT"
	HelloServer = "SERVER"

	// NoServer is the tracker's answer to a client when its pool is empty.
	NoServer = "ERROR"

	// QuitCommand ends a session.
	QuitCommand = "/quit"
)

var quitAliases = map[string]struct{}{
	"/quit":  {},
	"/exit":  {},
	"/close": {},
}

// IsQuit reports whether raw asks the server to end the session.
func IsQuit(raw string) bool {
	_, ok := quitAliases[strings.TrimSpace(raw)]
	return ok
}

// Hello is a parsed tracker greeting.
type Hello struct {
	Role string
	Addr string
}

// ParseHello parses "CLIENT" or "SERVER [addr]".
func ParseHello(raw string) (Hello, error) {
	role, addr, _ := strings.Cut(strings.TrimSpace(raw), " ")
	addr = strings.TrimSpace(addr)

	switch role {
	case HelloClient:
		return Hello{Role: role}, nil
	case HelloServer:
		if len(addr) > MaxHostBytes || strings.ContainsAny(addr, " \t|\x00") {
			return Hello{}, errs.Wrap(errs.ErrProtocol, fmt.Errorf("bad advertised address %q", addr))
		}
		return Hello{Role: role, Addr: addr}, nil
	default:
		return Hello{}, errs.Wrap(errs.ErrProtocol, fmt.Errorf("unknown tracker greeting %q", role))
	}
}

// FormatHello renders a tracker greeting.
func FormatHello(h Hello) string {
	if h.Addr == "" {
		return h.Role
	}
	return h.Role + " " + h.Addr
}
