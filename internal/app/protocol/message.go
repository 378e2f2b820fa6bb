/*
Package protocol implements the RESC wire protocol shared by the tracker, chat servers and clients.

Every frame on the wire is a 4-byte big-endian length followed by a NUL-terminated command
string. Command strings follow a small slash grammar (/msg, /all, /userlist, /filestream)
which this package parses into Messages and encodes back.
*/
package protocol

import (
	"fmt"
	"strings"

	"resc/internal/pkg/errs"
)

const (
	// MaxBodyBytes is the largest message body accepted at the codec boundary.
	MaxBodyBytes = 255

	// MaxIdentityBytes is the largest username or hostname accepted in a routing field.
	MaxIdentityBytes = 32

	// MaxHostBytes is the largest server address a chat server may advertise to the tracker.
	MaxHostBytes = 128

	// MaxFrameBytes bounds the declared length of a single frame, terminator included.
	MaxFrameBytes = 1024
)

// Kind identifies what a Message does once it reaches the dispatcher.
type Kind uint8

const (
	Invalid Kind = iota
	Direct
	Broadcast
	UserList
	FileStream
)

func (k Kind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Broadcast:
		return "broadcast"
	case UserList:
		return "userlist"
	case FileStream:
		return "filestream"
	default:
		return "invalid"
	}
}

// Origin tells the codec which side produced a command string. The user token of
// /msg, /all and /filestream names the recipient when a client sends it and the
// author when a server relays it.
type Origin uint8

const (
	FromClient Origin = iota
	FromServer
)

// Message is one routed unit of chat traffic.
type Message struct {
	Kind Kind
	From string
	To   string
	Body string
}

// IsValid reports whether the message can be dispatched.
func (m Message) IsValid() bool {
	return m.Kind != Invalid
}

// Target returns the identity the routing token refers to for the given origin.
func (m Message) Target(origin Origin) string {
	if origin == FromServer {
		return m.From
	}
	return m.To
}

// Validate checks field limits and the routing target required by the message kind.
func (m Message) Validate(origin Origin) error {
	if m.Kind == Invalid {
		return errs.Wrap(errs.ErrProtocol, fmt.Errorf("invalid message kind"))
	}

	if len(m.Body) > MaxBodyBytes {
		return errs.Wrap(errs.ErrProtocol, fmt.Errorf("body of %d bytes exceeds %d", len(m.Body), MaxBodyBytes))
	}
	if strings.IndexByte(m.Body, 0) >= 0 {
		return errs.Wrap(errs.ErrProtocol, fmt.Errorf("body contains NUL"))
	}

	for _, id := range []string{m.From, m.To} {
		if err := ValidateIdentity(id, true); err != nil {
			return err
		}
	}

	switch m.Kind {
	case Direct, FileStream:
		if m.Target(origin) == "" {
			return errs.Wrap(errs.ErrProtocol, fmt.Errorf("%s message without routing target", m.Kind))
		}
	case Broadcast:
		if origin == FromServer && m.From == "" {
			return errs.Wrap(errs.ErrProtocol, fmt.Errorf("relayed broadcast without author"))
		}
	}

	return nil
}

// ValidateIdentity checks a username or hostname token. Identities travel as a single
// whitespace-delimited token, so they may not contain whitespace or '|'.
func ValidateIdentity(id string, allowEmpty bool) error {
	if id == "" {
		if allowEmpty {
			return nil
		}
		return errs.Wrap(errs.ErrProtocol, fmt.Errorf("empty identity"))
	}

	if len(id) > MaxIdentityBytes {
		return errs.Wrap(errs.ErrProtocol, fmt.Errorf("identity of %d bytes exceeds %d", len(id), MaxIdentityBytes))
	}

	if strings.ContainsAny(id, " \t\r\n|\x00") {
		return errs.Wrap(errs.ErrProtocol, fmt.Errorf("identity %q contains a separator", id))
	}

	return nil
}
