package protocol

import (
	"strings"

	"resc/internal/pkg/logx"
)

const (
	cmdDirect     = "msg"
	cmdBroadcast  = "all"
	cmdUserList   = "userlist"
	cmdFileStream = "filestream"
)

// Parse turns a raw command string into a Message. peer is the identity of whoever sent
// the string: the author when origin is FromClient. Unknown commands, missing routing
// tokens and over-limit fields all produce an Invalid message, never an error.
func Parse(raw, peer string, origin Origin) Message {
	if !strings.HasPrefix(raw, "/") {
		// legacy client input: whole line is a broadcast body
		return checked(Message{Kind: Broadcast, From: peer, Body: raw}, origin)
	}

	name, rest, _ := strings.Cut(raw[1:], " ")

	var m Message
	switch name {
	case cmdDirect:
		m = parseRouted(Direct, rest, peer, origin)
	case cmdFileStream:
		m = parseRouted(FileStream, rest, peer, origin)
	case cmdBroadcast:
		m = Message{Kind: Broadcast, Body: rest}
		if origin == FromServer {
			author, body, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
			m.From, m.Body = author, body
		} else {
			m.From = peer
		}
	case cmdUserList:
		m = Message{Kind: UserList, Body: rest}
		if origin == FromClient {
			m.From = peer
		}
	default:
		logx.Debug("Dropping unknown command", "command", name, "peer", peer)
		return Message{Kind: Invalid}
	}

	return checked(m, origin)
}

// parseRouted handles the "<user> <text>" tail shared by /msg and /filestream.
func parseRouted(kind Kind, rest, peer string, origin Origin) Message {
	user, body, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
	if user == "" {
		return Message{Kind: Invalid}
	}

	m := Message{Kind: kind, Body: body}
	if origin == FromServer {
		m.From = user
	} else {
		m.From, m.To = peer, user
	}
	return m
}

func checked(m Message, origin Origin) Message {
	if m.Kind == Invalid {
		return m
	}
	if err := m.Validate(origin); err != nil {
		logx.Debug("Dropping malformed command", "error", err.Error(), "kind", m.Kind.String())
		return Message{Kind: Invalid}
	}
	return m
}

// Encode renders m as the command string Parse would turn back into m. It returns the
// validation error when m cannot be represented for origin.
func Encode(m Message, origin Origin) (string, error) {
	if err := m.Validate(origin); err != nil {
		return "", err
	}

	var b strings.Builder
	switch m.Kind {
	case Direct:
		writeCommand(&b, cmdDirect, m.Target(origin), m.Body)
	case FileStream:
		writeCommand(&b, cmdFileStream, m.Target(origin), m.Body)
	case Broadcast:
		if origin == FromServer {
			writeCommand(&b, cmdBroadcast, m.From, m.Body)
		} else {
			writeCommand(&b, cmdBroadcast, "", m.Body)
		}
	case UserList:
		writeCommand(&b, cmdUserList, "", m.Body)
	}

	return b.String(), nil
}

func writeCommand(b *strings.Builder, name, user, body string) {
	b.WriteByte('/')
	b.WriteString(name)
	if user != "" {
		b.WriteByte(' ')
		b.WriteString(user)
	}
	if body != "" {
		b.WriteByte(' ')
		b.WriteString(body)
	}
}
