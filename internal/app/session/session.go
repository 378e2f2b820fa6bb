/*
Package session drives one client connection on a chat server.

A session starts Unauthenticated and loops on "username|password" frames until the gate
accepts one. Once Authenticated it owns a mailbox in the server's registry: inbound frames
are parsed and routed into other mailboxes, and its own mailbox is drained back to the
client whenever the registry signals it (with a slow fallback tick). Any transport failure
or a quit command moves it to Closed, after which the mailbox and presence entry are gone.
*/
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"resc/internal/app/audit"
	"resc/internal/app/auth"
	"resc/internal/app/mailbox"
	"resc/internal/app/protocol"
	"resc/internal/app/user"
	"resc/internal/pkg/errs"
	"resc/internal/pkg/logx"
	"resc/internal/pkg/randx"
)

// DefaultPollInterval is the fallback drain tick used when the notify signal is missed.
const DefaultPollInterval = time.Second

// Conn is a frame-oriented transport. protocol.FrameConn satisfies it for TCP and the
// WebSocket gateway provides another implementation.
type Conn interface {
	ReadFrame() (string, error)
	WriteFrame(payload string) error
	Close() error
	RemoteAddr() string
}

// State is a session's position in its lifecycle.
type State int32

const (
	Unauthenticated State = iota
	Authenticated
	Closed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "closed"
	}
}

// Deps are the shared services a session works against.
type Deps struct {
	Gate      *auth.Gate
	Registry  *mailbox.Registry
	Directory *user.Directory
	Recorder  audit.Recorder

	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration
}

// errQuit ends the session without reporting a failure.
var errQuit = errors.New("session quit")

type inbound struct {
	raw string
	err error
}

// Session is one client connection.
type Session struct {
	id        string
	conn      Conn
	transport string
	deps      Deps

	state    atomic.Int32
	username string

	// readerWg tracks the frame reader goroutine of the authenticated loop.
	readerWg sync.WaitGroup

	logger zerolog.Logger
}

// New prepares a session over conn. transport labels the connection kind ("tcp", "ws").
func New(conn Conn, transport string, deps Deps) *Session {
	if deps.Recorder == nil {
		deps.Recorder = audit.Nop{}
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = DefaultPollInterval
	}

	id := randx.SessionID()

	return &Session{
		id:        id,
		conn:      conn,
		transport: transport,
		deps:      deps,
		logger: logx.Component("Session").With().
			Str("session_id", id).
			Str("remote_addr", conn.RemoteAddr()).
			Str("transport", transport).
			Logger(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Username returns the authenticated name, or "" before authentication.
func (s *Session) Username() string { return s.username }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Run serves the connection until the client quits, the transport fails or ctx is done.
// It returns nil for a quit or a cancelled context and the transport error otherwise.
// The connection is always closed when Run returns.
func (s *Session) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()
	defer s.teardown()

	err := s.authenticate()
	if err == nil {
		err = s.serve(ctx)
	}

	if errors.Is(err, errQuit) || ctx.Err() != nil {
		return nil
	}
	return err
}

// authenticate loops until a credential pair is accepted. There is no attempt limit.
func (s *Session) authenticate() error {
	for {
		raw, err := s.conn.ReadFrame()
		if err != nil {
			return err
		}

		if protocol.IsQuit(raw) {
			return errQuit
		}

		if s.tryLogin(raw) {
			return s.conn.WriteFrame(protocol.AuthSuccess)
		}

		if err := s.conn.WriteFrame(protocol.AuthFailure); err != nil {
			return err
		}
	}
}

func (s *Session) tryLogin(raw string) bool {
	username, password, err := auth.ParseRequest(raw)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Malformed authentication frame.")
		return false
	}

	if mailbox.IsReserved(username) {
		s.logger.Warn().Str("username", username).Msg("Reserved name refused.")
		return false
	}

	if !s.deps.Gate.Validate(username, password) {
		s.deps.Recorder.Record(s.event(audit.KindAuthFailed, username))
		return false
	}

	err = s.deps.Directory.Add(user.User{
		Name:       username,
		SessionID:  s.id,
		RemoteAddr: s.conn.RemoteAddr(),
		Transport:  s.transport,
		Since:      time.Now(),
	})
	if err != nil {
		s.logger.Info().Str("username", username).Msg("Refusing second live session for user.")
		return false
	}

	s.username = username
	s.deps.Registry.Register(username)
	s.state.Store(int32(Authenticated))
	s.logger = s.logger.With().Str("username", username).Logger()

	s.logger.Info().Msg("User authenticated.")
	s.deps.Recorder.Record(s.event(audit.KindLogin, username))
	s.pushUserList()

	return true
}

// serve is the authenticated loop. A reader goroutine feeds frames into a channel so the
// loop can wake on inbound traffic, on the mailbox signal, on the fallback tick or on ctx.
func (s *Session) serve(ctx context.Context) error {
	notify := s.deps.Registry.Register(s.username)

	frames := make(chan inbound)
	done := make(chan struct{})
	defer close(done)

	s.readerWg.Add(1)
	go s.readLoop(frames, done)

	ticker := time.NewTicker(s.deps.PollInterval)
	defer ticker.Stop()

	// anything queued between registration and now
	if err := s.flush(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-frames:
			if in.err != nil {
				return in.err
			}
			if protocol.IsQuit(in.raw) {
				s.logger.Info().Msg("User quit.")
				return errQuit
			}
			s.dispatch(protocol.Parse(in.raw, s.username, protocol.FromClient))
		case <-notify:
		case <-ticker.C:
		}

		if err := s.flush(); err != nil {
			return err
		}
	}
}

func (s *Session) readLoop(frames chan<- inbound, done <-chan struct{}) {
	defer s.readerWg.Done()

	for {
		raw, err := s.conn.ReadFrame()

		select {
		case frames <- inbound{raw: raw, err: err}:
		case <-done:
			return
		}

		if err != nil {
			return
		}
	}
}

// dispatch routes a parsed client message into the registry.
func (s *Session) dispatch(msg protocol.Message) {
	switch msg.Kind {
	case protocol.Direct, protocol.FileStream:
		if msg.To == s.username {
			s.logger.Debug().Str("kind", msg.Kind.String()).Msg("Message addressed to sender dropped.")
			return
		}
		if s.deps.Registry.Enqueue(msg.To, msg) == 0 {
			s.logger.Debug().Str("to", msg.To).Str("kind", msg.Kind.String()).Msg("Recipient not connected, message dropped.")
		}
	case protocol.Broadcast:
		n := s.deps.Registry.Broadcast(msg, msg.From)
		s.logger.Debug().Int("deliveries", n).Msg("Broadcast fanned out.")
	case protocol.UserList:
		s.deps.Registry.Enqueue(s.username, s.userList())
	default:
		s.logger.Debug().Msg("Invalid command dropped.")
	}
}

// flush writes the session's queued messages in FIFO order.
func (s *Session) flush() error {
	for _, msg := range s.deps.Registry.Drain(s.username) {
		err := protocol.Send(s.conn, msg, protocol.FromServer)
		if err == nil {
			continue
		}
		if errors.Is(err, errs.Transport) {
			return err
		}
		s.logger.Warn().Err(err).Str("kind", msg.Kind.String()).Msg("Undeliverable message skipped.")
	}
	return nil
}

func (s *Session) userList() protocol.Message {
	return protocol.Message{Kind: protocol.UserList, Body: user.FormatList(s.deps.Directory.Names())}
}

// pushUserList sends the current user list to every mailbox on the server.
func (s *Session) pushUserList() {
	s.deps.Registry.Broadcast(s.userList())
}

// teardown releases everything the session holds. It runs exactly once, from Run.
func (s *Session) teardown() {
	wasAuthenticated := s.State() == Authenticated
	s.state.Store(int32(Closed))

	if wasAuthenticated {
		s.deps.Registry.Unregister(s.username)
		s.deps.Directory.Remove(s.username, s.id)
		s.pushUserList()
		s.deps.Recorder.Record(s.event(audit.KindLogout, s.username))
	}

	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Close after teardown.")
	}
	s.readerWg.Wait()

	s.logger.Info().Msg("Session closed.")
}

func (s *Session) event(kind audit.Kind, subject string) audit.Event {
	return audit.Event{
		Kind:       kind,
		Subject:    subject,
		SessionID:  s.id,
		RemoteAddr: s.conn.RemoteAddr(),
	}
}
