/*
Package chat contains the chat server: the accept loop, the shared services every session
works against, and the uplink that joins this server to the tracker's broadcast relay.

This file defines the Server struct, which owns the auth gate, the mailbox registry and the
presence directory, and supervises one session per connection.
*/
package chat

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"resc/internal/app/audit"
	"resc/internal/app/auth"
	"resc/internal/app/mailbox"
	"resc/internal/app/protocol"
	"resc/internal/app/session"
	"resc/internal/app/user"
	"resc/internal/pkg/logx"
)

// Options configures a Server.
type Options struct {
	// Name tags the server's logs and audit events.
	Name string

	// Recorder receives lifecycle events. Nil disables auditing.
	Recorder audit.Recorder

	// PollInterval is the sessions' fallback drain tick.
	PollInterval time.Duration
}

// Stats is a point-in-time view of the server.
type Stats struct {
	UsersOnline      int `json:"usersOnline"`
	CredentialsKnown int `json:"credentialsKnown"`
	Mailboxes        int `json:"mailboxes"`
	ActiveSessions   int `json:"activeSessions"`
}

// Server coordinates every session connected to this chat server.
type Server struct {
	name string

	gate      *auth.Gate
	registry  *mailbox.Registry
	directory *user.Directory
	recorder  audit.Recorder

	pollInterval time.Duration

	// mu guards closed. Sessions are only added to wg while closed is false, so no Add
	// can race with the final Wait.
	mu     sync.Mutex
	closed bool

	// wg tracks every running session so shutdown can wait for all of them.
	wg sync.WaitGroup

	// active counts sessions currently inside HandleConn.
	active atomic.Int64

	// structured logger with Server context.
	logger zerolog.Logger
}

// NewServer constructs a Server with empty gate, registry and directory.
func NewServer(opts Options) *Server {
	if opts.Recorder == nil {
		opts.Recorder = audit.Nop{}
	}
	if opts.Name == "" {
		opts.Name = "chat"
	}

	return &Server{
		name:         opts.Name,
		gate:         auth.NewGate(),
		registry:     mailbox.NewRegistry(opts.Name),
		directory:    user.NewDirectory(),
		recorder:     opts.Recorder,
		pollInterval: opts.PollInterval,
		logger:       logx.Component("ChatServer").With().Str("server", opts.Name).Logger(),
	}
}

// Registry returns the server's mailbox registry.
func (s *Server) Registry() *mailbox.Registry { return s.registry }

// Directory returns the server's presence directory.
func (s *Server) Directory() *user.Directory { return s.directory }

// Serve accepts connections on ln until ctx is cancelled, running one session per
// connection. It returns once the listener is closed and every session has ended.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Chat server listening.")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Info().Msg("Listener closed. Waiting for sessions to end...")
				s.Wait()
				s.logger.Info().Msg("All sessions ended.")
				return nil
			}
			s.logger.Error().Err(err).Msg("Accept failed.")
			s.Wait()
			return err
		}

		if !s.track() {
			_ = conn.Close()
			continue
		}
		go func() {
			defer s.wg.Done()
			s.runSession(ctx, protocol.NewFrameConn(conn), "tcp")
		}()
	}
}

// HandleConn runs a session over conn and blocks until it ends. Both the TCP accept loop
// and the WebSocket gateway hand connections in here. Once the server has shut down, or
// ctx is already done, conn is closed straight away.
func (s *Server) HandleConn(ctx context.Context, conn session.Conn, transport string) {
	if !s.track() {
		_ = conn.Close()
		return
	}
	defer s.wg.Done()

	s.runSession(ctx, conn, transport)
}

// track registers one more session with wg unless the server is shutting down.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) runSession(ctx context.Context, conn session.Conn, transport string) {
	if ctx.Err() != nil {
		_ = conn.Close()
		return
	}

	s.active.Add(1)
	defer s.active.Add(-1)

	sess := session.New(conn, transport, session.Deps{
		Gate:         s.gate,
		Registry:     s.registry,
		Directory:    s.directory,
		Recorder:     s.recorder,
		PollInterval: s.pollInterval,
	})

	if err := sess.Run(ctx); err != nil {
		s.logger.Debug().Err(err).Str("session_id", sess.ID()).Msg("Session ended with transport error.")
	}
}

// Wait stops admitting sessions and blocks until every running one has ended.
func (s *Server) Wait() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
}

// Stats reports current counters.
func (s *Server) Stats() Stats {
	return Stats{
		UsersOnline:      s.directory.Count(),
		CredentialsKnown: s.gate.Known(),
		Mailboxes:        s.registry.Count(),
		ActiveSessions:   int(s.active.Load()),
	}
}
