package tracker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"resc/internal/app/audit"
	"resc/internal/app/mailbox"
	"resc/internal/app/protocol"
	"resc/internal/pkg/errs"
	"resc/internal/pkg/logx"
)

// Options configures a Tracker.
type Options struct {
	Recorder     audit.Recorder
	PollInterval time.Duration
}

// Stats is a point-in-time view of the tracker.
type Stats struct {
	Servers     int `json:"servers"`
	Assignments int `json:"assignments"`
	Relayed     int `json:"relayed"`
}

// Conn is the frame transport the tracker speaks over.
type Conn interface {
	protocol.FrameReader
	protocol.FrameWriter
	Close() error
	RemoteAddr() string
}

// Tracker owns the server pool and one mailbox per registered server.
type Tracker struct {
	pool     *Pool
	registry *mailbox.Registry
	recorder audit.Recorder

	pollInterval time.Duration

	// membersMu keeps pool membership and mailboxes changing together.
	membersMu sync.Mutex

	// statsMu protects the counters below.
	statsMu     sync.Mutex
	assignments int
	relayed     int

	// wg tracks connection handlers.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// New returns a tracker with an empty pool.
func New(opts Options) *Tracker {
	if opts.Recorder == nil {
		opts.Recorder = audit.Nop{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	return &Tracker{
		pool:         NewPool(),
		registry:     mailbox.NewRegistry("tracker"),
		recorder:     opts.Recorder,
		pollInterval: opts.PollInterval,
		logger:       logx.Component("Tracker"),
	}
}

// Assign returns the next server host for a new client, or protocol.NoServer.
func (t *Tracker) Assign() string {
	host, ok := t.pool.Next()
	if !ok {
		t.logger.Warn().Msg("Client asked for a server but the pool is empty.")
		return protocol.NoServer
	}

	t.statsMu.Lock()
	t.assignments++
	t.statsMu.Unlock()

	t.logger.Debug().Str("host", host).Msg("Client assigned.")
	return host
}

// Register adds host to the pool and gives it a mailbox. A host that is already
// registered is refused.
func (t *Tracker) Register(host string) (<-chan struct{}, error) {
	t.membersMu.Lock()
	defer t.membersMu.Unlock()

	if !t.pool.Add(host) {
		return nil, errs.Wrap(errs.ErrProtocol, fmt.Errorf("server %s already registered", host))
	}

	notify := t.registry.Register(host)
	t.recorder.Record(audit.Event{Kind: audit.KindServerRegistered, Subject: host})
	t.logger.Info().Str("host", host).Int("servers", t.pool.Len()).Msg("Server registered.")
	return notify, nil
}

// Unregister removes host from the pool and drops its mailbox.
func (t *Tracker) Unregister(host string) {
	t.membersMu.Lock()
	defer t.membersMu.Unlock()

	if !t.pool.Remove(host) {
		return
	}

	t.registry.Unregister(host)
	t.recorder.Record(audit.Event{Kind: audit.KindServerRemoved, Subject: host})
	t.logger.Info().Str("host", host).Int("servers", t.pool.Len()).Msg("Server removed.")
}

// RelayBroadcast queues msg for every registered server except from.
func (t *Tracker) RelayBroadcast(from string, msg protocol.Message) int {
	n := t.registry.Broadcast(msg, from)

	t.statsMu.Lock()
	t.relayed += n
	t.statsMu.Unlock()

	return n
}

// Servers returns the registered hosts in rotation order.
func (t *Tracker) Servers() []string {
	return t.pool.List()
}

// Stats reports current counters.
func (t *Tracker) Stats() Stats {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()

	return Stats{
		Servers:     t.pool.Len(),
		Assignments: t.assignments,
		Relayed:     t.relayed,
	}
}

// Serve accepts connections on ln until ctx is cancelled and waits for every handler to end.
func (t *Tracker) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	t.logger.Info().Str("addr", ln.Addr().String()).Msg("Tracker listening.")

	for {
		conn, err := ln.Accept()
		if err != nil {
			t.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				t.logger.Info().Msg("Tracker stopped.")
				return nil
			}
			return err
		}

		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.HandleConn(ctx, protocol.NewFrameConn(conn))
		}()
	}
}

// HandleConn reads the greeting and either answers a client or serves a chat server.
func (t *Tracker) HandleConn(ctx context.Context, conn Conn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	logger := t.logger.With().Str("remote_addr", conn.RemoteAddr()).Logger()

	raw, err := conn.ReadFrame()
	if err != nil {
		logger.Debug().Err(err).Msg("Connection closed before greeting.")
		return
	}

	hello, err := protocol.ParseHello(raw)
	if err != nil {
		logger.Warn().Err(err).Msg("Unexpected greeting.")
		return
	}

	switch hello.Role {
	case protocol.HelloClient:
		if err := conn.WriteFrame(t.Assign()); err != nil {
			logger.Debug().Err(err).Msg("Failed to answer client.")
		}
	case protocol.HelloServer:
		host := hello.Addr
		if host == "" {
			host = peerHost(conn.RemoteAddr())
		}
		if err := t.serveServer(ctx, conn, host); err != nil && ctx.Err() == nil {
			logger.Info().Err(err).Str("host", host).Msg("Server connection ended.")
		}
	}
}

type relayed struct {
	msg protocol.Message
	err error
}

// serveServer relays broadcasts from one chat server and drains its mailbox back to it.
func (t *Tracker) serveServer(ctx context.Context, conn Conn, host string) error {
	notify, err := t.Register(host)
	if err != nil {
		return err
	}
	defer t.Unregister(host)

	inbound := make(chan relayed)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			msg, err := protocol.Decode(conn, host, protocol.FromServer)
			select {
			case inbound <- relayed{msg: msg, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	defer func() {
		close(done)
		_ = conn.Close()
		wg.Wait()
	}()

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-inbound:
			if in.err != nil {
				return in.err
			}
			if in.msg.Kind == protocol.Broadcast {
				t.RelayBroadcast(host, in.msg)
			}
		case <-notify:
		case <-ticker.C:
		}

		for _, msg := range t.registry.Drain(host) {
			err := protocol.Send(conn, msg, protocol.FromServer)
			if errors.Is(err, errs.Transport) {
				return err
			}
		}
	}
}

func peerHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
