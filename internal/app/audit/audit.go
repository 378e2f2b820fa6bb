/*
Package audit records session and server lifecycle events.

Events describe who connected, who left and which chat servers joined or left the tracker
pool. They never carry credentials or message bodies. Recording is fire-and-forget: the
relay never waits on the audit sink, and a full buffer drops the event.
*/
package audit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"resc/internal/app/db"
	"resc/internal/pkg/logx"
	"resc/internal/pkg/randx"
)

// Kind names a lifecycle event.
type Kind string

const (
	KindLogin            Kind = "login"
	KindLogout           Kind = "logout"
	KindAuthFailed       Kind = "auth_failed"
	KindServerRegistered Kind = "server_registered"
	KindServerRemoved    Kind = "server_removed"
)

// Event is one audit record.
type Event struct {
	ID         string
	Kind       Kind
	Node       string
	Subject    string
	SessionID  string
	RemoteAddr string
	At         time.Time
}

// Recorder accepts events without blocking the caller.
type Recorder interface {
	Record(ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(Event) {}

// Store persists a single event.
type Store interface {
	Insert(ctx context.Context, ev Event) error
}

const (
	defaultBuffer = 256
	insertTimeout = 5 * time.Second
)

// Sink buffers events and writes them to a Store from one worker.
type Sink struct {
	store  Store
	node   string
	events chan Event

	dropped atomic.Int64

	logger zerolog.Logger
}

// NewSink returns a sink that tags events with node. buffer <= 0 selects the default size.
func NewSink(store Store, node string, buffer int) *Sink {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	return &Sink{
		store:  store,
		node:   node,
		events: make(chan Event, buffer),
		logger: logx.Component("AuditSink").With().Str("node", node).Logger(),
	}
}

// Record enqueues ev, filling in its ID, node and timestamp when they are empty.
func (s *Sink) Record(ev Event) {
	if ev.ID == "" {
		ev.ID = randx.EventID()
	}
	if ev.Node == "" {
		ev.Node = s.node
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
		s.logger.Warn().Str("kind", string(ev.Kind)).Msg("Audit buffer full, event dropped.")
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Run writes events until ctx is cancelled, then flushes whatever is still buffered.
func (s *Sink) Run(ctx context.Context) error {
	s.logger.Info().Msg("Audit sink started.")

	for {
		select {
		case ev := <-s.events:
			s.write(ctx, ev)
		case <-ctx.Done():
			s.flush()
			s.logger.Info().Msg("Audit sink stopped.")
			return nil
		}
	}
}

func (s *Sink) flush() {
	for {
		select {
		case ev := <-s.events:
			s.write(context.Background(), ev)
		default:
			return
		}
	}
}

func (s *Sink) write(ctx context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), insertTimeout)
	defer cancel()

	err := s.store.Insert(ctx, ev)
	switch {
	case err == nil:
	case db.IsUniqueViolation(err):
		s.logger.Debug().Str("event_id", ev.ID).Msg("Event already recorded.")
	default:
		s.logger.Error().Err(err).Str("kind", string(ev.Kind)).Msg("Failed to record audit event.")
	}
}
