package chat

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"resc/internal/app/mailbox"
	"resc/internal/app/protocol"
	"resc/internal/pkg/errs"
	"resc/internal/pkg/logx"
)

const (
	// TrackerMailbox is the registry id that collects local broadcasts bound for the tracker.
	TrackerMailbox = mailbox.ReservedPrefix + "tracker"

	// uplinkRetry is the pause between tracker reconnection attempts.
	uplinkRetry = 5 * time.Second

	dialTimeout = 10 * time.Second
)

// Uplink keeps a chat server registered with the tracker and relays broadcasts both ways.
type Uplink struct {
	registry     *mailbox.Registry
	trackerAddr  string
	advertise    string
	pollInterval time.Duration
	retry        time.Duration

	logger zerolog.Logger
}

// NewUplink returns an uplink that registers as advertise with the tracker at trackerAddr.
// An empty advertise lets the tracker use the connection's source address.
func NewUplink(registry *mailbox.Registry, trackerAddr, advertise string, pollInterval time.Duration) *Uplink {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Uplink{
		registry:     registry,
		trackerAddr:  trackerAddr,
		advertise:    advertise,
		pollInterval: pollInterval,
		retry:        uplinkRetry,
		logger: logx.Component("Uplink").With().
			Str("tracker", trackerAddr).
			Str("advertise", advertise).
			Logger(),
	}
}

// Run keeps the uplink connected until ctx is cancelled. Failures are logged and retried;
// local users keep chatting while the tracker is unreachable.
func (u *Uplink) Run(ctx context.Context) error {
	for {
		err := u.connect(ctx)
		if ctx.Err() != nil {
			return nil
		}
		u.logger.Warn().Err(err).Dur("retry_in", u.retry).Msg("Tracker uplink lost.")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(u.retry):
		}
	}
}

type relayed struct {
	msg protocol.Message
	err error
}

// connect runs one uplink connection until it fails or ctx is done.
func (u *Uplink) connect(ctx context.Context) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", u.trackerAddr)
	if err != nil {
		return errs.Wrap(errs.ErrTransport, err)
	}

	conn := protocol.NewFrameConn(raw)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	hello := protocol.FormatHello(protocol.Hello{Role: protocol.HelloServer, Addr: u.advertise})
	if err := conn.WriteFrame(hello); err != nil {
		return err
	}

	notify := u.registry.Register(TrackerMailbox)
	defer u.registry.Unregister(TrackerMailbox)

	u.logger.Info().Msg("Registered with tracker.")

	inbound := make(chan relayed)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			msg, err := protocol.Decode(conn, u.trackerAddr, protocol.FromServer)
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

	ticker := time.NewTicker(u.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-inbound:
			if in.err != nil {
				return in.err
			}
			u.inject(in.msg)
		case <-notify:
		case <-ticker.C:
		}

		if err := u.forward(conn); err != nil {
			return err
		}
	}
}

// inject delivers a broadcast relayed by the tracker to every local user. The author lives on
// another server, so a local user sharing that name still receives it. The tracker mailbox is
// skipped so the message never goes back up.
func (u *Uplink) inject(msg protocol.Message) {
	if msg.Kind != protocol.Broadcast {
		u.logger.Debug().Str("kind", msg.Kind.String()).Msg("Ignoring non-broadcast from tracker.")
		return
	}

	n := u.registry.Broadcast(msg, TrackerMailbox)
	u.logger.Debug().Str("from", msg.From).Int("deliveries", n).Msg("Relayed broadcast injected.")
}

// forward sends queued local broadcasts to the tracker. Everything else that lands in the
// tracker mailbox, such as user list pushes, stays local.
func (u *Uplink) forward(conn *protocol.FrameConn) error {
	for _, msg := range u.registry.Drain(TrackerMailbox) {
		if msg.Kind != protocol.Broadcast {
			continue
		}

		err := protocol.Send(conn, msg, protocol.FromServer)
		if err == nil {
			continue
		}
		if errors.Is(err, errs.Transport) {
			return err
		}
		u.logger.Warn().Err(err).Msg("Broadcast not relayable, skipped.")
	}
	return nil
}
