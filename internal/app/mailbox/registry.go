/*
Package mailbox implements the Mailbox Registry: a map from identity to an ordered queue of
outbound messages, shared by every session of a chat server (keyed by username) and by the
tracker (keyed by server hostname).

All operations are serialised through one mutex. A broadcast fans out under a single lock
acquisition, so it is atomic with respect to concurrent Register and Unregister calls.
Each mailbox carries a notify channel that is signalled on enqueue, letting the owner wake
up as soon as there is something to drain.
*/
package mailbox

import (
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"resc/internal/app/protocol"
	"resc/internal/pkg/logx"
)

// ReservedPrefix marks mailbox ids owned by infrastructure, such as a chat server's
// tracker uplink, rather than by a user.
const ReservedPrefix = "#"

// IsReserved reports whether id is an infrastructure mailbox id.
func IsReserved(id string) bool {
	return strings.HasPrefix(id, ReservedPrefix)
}

// box is one FIFO queue plus its wakeup signal.
type box struct {
	queue  []protocol.Message
	notify chan struct{}
}

func (b *box) push(msg protocol.Message) {
	b.queue = append(b.queue, msg)

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Registry maps identities to mailboxes.
type Registry struct {
	// mu protects boxes.
	mu sync.Mutex

	// boxes holds one mailbox per registered identity.
	boxes map[string]*box

	logger zerolog.Logger
}

// NewRegistry returns an empty registry. name tags the registry's log lines.
func NewRegistry(name string) *Registry {
	return &Registry{
		boxes:  make(map[string]*box),
		logger: logx.Component("Mailbox").With().Str("registry", name).Logger(),
	}
}

// Register creates an empty mailbox for id. It is a no-op when id is already registered.
// The returned channel receives a value whenever a message is enqueued for id.
func (r *Registry) Register(id string) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.boxes[id]
	if !ok {
		b = &box{notify: make(chan struct{}, 1)}
		r.boxes[id] = b
		r.logger.Debug().Str("id", id).Int("mailboxes", len(r.boxes)).Msg("Mailbox registered.")
	}

	return b.notify
}

// Unregister deletes id's mailbox and any messages still queued in it.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.boxes[id]; ok {
		delete(r.boxes, id)
		r.logger.Debug().
			Str("id", id).
			Int("discarded", len(b.queue)).
			Int("mailboxes", len(r.boxes)).
			Msg("Mailbox unregistered.")
	}
}

// Enqueue appends msg to id's mailbox and returns the number of mailboxes that received it.
// A Broadcast ignores id and fans out to every registered identity except msg.From.
// Any other message addressed to an unknown id is dropped and reports zero deliveries.
func (r *Registry) Enqueue(id string, msg protocol.Message) int {
	if msg.Kind == protocol.Broadcast {
		return r.Broadcast(msg, msg.From)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.boxes[id]
	if !ok {
		r.logger.Debug().
			Str("to", id).
			Str("from", msg.From).
			Str("kind", msg.Kind.String()).
			Msg("Routing miss, message dropped.")
		return 0
	}

	b.push(msg)
	return 1
}

// Broadcast enqueues a copy of msg into every registered mailbox whose id is not in except.
func (r *Registry) Broadcast(msg protocol.Message, except ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for id, b := range r.boxes {
		if slices.Contains(except, id) {
			continue
		}
		b.push(msg)
		delivered++
	}

	return delivered
}

// Drain atomically empties id's mailbox and returns its messages in enqueue order.
func (r *Registry) Drain(id string) []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.boxes[id]
	if !ok || len(b.queue) == 0 {
		return nil
	}

	out := b.queue
	b.queue = nil
	return out
}

// Has reports whether id currently owns a mailbox.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.boxes[id]
	return ok
}

// Len returns the number of messages waiting for id.
func (r *Registry) Len(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.boxes[id]; ok {
		return len(b.queue)
	}
	return 0
}

// Count returns the number of registered mailboxes.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.boxes)
}

// IDs returns a snapshot of the registered identities.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.boxes))
	for id := range r.boxes {
		ids = append(ids, id)
	}
	return ids
}
