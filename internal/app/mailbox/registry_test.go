package mailbox

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resc/internal/app/protocol"
)

func direct(from, to, body string) protocol.Message {
	return protocol.Message{Kind: protocol.Direct, From: from, To: to, Body: body}
}

func broadcast(from, body string) protocol.Message {
	return protocol.Message{Kind: protocol.Broadcast, From: from, Body: body}
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry("test")

	first := r.Register("alice")
	r.Enqueue("alice", direct("bob", "alice", "hi"))
	second := r.Register("alice")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, r.Len("alice"))
	assert.Equal(t, 1, r.Count())
}

func TestDirectDeliveryIsExact(t *testing.T) {
	r := NewRegistry("test")
	for _, id := range []string{"alice", "bob", "carol"} {
		r.Register(id)
	}

	n := r.Enqueue("bob", direct("alice", "bob", "psst"))

	assert.Equal(t, 1, n)
	assert.Equal(t, []protocol.Message{direct("alice", "bob", "psst")}, r.Drain("bob"))
	assert.Empty(t, r.Drain("alice"))
	assert.Empty(t, r.Drain("carol"))
}

func TestDeadLetterDrop(t *testing.T) {
	r := NewRegistry("test")
	r.Register("alice")

	assert.Zero(t, r.Enqueue("ghost", direct("alice", "ghost", "anyone?")))
	assert.Zero(t, r.Enqueue("ghost", protocol.Message{Kind: protocol.FileStream, From: "alice", To: "ghost", Body: "x"}))
	assert.Zero(t, r.Len("alice"))
	assert.False(t, r.Has("ghost"))
}

func TestBroadcastSkipsSender(t *testing.T) {
	r := NewRegistry("test")
	for _, id := range []string{"alice", "bob", "carol"} {
		r.Register(id)
	}

	n := r.Enqueue("", broadcast("alice", "hello"))

	assert.Equal(t, 2, n)
	assert.Empty(t, r.Drain("alice"))
	assert.Len(t, r.Drain("bob"), 1)
	assert.Len(t, r.Drain("carol"), 1)
}

func TestBroadcastExceptList(t *testing.T) {
	r := NewRegistry("test")
	for _, id := range []string{"alice", "bob", "#tracker"} {
		r.Register(id)
	}

	n := r.Broadcast(broadcast("remote", "hi"), "remote", "#tracker")

	assert.Equal(t, 2, n)
	assert.Zero(t, r.Len("#tracker"))
}

func TestDrainPreservesOrder(t *testing.T) {
	r := NewRegistry("test")
	r.Register("bob")

	for i := range 5 {
		r.Enqueue("bob", direct("alice", "bob", fmt.Sprint(i)))
	}

	got := r.Drain("bob")
	require.Len(t, got, 5)
	for i, m := range got {
		assert.Equal(t, fmt.Sprint(i), m.Body)
	}
	assert.Empty(t, r.Drain("bob"))
}

func TestNotifyOnEnqueue(t *testing.T) {
	r := NewRegistry("test")
	notify := r.Register("bob")

	r.Enqueue("bob", direct("alice", "bob", "1"))
	r.Enqueue("bob", direct("alice", "bob", "2"))

	select {
	case <-notify:
	case <-time.After(time.Second):
		t.Fatal("no wakeup after enqueue")
	}

	// Signals coalesce; both messages are still waiting.
	assert.Len(t, r.Drain("bob"), 2)
}

func TestUnregisterRemovesMailbox(t *testing.T) {
	r := NewRegistry("test")
	r.Register("alice")
	r.Enqueue("alice", direct("bob", "alice", "queued"))

	r.Unregister("alice")

	assert.False(t, r.Has("alice"))
	assert.Nil(t, r.Drain("alice"))
	assert.Zero(t, r.Enqueue("alice", direct("bob", "alice", "late")))
}

func TestConcurrentFanOut(t *testing.T) {
	const n = 50
	r := NewRegistry("test")
	for i := range n {
		r.Register(fmt.Sprintf("user%d", i))
	}

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Enqueue("", broadcast(fmt.Sprintf("user%d", i), "hello"))
		}(i)
	}
	wg.Wait()

	for i := range n {
		id := fmt.Sprintf("user%d", i)
		msgs := r.Drain(id)
		require.Len(t, msgs, n-1, id)
		for _, m := range msgs {
			assert.NotEqual(t, id, m.From)
		}
	}
}

func TestIsReserved(t *testing.T) {
	assert.True(t, IsReserved("#tracker"))
	assert.False(t, IsReserved("alice"))
	assert.False(t, IsReserved(""))
}
