/*
Package tracker implements the tracker: it keeps the pool of live chat servers, hands each
new client the next server in round-robin order and relays broadcasts between servers.
*/
package tracker

import (
	"slices"
	"sync"
)

// Pool is a ring of server hosts with a rotating cursor. Each host appears at most once.
type Pool struct {
	mu     sync.Mutex
	hosts  []string
	cursor int
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// Add appends host to the ring. It reports false when host is already present.
func (p *Pool) Add(host string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if slices.Contains(p.hosts, host) {
		return false
	}

	p.hosts = append(p.hosts, host)
	return true
}

// Remove deletes host while keeping the rotation order of the remaining hosts.
func (p *Pool) Remove(host string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := slices.Index(p.hosts, host)
	if i < 0 {
		return false
	}

	p.hosts = slices.Delete(p.hosts, i, i+1)
	if i < p.cursor {
		p.cursor--
	}
	if p.cursor >= len(p.hosts) {
		p.cursor = 0
	}
	return true
}

// Next returns the host under the cursor and advances it. ok is false when the pool is empty.
func (p *Pool) Next() (host string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.hosts) == 0 {
		return "", false
	}

	host = p.hosts[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.hosts)
	return host, true
}

// List returns the hosts in ring order.
func (p *Pool) List() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.hosts))
	copy(out, p.hosts)
	return out
}

// Len returns the number of hosts.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.hosts)
}
