// Package barrier provides a cyclic rendezvous point for a fixed number of
// parties.
package barrier

import (
	"context"
	"sync"
)

// Barrier releases waiting parties once limit registrations are pending.
// A nil *Barrier is valid and never blocks.
type Barrier struct {
	mu      sync.Mutex
	limit   int
	waiting []chan struct{}
}

// New returns a barrier for limit parties. A limit below one releases every
// registration immediately.
func New(limit int) *Barrier {
	return &Barrier{limit: limit}
}

// Limit returns the party count.
func (b *Barrier) Limit() int {
	if b == nil {
		return 0
	}
	return b.limit
}

// Register records one arrival. The returned channel is closed when the
// barrier trips. Parties registered last are released first.
func (b *Barrier) Register() <-chan struct{} {
	ch := make(chan struct{})
	if b == nil {
		close(ch)
		return ch
	}

	b.mu.Lock()
	b.waiting = append(b.waiting, ch)
	var release []chan struct{}
	if len(b.waiting) >= b.limit {
		release = b.waiting
		b.waiting = nil
	}
	b.mu.Unlock()

	for i := len(release) - 1; i >= 0; i-- {
		close(release[i])
	}
	return ch
}

// Wait registers and blocks until the barrier trips or ctx is done. The
// registration still counts when ctx ends first.
func (b *Barrier) Wait(ctx context.Context) error {
	ch := b.Register()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports how many parties are waiting.
func (b *Barrier) Pending() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.waiting)
}
