package authclient

import (
	"context"
	"sync"
)

// refreshCall is one settled or in-flight refresh. done is closed once token
// and err are final.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// RefreshGate enforces the single-flight contract: at most one refresh
// request is on the wire at any time, and every caller that arrives while it
// is outstanding observes the same outcome. It is an owned object rather than
// package state so tests build isolated instances and the BFF shares one gate
// across its per-request clients.
type RefreshGate struct {
	mu      sync.Mutex
	pending *refreshCall
}

// NewRefreshGate returns an idle gate.
func NewRefreshGate() *RefreshGate {
	return &RefreshGate{}
}

// do runs fn unless a call is already in flight, in which case it waits for
// that call and returns its result. The in-flight slot is cleared on every
// settlement path before waiters are released.
func (g *RefreshGate) do(ctx context.Context, fn func() (string, error)) (string, error) {
	g.mu.Lock()
	if call := g.pending; call != nil {
		g.mu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	g.pending = call
	g.mu.Unlock()

	call.token, call.err = fn()

	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()
	close(call.done)

	return call.token, call.err
}
