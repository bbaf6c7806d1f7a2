package session

import (
	"context"
	"sync"
	"time"

	"sw/ocpp/central/internal/ocpp"

	"github.com/juju/clock"
)

// Future is the outcome of an outgoing Call. It resolves exactly once: with the
// charge point's response, with an *ocpp.CallError it sent back, or with a local
// failure (timeout, delivery error, ErrSessionClosed).
type Future struct {
	uniqueId string
	action   string
	done     chan struct{}
	response ocpp.Response
	err      error
}

func newFuture(uniqueId string, action string) *Future {
	return &Future{uniqueId: uniqueId, action: action, done: make(chan struct{})}
}

func (f *Future) UniqueId() string { return f.uniqueId }
func (f *Future) Action() string   { return f.action }

// Done is closed once the future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome. It must only be called after Done is closed.
func (f *Future) Result() (ocpp.Response, error) {
	return f.response, f.err
}

// Wait blocks until the future resolves or ctx ends. Giving up on ctx does not cancel
// the call; it still completes or times out inside the session.
func (f *Future) Wait(ctx context.Context) (ocpp.Response, error) {
	select {
	case <-f.done:
		return f.response, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Future) resolve(response ocpp.Response, err error) {
	f.response = response
	f.err = err
	close(f.done)
}

// pendingCall is an entry in the pending-response table.
type pendingCall struct {
	action  string
	future  *Future
	started time.Time

	mu      sync.Mutex
	settled bool
	timer   clock.Timer
}

// arm attaches the response timer unless the call already completed.
func (p *pendingCall) arm(start func() clock.Timer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return
	}
	p.timer = start()
}

func (p *pendingCall) settle() {
	p.mu.Lock()
	p.settled = true
	timer := p.timer
	p.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}
