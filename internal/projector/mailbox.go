package projector

import (
	"context"
	"sync"

	"github.com/brewbean/livecup/internal/order"
)

// mailbox sits between the room listener and the store writer. It holds at
// most one pending order update, so a burst of unrelated packets can never
// push the newest update out of a bounded queue. Outcomes are tallied
// rather than queued so a slow Recorder cannot stall the listener.
type mailbox struct {
	wake chan struct{}

	mu         sync.Mutex
	pending    *order.Snapshot
	superseded int
	ignored    int
	dropped    int
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

// put parks snap as the pending update, replacing any older one.
func (m *mailbox) put(snap order.Snapshot) {
	m.mu.Lock()
	if m.pending != nil {
		m.superseded++
	}
	m.pending = &snap
	m.mu.Unlock()
	m.signal()
}

// note tallies a packet that produced no update.
func (m *mailbox) note(outcome Outcome) {
	m.mu.Lock()
	switch outcome {
	case OutcomeDropped:
		m.dropped++
	default:
		m.ignored++
	}
	m.mu.Unlock()
	m.signal()
}

func (m *mailbox) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

type delivery struct {
	snapshot   *order.Snapshot
	superseded int
	ignored    int
	dropped    int
}

func (m *mailbox) take() delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := delivery{
		snapshot:   m.pending,
		superseded: m.superseded,
		ignored:    m.ignored,
		dropped:    m.dropped,
	}
	m.pending = nil
	m.superseded, m.ignored, m.dropped = 0, 0, 0
	return d
}

// drain applies deliveries until ctx is cancelled. The returned channel is
// closed once the last apply has returned; anything still pending then is
// discarded.
func (m *mailbox) drain(ctx context.Context, apply func(delivery)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.wake:
				if ctx.Err() != nil {
					return
				}
				apply(m.take())
			}
		}
	}()
	return done
}
