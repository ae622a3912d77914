package projector

import (
	"context"
	"sync/atomic"

	"github.com/brewbean/livecup/internal/eventbus"
	"github.com/brewbean/livecup/internal/order"
)

// SnapshotTopic carries the order view after every replacement.
var SnapshotTopic = eventbus.NewTopicDef[order.View](eventbus.TopicOrderSnapshot)

// Store is a single-writer observable cell holding the latest order snapshot.
// Only the projector in this package writes to it; reads never block and
// always observe a whole snapshot.
type Store struct {
	current atomic.Pointer[order.Snapshot]
	bus     *eventbus.Bus
}

// NewStore creates a store holding an empty snapshot. Replacements are
// announced on bus; a nil bus disables notifications.
func NewStore(bus *eventbus.Bus) *Store {
	s := &Store{bus: bus}
	s.current.Store(&order.Snapshot{})
	return s
}

// Snapshot returns a copy of the current order fields.
func (s *Store) Snapshot() order.Snapshot {
	return s.current.Load().Clone()
}

// View returns the current snapshot with freshly derived display values.
func (s *Store) View() order.View {
	return s.current.Load().View()
}

// Updates subscribes to replacement notifications.
func (s *Store) Updates(opts ...eventbus.SubscriptionOption) *eventbus.TypedSubscription[order.View] {
	return eventbus.SubscribeTo(s.bus, SnapshotTopic, opts...)
}

// replace swaps in snap wholesale and notifies observers.
func (s *Store) replace(ctx context.Context, snap order.Snapshot) {
	next := snap.Clone()
	s.current.Store(&next)
	eventbus.Publish(ctx, s.bus, SnapshotTopic, eventbus.SourceProjector, next.View())
}

// reset returns the store to the empty snapshot and announces it.
func (s *Store) reset(ctx context.Context) {
	s.replace(ctx, order.Snapshot{})
}
