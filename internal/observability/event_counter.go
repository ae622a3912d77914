package observability

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/brewbean/livecup/internal/eventbus"
)

// EventCounter tallies bus traffic per topic and per producing component.
// It is cheap enough to attach to every bus of a session and is summarised
// in the log when the session ends.
type EventCounter struct {
	mu       sync.Mutex
	bySource map[eventbus.Topic]map[eventbus.Source]uint64
}

// NewEventCounter creates a counter to pass to eventbus.WithObserver.
func NewEventCounter() *EventCounter {
	return &EventCounter{bySource: make(map[eventbus.Topic]map[eventbus.Source]uint64)}
}

// OnPublish implements eventbus.Observer.
func (c *EventCounter) OnPublish(env eventbus.Envelope) {
	if env.Topic == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	sources := c.bySource[env.Topic]
	if sources == nil {
		sources = make(map[eventbus.Source]uint64)
		c.bySource[env.Topic] = sources
	}
	sources[env.Source]++
}

// Snapshot returns the per-topic totals.
func (c *EventCounter) Snapshot() map[eventbus.Topic]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[eventbus.Topic]uint64, len(c.bySource))
	for topic, sources := range c.bySource {
		for _, n := range sources {
			out[topic] += n
		}
	}
	return out
}

// Summary renders the totals as "topic=n (source=n ...)" lines sorted by topic.
func (c *EventCounter) Summary() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]string, 0, len(c.bySource))
	for topic, sources := range c.bySource {
		var total uint64
		parts := make([]string, 0, len(sources))
		for source, n := range sources {
			total += n
			parts = append(parts, fmt.Sprintf("%s=%d", source, n))
		}
		slices.Sort(parts)
		lines = append(lines, fmt.Sprintf("%s=%d (%s)", topic, total, strings.Join(parts, " ")))
	}
	slices.Sort(lines)
	return lines
}
