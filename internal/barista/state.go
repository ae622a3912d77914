// Package barista holds the ordering agent's side of the room: the order
// being collected and the publisher that mirrors it to viewers.
package barista

import (
	"strings"
	"sync"

	"github.com/brewbean/livecup/internal/ledger"
)

// OrderState is the order currently being collected. It is safe for
// concurrent use.
type OrderState struct {
	mu        sync.Mutex
	drinkType string
	size      string
	milk      string
	extras    []string
	name      string
}

// NewOrderState returns an empty order.
func NewOrderState() *OrderState {
	return &OrderState{}
}

func (s *OrderState) SetDrinkType(v string) { s.set(&s.drinkType, v) }
func (s *OrderState) SetSize(v string)      { s.set(&s.size, v) }
func (s *OrderState) SetMilk(v string)      { s.set(&s.milk, v) }
func (s *OrderState) SetName(v string)      { s.set(&s.name, v) }

// SetExtras replaces the extras list. Blank entries are dropped.
func (s *OrderState) SetExtras(extras []string) {
	cleaned := make([]string, 0, len(extras))
	for _, extra := range extras {
		if trimmed := strings.TrimSpace(extra); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	s.mu.Lock()
	s.extras = cleaned
	s.mu.Unlock()
}

func (s *OrderState) set(field *string, v string) {
	s.mu.Lock()
	*field = strings.TrimSpace(v)
	s.mu.Unlock()
}

// Order returns a copy of the collected fields.
func (s *OrderState) Order() ledger.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger.Order{
		DrinkType: s.drinkType,
		Size:      s.size,
		Milk:      s.milk,
		Extras:    append([]string{}, s.extras...),
		Name:      s.name,
	}
}

// Missing lists required fields still to collect.
func (s *OrderState) Missing() []string {
	return s.Order().Missing()
}

// Complete reports whether every required field is set. Extras are optional.
func (s *OrderState) Complete() bool {
	return len(s.Missing()) == 0
}

// Reset clears the order for the next customer.
func (s *OrderState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drinkType, s.size, s.milk, s.name = "", "", "", ""
	s.extras = nil
}
