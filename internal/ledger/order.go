package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrIncompleteOrder is returned when an order is saved before every
// required field has been collected.
var ErrIncompleteOrder = errors.New("ledger: order is incomplete")

// Order is a completed barista order.
type Order struct {
	ID        string    `json:"id" yaml:"id"`
	DrinkType string    `json:"drinkType" yaml:"drinkType"`
	Size      string    `json:"size" yaml:"size"`
	Milk      string    `json:"milk" yaml:"milk"`
	Extras    []string  `json:"extras" yaml:"extras"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"timestamp" yaml:"timestamp"`
}

// Missing lists the required fields that are still empty, in the order a
// barista asks for them.
func (o Order) Missing() []string {
	var missing []string
	if strings.TrimSpace(o.DrinkType) == "" {
		missing = append(missing, "drink type")
	}
	if strings.TrimSpace(o.Size) == "" {
		missing = append(missing, "size")
	}
	if strings.TrimSpace(o.Milk) == "" {
		missing = append(missing, "milk type")
	}
	if strings.TrimSpace(o.Name) == "" {
		missing = append(missing, "name")
	}
	return missing
}

// Validate reports ErrIncompleteOrder naming the missing fields.
func (o Order) Validate() error {
	if missing := o.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteOrder, strings.Join(missing, ", "))
	}
	return nil
}
