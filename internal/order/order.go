// Package order models the live drink order shown by the order-status widget
// and the pure classifiers that turn its free-form fields into display values.
package order

import "strings"

// SizeClass is the discrete cup size shown to the customer.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// Letter returns the upper-case initial printed on the cup.
func (c SizeClass) Letter() string {
	if c == "" {
		c = SizeMedium
	}
	return strings.ToUpper(string(c)[:1])
}

// Snapshot is the most recent order state received from the barista agent.
// Empty strings mean the sender did not provide the field.
type Snapshot struct {
	CustomerName string   `json:"name,omitempty" yaml:"name,omitempty"`
	DrinkType    string   `json:"drinkType,omitempty" yaml:"drinkType,omitempty"`
	RawSize      string   `json:"size,omitempty" yaml:"size,omitempty"`
	Milk         string   `json:"milk,omitempty" yaml:"milk,omitempty"`
	Extras       []string `json:"extras,omitempty" yaml:"extras,omitempty"`
}

// Clone returns a deep copy so callers never share the extras slice.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Extras != nil {
		out.Extras = append([]string(nil), s.Extras...)
	}
	return out
}

// IsEmpty reports whether no field has been received yet.
func (s Snapshot) IsEmpty() bool {
	return s.CustomerName == "" && s.DrinkType == "" && s.RawSize == "" && s.Milk == "" && len(s.Extras) == 0
}

// SizeClass classifies the raw size descriptor.
func (s Snapshot) SizeClass() SizeClass { return ClassifySize(s.RawSize) }

// HasWhippedTopping reports whether any extra asks for whipped cream.
func (s Snapshot) HasWhippedTopping() bool { return HasWhippedTopping(s.Extras) }

// HasMilkAdded reports whether the drink gets milk.
func (s Snapshot) HasMilkAdded() bool { return HasMilkAdded(s.Milk) }

// View is a snapshot together with its derived display values.
// It is computed on demand and never stored.
type View struct {
	Snapshot          `yaml:",inline"`
	SizeClass         SizeClass `json:"sizeClass" yaml:"sizeClass"`
	HasWhippedTopping bool      `json:"hasWhippedTopping" yaml:"hasWhippedTopping"`
	HasMilkAdded      bool      `json:"hasMilkAdded" yaml:"hasMilkAdded"`
}

// View derives the display values from the current fields.
func (s Snapshot) View() View {
	return View{
		Snapshot:          s.Clone(),
		SizeClass:         s.SizeClass(),
		HasWhippedTopping: s.HasWhippedTopping(),
		HasMilkAdded:      s.HasMilkAdded(),
	}
}
