package datachannel

import (
	"github.com/brewbean/livecup/internal/order"
	"github.com/tidwall/gjson"
)

// TypeOrderUpdate is the discriminator of order state messages.
const TypeOrderUpdate = "order_update"

// Reasons reported by Ignored.
const (
	ReasonNotObject   = "not an object"
	ReasonUnknownType = "unhandled type"
	ReasonMissingData = "missing data object"
)

// Message is the closed set of routed data-channel messages.
type Message interface {
	isMessage()
}

// OrderUpdate carries a complete replacement for the current order.
type OrderUpdate struct {
	Order order.Snapshot
}

// Ignored is any well-formed payload this widget does not handle.
type Ignored struct {
	Type   string
	Reason string
}

func (OrderUpdate) isMessage() {}
func (Ignored) isMessage()     {}

// Route dispatches a parsed JSON value on its "type" field. Only an object
// whose type is "order_update" and whose "data" is an object yields an
// OrderUpdate; every other shape is Ignored.
func Route(value gjson.Result) Message {
	if !value.IsObject() {
		return Ignored{Reason: ReasonNotObject}
	}

	var kind, data gjson.Result
	// Later duplicates win, as with JSON.parse.
	value.ForEach(func(key, field gjson.Result) bool {
		switch key.String() {
		case "type":
			kind = field
		case "data":
			data = field
		}
		return true
	})

	if kind.Type != gjson.String || kind.Str != TypeOrderUpdate {
		return Ignored{Type: kind.String(), Reason: ReasonUnknownType}
	}
	if !data.IsObject() {
		return Ignored{Type: TypeOrderUpdate, Reason: ReasonMissingData}
	}
	return OrderUpdate{Order: snapshotFrom(data)}
}

// snapshotFrom reads the order fields leniently: non-string values for the
// text fields count as absent, and extras may be a string or a list.
func snapshotFrom(data gjson.Result) order.Snapshot {
	var snap order.Snapshot
	data.ForEach(func(key, field gjson.Result) bool {
		switch key.String() {
		case "name":
			snap.CustomerName = text(field)
		case "drinkType":
			snap.DrinkType = text(field)
		case "size":
			snap.RawSize = text(field)
		case "milk":
			snap.Milk = text(field)
		case "extras":
			snap.Extras = extras(field)
		}
		return true
	})
	return snap
}

func text(field gjson.Result) string {
	if field.Type != gjson.String {
		return ""
	}
	return field.Str
}

func extras(field gjson.Result) []string {
	if field.IsArray() {
		var out []string
		field.ForEach(func(_, item gjson.Result) bool {
			if s, ok := scalar(item); ok {
				out = append(out, s)
			}
			return true
		})
		return out
	}
	if s, ok := scalar(field); ok {
		return []string{s}
	}
	return nil
}

// scalar renders strings, numbers and booleans as text; null, empty strings,
// objects and nested arrays are skipped.
func scalar(item gjson.Result) (string, bool) {
	switch item.Type {
	case gjson.String:
		return item.Str, item.Str != ""
	case gjson.Number, gjson.True, gjson.False:
		return item.String(), true
	default:
		return "", false
	}
}
