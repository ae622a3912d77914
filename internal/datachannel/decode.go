// Package datachannel turns raw data-channel payloads into routed messages.
//
// Decoding happens in two steps: the payload bytes are decoded as UTF-8 text
// and parsed as JSON (Parse), then the resulting value is routed by its "type"
// discriminator (Route). Decode runs both.
package datachannel

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrInvalidText is returned when the payload cannot be decoded as UTF-8 text.
	ErrInvalidText = errors.New("datachannel: payload is not valid text")
	// ErrMalformedJSON is returned when the decoded text is not a JSON value.
	ErrMalformedJSON = errors.New("datachannel: payload is not valid JSON")
)

// Parse decodes payload as UTF-8 (a leading byte order mark is stripped and
// invalid sequences become U+FFFD) and parses the text as JSON.
func Parse(payload []byte) (gjson.Result, error) {
	text, err := unicode.UTF8BOM.NewDecoder().Bytes(payload)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", ErrInvalidText, err)
	}
	if !gjson.ValidBytes(text) {
		return gjson.Result{}, ErrMalformedJSON
	}
	return gjson.ParseBytes(text), nil
}

// Decode parses payload and routes the resulting value.
// Only Parse failures are errors; unrelated messages come back as Ignored.
func Decode(payload []byte) (Message, error) {
	value, err := Parse(payload)
	if err != nil {
		return nil, err
	}
	return Route(value), nil
}
