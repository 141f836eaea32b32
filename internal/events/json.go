package events

import "encoding/json"

// Marshal serializes an event to its wire form. The struct tags on Event
// are the wire format; there is no separate envelope.
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal parses a wire-form event
func Unmarshal(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}
