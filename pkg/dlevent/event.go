// Package dlevent defines the log event carried on the developer-log
// stream and the rules for rendering it into a display entry.
package dlevent

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	"github.com/pkg/errors"
)

// Event types with special handling.
const (
	TypeLog        = "log"
	TypeError      = "error"
	TypeConnection = "connection"
)

// SystemLogger tags entries synthesized by the client itself.
const SystemLogger = "System"

// DefaultLevel is used when an event carries no level.
const DefaultLevel = "INFO"

// LogEvent is one structured log record as sent on the wire.
// Every field is optional.
type LogEvent struct {
	Type      string   `json:"type,omitempty"`
	Level     string   `json:"level,omitempty"`
	Logger    string   `json:"logger,omitempty"`
	Message   string   `json:"message,omitempty"`
	Timestamp *float64 `json:"timestamp,omitempty"`
	Status    string   `json:"status,omitempty"`

	// raw holds the original frame for the fallback serialization
	raw []byte
}

// Time converts the epoch-seconds timestamp. ok is false when the
// event has no timestamp or a zero one.
func (e LogEvent) Time() (t time.Time, ok bool) {
	if e.Timestamp == nil || *e.Timestamp == 0 {
		return time.Time{}, false
	}
	sec, frac := math.Modf(*e.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9)), true
}

// JSON returns the compact serialization of the whole event. Decoded
// events keep their original key order.
func (e LogEvent) JSON() string {
	if len(e.raw) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, e.raw); err == nil {
			return buf.String()
		}
		return string(e.raw)
	}
	b, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Stamp returns a copy of e with the timestamp set to t.
func (e LogEvent) Stamp(t time.Time) LogEvent {
	ts := float64(t.UnixNano()) / 1e9
	e.Timestamp = &ts
	return e
}

// Payload is one inbound frame: either a bare string or a LogEvent.
type Payload struct {
	Event  LogEvent
	Text   string
	IsText bool
}

// Text wraps a bare string payload.
func Text(s string) Payload {
	return Payload{Text: s, IsText: true}
}

// FromEvent wraps a structured payload.
func FromEvent(e LogEvent) Payload {
	return Payload{Event: e}
}

// Decode parses a single frame. JSON null, malformed JSON and fields
// of the wrong JSON type are errors. Non-object values other than
// strings become events whose message is empty, so they render through
// the fallback serialization.
func Decode(frame []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 {
		return Payload{}, errors.New("empty frame")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Payload{}, errors.Wrap(err, "decode string payload")
		}
		return Text(s), nil
	case '{':
		var e LogEvent
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return Payload{}, errors.Wrap(err, "decode event payload")
		}
		e.raw = append([]byte(nil), trimmed...)
		return FromEvent(e), nil
	}

	var v interface{}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return Payload{}, errors.Wrap(err, "decode payload")
	}
	if v == nil {
		return Payload{}, errors.New("null payload")
	}
	return FromEvent(LogEvent{raw: append([]byte(nil), trimmed...)}), nil
}

// ParseFailure is synthesized when a frame cannot be decoded.
func ParseFailure(raw []byte) LogEvent {
	return LogEvent{
		Type:    TypeError,
		Level:   "ERROR",
		Logger:  SystemLogger,
		Message: "Failed to parse WebSocket message: " + string(raw),
	}
}

// ConnectionLost is synthesized whenever the stream connection drops
// or a dial attempt fails.
func ConnectionLost() LogEvent {
	return LogEvent{
		Type:    TypeLog,
		Level:   "ERROR",
		Logger:  SystemLogger,
		Message: "WebSocket connection closed. Attempting to reconnect...",
	}
}

// DecodeFailure is the diagnostic appended when message unescaping fails.
func DecodeFailure(err error) LogEvent {
	return LogEvent{
		Type:    TypeError,
		Level:   "ERROR",
		Logger:  SystemLogger,
		Message: "Failed to decode message: " + err.Error(),
	}
}
