// Package transfer turns transfer-outcome notifications into typed events.
//
// Decoding is permissive: absent fields take defaults and loosely typed
// values are coerced. Only input that cannot be read as a JSON object, or a
// duration that is not a finite number, is rejected.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultStatus   = "SUCCESS"
	DefaultDuration = 0.5
)

// ErrMalformedEvent is returned for bodies that cannot be decoded.
var ErrMalformedEvent = errors.New("malformed transfer event")

// Event is a decoded transfer notification with defaults applied.
type Event struct {
	// EventID is optional; when set it is used to drop redeliveries.
	EventID  string  `json:"event_id,omitempty"`
	Status   string  `json:"status"`
	Duration float64 `json:"duration"`
}

type wireEvent struct {
	EventID  json.RawMessage `json:"event_id"`
	Status   json.RawMessage `json:"status"`
	Duration json.RawMessage `json:"duration"`
}

// Decode reads a single JSON object from r.
func Decode(r io.Reader) (Event, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return Event{}, fmt.Errorf("%w: read body: %v", ErrMalformedEvent, err)
	}
	return DecodeBytes(body)
}

func DecodeBytes(body []byte) (Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Event{}, fmt.Errorf("%w: body must be a JSON object", ErrMalformedEvent)
	}

	var w wireEvent
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	ev := Event{Status: DefaultStatus, Duration: DefaultDuration}

	if !isAbsent(w.Status) {
		status, err := coerceString(w.Status)
		if err != nil {
			return Event{}, fmt.Errorf("%w: status: %v", ErrMalformedEvent, err)
		}
		ev.Status = status
	}

	if !isAbsent(w.Duration) {
		d, err := coerceFloat(w.Duration)
		if err != nil {
			return Event{}, fmt.Errorf("%w: duration: %v", ErrMalformedEvent, err)
		}
		ev.Duration = d
	}

	if !isAbsent(w.EventID) {
		id, err := coerceString(w.EventID)
		if err != nil {
			return Event{}, fmt.Errorf("%w: event_id: %v", ErrMalformedEvent, err)
		}
		ev.EventID = id
	}

	return ev, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// coerceString renders any JSON value as a label-safe string: strings
// verbatim, scalars as their literal text, containers as compact JSON.
func coerceString(raw json.RawMessage) (string, error) {
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", err
		}
		return strings.ToValidUTF8(buf.String(), "�"), nil
	default:
		return string(raw), nil
	}
}

func coerceFloat(raw json.RawMessage) (float64, error) {
	var v float64
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		v = f
	case 't':
		v = 1
	case 'f':
		v = 0
	case '{', '[':
		return 0, fmt.Errorf("expected a number, got %s", raw)
	default:
		if err := json.Unmarshal(raw, &v); err != nil {
			return 0, err
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not finite: %v", v)
	}
	return v, nil
}
