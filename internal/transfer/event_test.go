package transfer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDefaults(t *testing.T) {
	for _, body := range []string{`{}`, `{"status":null,"duration":null}`, " {}\n"} {
		ev, err := Decode(strings.NewReader(body))
		require.NoError(t, err, body)
		assert.Equal(t, DefaultStatus, ev.Status)
		assert.Equal(t, DefaultDuration, ev.Duration)
		assert.Empty(t, ev.EventID)
	}
}

func TestDecodeCoercion(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   string
		duration float64
	}{
		{"explicit", `{"status":"FAILED","duration":2.3}`, "FAILED", 2.3},
		{"numeric status", `{"status":404}`, "404", DefaultDuration},
		{"float status", `{"status":1.5}`, "1.5", DefaultDuration},
		{"bool status", `{"status":true}`, "true", DefaultDuration},
		{"object status", `{"status":{ "a" : 1 }}`, `{"a":1}`, DefaultDuration},
		{"array status", `{"status":[1, 2]}`, `[1,2]`, DefaultDuration},
		{"empty status kept", `{"status":""}`, "", DefaultDuration},
		{"string duration", `{"duration":" 1.25 "}`, DefaultStatus, 1.25},
		{"integer duration", `{"duration":3}`, DefaultStatus, 3},
		{"zero duration", `{"duration":0}`, DefaultStatus, 0},
		{"negative duration", `{"duration":-4.5}`, DefaultStatus, -4.5},
		{"true duration", `{"duration":true}`, DefaultStatus, 1},
		{"false duration", `{"duration":false}`, DefaultStatus, 0},
		{"unknown fields ignored", `{"foo":"bar","status":"OK"}`, "OK", DefaultDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeBytes([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.status, ev.Status)
			assert.Equal(t, tt.duration, ev.Duration)
		})
	}
}

func TestDecodeEventID(t *testing.T) {
	ev, err := DecodeBytes([]byte(`{"event_id":"tx-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "tx-1", ev.EventID)

	ev, err = DecodeBytes([]byte(`{"event_id":42}`))
	require.NoError(t, err)
	assert.Equal(t, "42", ev.EventID)
}

func TestDecodeMalformed(t *testing.T) {
	bodies := []string{
		``,
		`   `,
		`not json`,
		`{"status":"x"`,
		`[]`,
		`"SUCCESS"`,
		`null`,
		`42`,
		`{"duration":"fast"}`,
		`{"duration":"NaN"}`,
		`{"duration":"+Inf"}`,
		`{"duration":[1]}`,
		`{"duration":{}}`,
		`{"duration":1e400}`,
		`{} {}`,
	}

	for _, body := range bodies {
		_, err := DecodeBytes([]byte(body))
		require.Error(t, err, "body %q", body)
		assert.True(t, errors.Is(err, ErrMalformedEvent), "body %q: %v", body, err)
	}
}
