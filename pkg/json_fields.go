package pkg

import (
	"bytes"
	"encoding/json"
	"math"
)

// Helpers for request bodies where the JSON type of a field matters,
// e.g. a number sent as a string must be rejected, not coerced.

// JSONPresent reports whether the field was sent with a non-null value.
func JSONPresent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// JSONSent reports whether the field was sent at all, null included.
func JSONSent(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) > 0
}

// JSONNumber returns the value of a JSON number literal.
func JSONNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// JSONInt returns the value of a JSON number literal with no fractional part.
func JSONInt(raw json.RawMessage) (int, bool) {
	f, ok := JSONNumber(raw)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// JSONString returns the value of a JSON string literal.
func JSONString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// JSONArray splits a JSON array into its raw elements.
func JSONArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	return elems, true
}
