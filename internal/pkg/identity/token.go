package identity

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Token renders the raw device_id JSON value as text: strings are unquoted,
// any other value keeps its literal form.
func Token(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// NumericID converts the raw device_id to the integer id used by the durable store
// and the derived views. Fractions are truncated; anything non-numeric becomes 0.
func NumericID(raw json.RawMessage) int64 {
	text := strings.TrimSpace(Token(raw))
	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		return id
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		// numeric strings must be integral
		return 0
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int64(f)
	}
	return 0
}
