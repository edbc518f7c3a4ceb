package provider

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ExtractValue normalizes a numeric value from the shapes tennis feeds use.
//
// Rankings and title counts arrive as numbers, as numeric strings ("12",
// "T5" for ties), or nested like {"current": 12, "previous": 14}.
//
// Returns the scalar float64 value, and ok=false if not extractable.
func ExtractValue(val any) (float64, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		s := strings.TrimPrefix(strings.TrimSpace(v), "T")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
		return 0, false
	case map[string]any:
		for _, key := range []string{"current", "value", "total", "rank"} {
			if inner, exists := v[key]; exists && inner != nil {
				return ExtractValue(inner)
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// Int is an integer field that tolerates the shapes ExtractValue accepts.
// Anything unextractable decodes as 0 (unknown).
type Int int

func (n *Int) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	f, ok := ExtractValue(raw)
	if !ok || f < 0 || f > math.MaxInt32 {
		*n = 0
		return nil
	}
	*n = Int(f)
	return nil
}
