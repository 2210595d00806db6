package game

import (
	"encoding/json"
	"math"
)

// NormalizeValue undoes the number widening of a JSON round trip: integral
// float64 and json.Number values become int, other numbers float64. Maps and
// slices are rewritten in place.
func NormalizeValue(v any) any {
	switch v := v.(type) {
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
			return int(v)
		}
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil && i >= math.MinInt32 && i <= math.MaxInt32 {
			return int(i)
		}
		if f, err := v.Float64(); err == nil {
			return NormalizeValue(f)
		}
		return v.String()
	case map[string]any:
		for k, e := range v {
			v[k] = NormalizeValue(e)
		}
		return v
	case Relationship:
		for k, e := range v {
			v[k] = NormalizeValue(e)
		}
		return v
	case []any:
		for i, e := range v {
			v[i] = NormalizeValue(e)
		}
		return v
	}
	return v
}
