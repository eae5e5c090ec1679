// Package cast converts loosely typed values (YAML/JSON decoded maps, extra-args maps)
// into the numeric types adapter configs use.
package cast

import "math"

// ToFloat64 converts a numeric value to float64. Supports int/uint/float types.
func ToFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

// ToInt converts a numeric value to int. Floats must be integral and finite;
// values outside the int range are clamped.
func ToInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return clampInt64(x), true
	case int32:
		return int(x), true
	case uint:
		if x > math.MaxInt {
			return math.MaxInt, true
		}
		return int(x), true
	case uint32:
		return int(x), true
	case uint64:
		if x > math.MaxInt {
			return math.MaxInt, true
		}
		return int(x), true
	case float64:
		return floatToInt(x)
	case float32:
		return floatToInt(float64(x))
	default:
		return 0, false
	}
}

func clampInt64(x int64) int {
	if x > math.MaxInt {
		return math.MaxInt
	}
	if x < math.MinInt {
		return math.MinInt
	}
	return int(x)
}

func floatToInt(x float64) (int, bool) {
	if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
		return 0, false
	}
	if x >= math.MaxInt {
		return math.MaxInt, true
	}
	if x <= math.MinInt {
		return math.MinInt, true
	}
	return int(x), true
}
