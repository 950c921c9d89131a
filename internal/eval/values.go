package eval

import (
	"strconv"
	"strings"
)

// AsNumber coerces a session value to float64 with best effort; anything
// non-numeric becomes 0.
func AsNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// IsNumeric reports whether the value coerces to a number without loss of
// meaning (a real number, or a string that parses as one).
func IsNumeric(v any) bool {
	switch n := v.(type) {
	case float64, float32, int, int32, int64, uint64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return err == nil
	default:
		return false
	}
}

// Truthy is the generic truthiness used by isTrue/isFalse: nil, false,
// zero, and empty or explicit-false strings are false.
func Truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		s := strings.TrimSpace(b)
		return s != "" && !strings.EqualFold(s, "false") && s != "0"
	case float64, float32, int, int32, int64, uint64:
		return AsNumber(v) != 0
	default:
		return true
	}
}

// AsString renders a session value for display, interpolation, and string
// comparison.
func AsString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		if s {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case int:
		return strconv.Itoa(s)
	case int32:
		return strconv.FormatInt(int64(s), 10)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return ""
	}
}
