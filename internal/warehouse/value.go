package warehouse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Normalize converts a scalar result value to a canonical string form
// (e.g. "Germany" or "8429529"). Integral floats print without a fraction so
// a COUNT(*) read back as float64 still compares equal to its int64 form.
// Text is trimmed and put in Unicode NFC, so a decomposed accent matches its
// precomposed form.
func Normalize(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return norm.NFC.String(strings.TrimSpace(t))
	case []byte:
		return norm.NFC.String(strings.TrimSpace(string(t)))
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	}
	if f, ok := asFloat(v); ok {
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if i, ok := asInt(v); ok {
		return strconv.FormatInt(i, 10)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Equal reports whether two scalar values are the same after normalization.
// Numbers compare numerically regardless of their Go type. When one side is a
// number, the other may be a bool (true is 1) or numeric text such as a
// DECIMAL scanned as "5.00". Two strings always compare as text.
func Equal(a, b any) bool {
	fa, aNum := asNumber(a)
	fb, bNum := asNumber(b)
	switch {
	case aNum && bNum:
		return fa == fb
	case aNum:
		if fb, ok := coerceNumber(b); ok {
			return fa == fb
		}
	case bNum:
		if fa, ok := coerceNumber(a); ok {
			return fa == fb
		}
	}
	return Normalize(a) == Normalize(b)
}

// coerceNumber reads a bool or numeric text as a number.
func coerceNumber(v any) (float64, bool) {
	var text string
	switch t := v.(type) {
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		text = t
	case []byte:
		text = string(t)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Truthy reports whether a scalar counts as present: nil, false, numeric
// zero, empty strings and the zero time are not.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []byte:
		return len(t) > 0
	case time.Time:
		return !t.IsZero()
	}
	if f, ok := asNumber(v); ok {
		return f != 0
	}
	return true
}

func asNumber(v any) (float64, bool) {
	if f, ok := asFloat(v); ok {
		return f, true
	}
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	}
	return 0, false
}

func asInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	}
	return 0, false
}
