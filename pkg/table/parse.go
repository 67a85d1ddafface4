package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayouts are tried in order when parsing timestamps from text.
var TimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// ParseValue converts text into a value of typ. An empty string (after
// trimming, for non-text types) is a null, as is "NaN" for floats.
func ParseValue(s string, typ Type) (any, error) {
	if typ.Textual() {
		if s == "" {
			return nil, nil
		}
		return s, nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	switch typ {
	case Integer:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not %s", ErrTypeMismatch, s, typ)
		}
		return n, nil
	case Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not %s", ErrTypeMismatch, s, typ)
		}
		if math.IsNaN(f) {
			return nil, nil
		}
		return f, nil
	case Boolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not %s", ErrTypeMismatch, s, typ)
		}
		return b, nil
	case Timestamp:
		for _, layout := range TimestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("%w: %q is not %s", ErrTypeMismatch, s, typ)
	}
	return nil, fmt.Errorf("%w: cannot parse into %s", ErrTypeMismatch, typ)
}

// FormatValue renders a normalized value as text. Nulls render empty.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case string:
		return x
	}
	return fmt.Sprint(v)
}

// convert changes a non-null normalized value from one type to another.
func convert(v any, from, to Type) (any, error) {
	if from == to || (from.Textual() && to.Textual()) {
		return v, nil
	}
	if to.Textual() {
		return FormatValue(v), nil
	}
	if from.Textual() {
		return ParseValue(v.(string), to)
	}
	switch x := v.(type) {
	case int64:
		switch to {
		case Float:
			return float64(x), nil
		case Boolean:
			return x != 0, nil
		}
	case float64:
		switch to {
		case Integer:
			if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
				return nil, fmt.Errorf("%w: %v has no exact integer value", ErrTypeMismatch, x)
			}
			return int64(x), nil
		case Boolean:
			return x != 0, nil
		}
	case bool:
		var n int64
		if x {
			n = 1
		}
		switch to {
		case Integer:
			return n, nil
		case Float:
			return float64(n), nil
		}
	}
	return nil, fmt.Errorf("%w: cannot cast %s to %s", ErrTypeMismatch, from, to)
}
