// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package convert normalises the loosely typed values returned by database
// drivers into a small set of Go types.
package convert

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Normalize returns v with driver specific representations replaced:
// []byte becomes string. Other values are returned unchanged.
func Normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Int64 converts v to an int64. It reports false for nil and for values that
// cannot be represented as an integer.
func Int64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint64:
		return int64(x), x <= math.MaxInt64
	case uint32:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint8:
		return int64(x), true
	case float64:
		return int64(x), x == float64(int64(x))
	case float32:
		return int64(x), x == float32(int64(x))
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case []byte:
		return Int64(string(x))
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Float64 converts v to a float64.
func Float64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case []byte:
		return Float64(string(x))
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	if n, ok := Int64(v); ok {
		return float64(n), true
	}
	return 0, false
}

// String converts v to its string form. It reports false only for nil.
func String(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case time.Time:
		return x.Format(time.RFC3339Nano), true
	case fmt.Stringer:
		return x.String(), true
	}
	return fmt.Sprint(v), true
}

// Bool converts v to a bool. Integers are true when non zero.
func Bool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case []byte:
		return Bool(string(x))
	case string:
		b, err := strconv.ParseBool(x)
		return b, err == nil
	}
	if n, ok := Int64(v); ok {
		return n != 0, true
	}
	return false, false
}
