package protocol

import (
	"encoding/json"
	"math"

	"github.com/DoyleJ11/deckwars-server/internal/errcode"
)

func lookup(p map[string]any, key string) (any, *Error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, errorf(errcode.MissingField, "%q is required", key)
	}
	return v, nil
}

func RequireString(p map[string]any, key string) (string, *Error) {
	v, perr := lookup(p, key)
	if perr != nil {
		return "", perr
	}
	s, ok := v.(string)
	if !ok {
		return "", errorf(errcode.InvalidFieldType, "%q must be a string", key)
	}
	return s, nil
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func RequireNumber(p map[string]any, key string) (float64, *Error) {
	v, perr := lookup(p, key)
	if perr != nil {
		return 0, perr
	}
	f, ok := asNumber(v)
	if !ok {
		return 0, errorf(errcode.InvalidFieldType, "%q must be a number", key)
	}
	return f, nil
}

// RequireInt accepts only integral numbers that fit in an int32.
func RequireInt(p map[string]any, key string) (int, *Error) {
	f, perr := RequireNumber(p, key)
	if perr != nil {
		return 0, perr
	}
	i, ok := integral(f)
	if !ok {
		return 0, errorf(errcode.InvalidValue, "%q must be an integer", key)
	}
	return i, nil
}

func integral(f float64) (int, bool) {
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func RequireNumberInRange(p map[string]any, key string, lo, hi float64) (float64, *Error) {
	f, perr := RequireNumber(p, key)
	if perr != nil {
		return 0, perr
	}
	if f < lo || f > hi {
		return 0, errorf(errcode.InvalidValue, "%q must be in [%g,%g]", key, lo, hi)
	}
	return f, nil
}

func RequireArray(p map[string]any, key string) ([]any, *Error) {
	v, perr := lookup(p, key)
	if perr != nil {
		return nil, perr
	}
	a, ok := v.([]any)
	if !ok {
		return nil, errorf(errcode.InvalidFieldType, "%q must be an array", key)
	}
	return a, nil
}

// RequireIntArray is RequireArray where every element must be an integer.
func RequireIntArray(p map[string]any, key string) ([]int, *Error) {
	a, perr := RequireArray(p, key)
	if perr != nil {
		return nil, perr
	}
	out := make([]int, 0, len(a))
	for i, v := range a {
		f, ok := asNumber(v)
		if !ok {
			return nil, errorf(errcode.InvalidFieldType, "%q[%d] must be a number", key, i)
		}
		n, ok := integral(f)
		if !ok {
			return nil, errorf(errcode.InvalidValue, "%q[%d] must be an integer", key, i)
		}
		out = append(out, n)
	}
	return out, nil
}

func RequireObject(p map[string]any, key string) (map[string]any, *Error) {
	v, perr := lookup(p, key)
	if perr != nil {
		return nil, perr
	}
	o, ok := v.(map[string]any)
	if !ok {
		return nil, errorf(errcode.InvalidFieldType, "%q must be an object", key)
	}
	return o, nil
}

// OptionalBool returns def when key is absent or null.
func OptionalBool(p map[string]any, key string, def bool) (bool, *Error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, errorf(errcode.InvalidFieldType, "%q must be a boolean", key)
	}
	return b, nil
}

// OptionalInt returns def when key is absent or null.
func OptionalInt(p map[string]any, key string, def int) (int, *Error) {
	if v, ok := p[key]; !ok || v == nil {
		return def, nil
	}
	return RequireInt(p, key)
}
