package prepurchase

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// isEmpty reports whether v counts as absent for alias resolution.
// Zero numbers are empty: an amount of 0 never resolves.
func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return err == nil && d.IsZero()
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// toInt64 coerces a numeric or numeric-looking value to an integer.
// Values with a fractional part are rejected rather than truncated.
func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		return decimalFromString(x.String())
	case string:
		return decimalFromString(strings.TrimSpace(x))
	case float64:
		return integral(decimal.NewFromFloat(x))
	case float32:
		return integral(decimal.NewFromFloat32(x))
	case bool:
		return 0, fmt.Errorf("boolean %v is not an integer", x)
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("%v is not an integer: %w", v, err)
	}
	return n, nil
}

func decimalFromString(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return integral(d)
}

func integral(d decimal.Decimal) (int64, error) {
	if !d.IsInteger() {
		return 0, fmt.Errorf("%s is not an integer", d.String())
	}
	if !d.BigInt().IsInt64() {
		return 0, fmt.Errorf("%s is out of range", d.String())
	}
	return d.IntPart(), nil
}

// toIDString renders an identifier as a string. Integral floats render without a fraction.
func toIDString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case float64:
		d := decimal.NewFromFloat(x)
		if d.IsInteger() {
			return d.String(), nil
		}
	}
	return cast.ToStringE(v)
}

// IDString renders a non-empty identifier value as a string.
func IDString(v any) (string, bool) {
	if isEmpty(v) {
		return "", false
	}
	s, err := toIDString(v)
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}
