package types

import "fmt"

// ToInt coerces a caller-supplied value (a Go integer, a REPL string) or one
// decoded from JSON into an int32 column value. JSON numbers decode as float64, so that's accepted
// alongside the native Go integer kinds.
func ToInt(val any) (int32, error) {
	switch v := val.(type) {
	case int32:
		return v, nil
	case int:
		return int32(v), nil
	case int64:
		return int32(v), nil
	case float64:
		return int32(v), nil
	case string:
		var i int32
		if _, err := fmt.Sscanf(v, "%d", &i); err != nil {
			return 0, fmt.Errorf("cannot convert %q to INT", v)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("cannot convert %v (%T) to INT", val, val)
	}
}

// ToFloat mirrors ToInt for the FLOAT column type.
func ToFloat(val any) (float32, error) {
	switch v := val.(type) {
	case float32:
		return v, nil
	case float64:
		return float32(v), nil
	case int:
		return float32(v), nil
	case int32:
		return float32(v), nil
	case string:
		var f float32
		if _, err := fmt.Sscanf(v, "%f", &f); err != nil {
			return 0, fmt.Errorf("cannot convert %q to FLOAT", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %v (%T) to FLOAT", val, val)
	}
}

// ToString coerces a value into the VARCHAR column type.
func ToString(val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case nil:
		return "", nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}
