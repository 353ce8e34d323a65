package utils

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ToInt64 converts loosely typed values (JSON numbers, strings, integer kinds) to int64.
// The second result is false when the value is absent or not numeric.
func ToInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case nil:
		return 0, false
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case uint:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	case json.Number:
		i, err := v.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return i, err == nil
	case []byte:
		i, err := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// ToString converts various types to string. Nil becomes the empty string.
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToBool converts various types to bool.
// It handles bool, numeric 1, and the strings "1", "true" and "yes".
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "1" || s == "true" || s == "yes"
	case []byte:
		return ToBool(string(v))
	default:
		i, ok := ToInt64(v)
		return ok && i == 1
	}
}

// NormalizeCompany returns the canonical form of a company or folder name.
func NormalizeCompany(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
