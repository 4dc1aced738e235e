package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ToString converts various types to string.
func ToString(val any) string {
	s, _ := ToNullableString(val)
	return s
}

// ToNullableString converts a raw database value to a string. The second
// result is false for SQL NULL (a nil value or nil pointer).
func ToNullableString(val any) (string, bool) {
	switch v := val.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	case time.Time:
		return v.UTC().Format(time.RFC3339), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// ParseBool parses a boolean flag value. Besides the forms accepted by
// strconv.ParseBool it recognises yes/no and y/n, case-insensitively.
// Any other value is an error.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", s)
	}
	return b, nil
}
