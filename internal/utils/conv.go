package utils

import (
	"strconv"
)

// ParseUint parses a decimal id, returning 0 and false for empty or invalid input.
func ParseUint(s string) (uint, bool) {
	if s == "" {
		return 0, false
	}
	i, err := strconv.ParseUint(s, 10, 64)
	if err != nil || i == 0 {
		return 0, false
	}
	return uint(i), true
}

// ParseOptionalUint returns nil for empty input and an error for garbage.
func ParseOptionalUint(s string) (*uint, error) {
	if s == "" {
		return nil, nil
	}
	i, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, err
	}
	v := uint(i)
	return &v, nil
}
