package ui

import (
	"fmt"
	"strings"
)

// ParseBoolDefault parses a boolean-like value with a fallback default.
// True values: 1, true, yes, on, y
// False values: 0, false, no, off, n
// Empty/unknown values return defaultValue.
func ParseBoolDefault(raw string, defaultValue bool) bool {
	v, ok := parseBool(raw)
	if !ok {
		return defaultValue
	}
	return v
}

// ParseToggle parses a command argument such as "on" or "off".
func ParseToggle(raw string) (bool, error) {
	v, ok := parseBool(raw)
	if !ok {
		return false, fmt.Errorf("expected on or off, got %q", raw)
	}
	return v, nil
}

func parseBool(raw string) (value, ok bool) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "1", "true", "yes", "on", "y":
		return true, true
	case "0", "false", "no", "off", "n":
		return false, true
	default:
		return false, false
	}
}
