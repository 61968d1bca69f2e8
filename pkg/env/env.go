package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of the given environment variable. Unset or
// blank values fall back; till provisioning scripts are known to export
// padded empties.
func Get(key, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

// Bool reads a boolean flag, treating anything but an explicit true value
// as the fallback.
func Bool(key string, fallback bool) bool {
	switch strings.ToLower(Get(key, "")) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
