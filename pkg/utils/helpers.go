package utils

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// GenerateRequestID generates a unique request ID for tracking
func GenerateRequestID() string {
	return uuid.New().String()
}

// TruncateRunes cuts s to at most max runes and reports whether anything was dropped.
// A non-positive max disables truncation.
func TruncateRunes(s string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s, false
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i], true
		}
		count++
	}
	return s, false
}

// TruncateForLog safely truncates long payloads for logging
func TruncateForLog(s string, max int) string {
	if out, cut := TruncateRunes(s, max); cut {
		return out + "..."
	}
	return s
}

// GetStringOrDefault returns the value if not empty, otherwise returns the default
func GetStringOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

// HostOf returns the lower-cased host of rawURL, or rawURL itself when it does not parse
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}
