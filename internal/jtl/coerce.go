package jtl

import (
	"strconv"
	"strings"
)

// ParseBool coerces a JTL success field to a bool. Only the text "true",
// compared case-insensitively, counts as success; everything else, including
// the empty string, is a failure.
func ParseBool(s string) bool {
	return strings.EqualFold(s, "true")
}

// ParseInt coerces a JTL numeric field to an int64. Malformed or empty
// values coerce to zero so a single bad row never aborts a run.
func ParseInt(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
