package validation

import (
	"regexp"
	"strings"
)

// Group names: letters, digits, spaces, hyphens, underscores; 2..64 runes.
var groupNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _\-]{1,63}$`)

func IsValidGroupName(name string) bool {
	return groupNameRe.MatchString(strings.TrimSpace(name))
}

// NormalizeQuery lowercases and trims an invite target query (username or
// email) before lookup.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// ClampLimit bounds a page size to [1, max], substituting def when the caller
// sends zero or a negative value.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
