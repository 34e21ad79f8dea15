package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	whitespacePattern = regexp.MustCompile(`[\t\n\r\s]+`)
	artifactPattern   = regexp.MustCompile(`(?i)\b(PICK|BAN|DECIDER)\b`)
	clockPattern      = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
	doubleSpace       = regexp.MustCompile(`\s{2,}`)
	leadingInt        = regexp.MustCompile(`^[+-]?\d+`)
	matchIDPattern    = regexp.MustCompile(`/(\d+)(?:/|$)`)
)

// CleanText collapses whitespace and removes pick/ban/decider markers and clock
// readouts. CleanText(CleanText(s)) == CleanText(s).
func CleanText(s string) string {
	if s == "" {
		return s
	}

	cleaned := strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
	cleaned = strings.TrimSpace(artifactPattern.ReplaceAllString(cleaned, ""))
	cleaned = strings.TrimSpace(clockPattern.ReplaceAllString(cleaned, ""))
	cleaned = strings.TrimSpace(doubleSpace.ReplaceAllString(cleaned, " "))

	return cleaned
}

// CollapseSpace trims s and joins its fields with single spaces
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NameKey is the grouping key for team and tournament names
func NameKey(name string) string {
	return CleanText(name)
}

// IsDirty reports whether a raw name still carries a tab, newline or doubled space
func IsDirty(name string) bool {
	return strings.ContainsAny(name, "\t\n") || strings.Contains(name, "  ")
}

// IsPlaceholder reports whether a side name stands in for an undecided team
func IsPlaceholder(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "tbd", "–", "—", "-", "vs":
		return true
	}
	return false
}

// ParseInt returns the leading integer of s, or 0 when there is none
func ParseInt(s string) int {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// ExtractMatchID returns the first run of digits enclosed by slashes in a match URL
func ExtractMatchID(href string) string {
	if m := matchIDPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}
