package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dayPattern    = regexp.MustCompile(`(\d+)\s*d`)
	hourPattern   = regexp.MustCompile(`(\d+)\s*h`)
	minutePattern = regexp.MustCompile(`(\d+)\s*m`)
)

// ParseRelativeTime resolves labels such as "2h 30m", "1d 4h" or "live" against now.
// The second return value is false when the label carries no time component.
func ParseRelativeTime(s string, now time.Time) (time.Time, bool) {
	label := strings.ToLower(strings.TrimSpace(s))
	if label == "" {
		return time.Time{}, false
	}

	if strings.Contains(label, "live") {
		return now, true
	}

	total := 0
	found := false

	for _, part := range []struct {
		pattern *regexp.Regexp
		minutes int
	}{
		{dayPattern, 24 * 60},
		{hourPattern, 60},
		{minutePattern, 1},
	} {
		m := part.pattern.FindStringSubmatch(label)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		total += n * part.minutes
		found = true
	}

	if !found {
		return time.Time{}, false
	}

	return now.Add(time.Duration(total) * time.Minute), true
}
