package filter

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/vlr-matches/internal/match"
)

const monthPattern = `(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december)`

var (
	sameMonthRange  = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*(\d{1,2})$`)
	crossMonthRange = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*` + monthPattern + `\s+(\d{1,2})$`)
	wholeMonth      = regexp.MustCompile(`(?i)^` + monthPattern + `$`)
)

const isoDate = "2006-01-02"

// ParseDateRange parses a date range string into start and end times.
//
// Supported formats:
//   - "today", "tomorrow", "week" (today plus the next six days)
//   - "2026-10-01" or "2026-10-01..2026-10-15"
//   - "Oct 1-15" or "October 1-15" - Same month, different days
//   - "Oct 1 - Nov 2" - Different months
//   - "October" - Entire month
//
// Month names without a year resolve against now: a month already past this
// year means next year. Times are in UTC; the start is at 00:00:00 and the
// end at 23:59:59.
func ParseDateRange(input string, now time.Time) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch strings.ToLower(input) {
	case "today":
		return span(today, today)
	case "tomorrow":
		d := today.AddDate(0, 0, 1)
		return span(d, d)
	case "week":
		return span(today, today.AddDate(0, 0, 6))
	}

	if from, to, ok := strings.Cut(input, ".."); ok {
		start, err := time.Parse(isoDate, strings.TrimSpace(from))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start date: %s", from)
		}
		end, err := time.Parse(isoDate, strings.TrimSpace(to))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end date: %s", to)
		}
		return span(start, end)
	}
	if d, err := time.Parse(isoDate, input); err == nil {
		return span(d, d)
	}

	if m := sameMonthRange.FindStringSubmatch(input); m != nil {
		month := parseMonth(m[1])
		day1, err := parseDay(m[2])
		if err != nil {
			return nil, nil, err
		}
		day2, err := parseDay(m[3])
		if err != nil {
			return nil, nil, err
		}
		year := yearForMonth(month, now)
		return span(
			time.Date(year, month, day1, 0, 0, 0, 0, time.UTC),
			time.Date(year, month, day2, 0, 0, 0, 0, time.UTC),
		)
	}

	if m := crossMonthRange.FindStringSubmatch(input); m != nil {
		month1, month2 := parseMonth(m[1]), parseMonth(m[3])
		day1, err := parseDay(m[2])
		if err != nil {
			return nil, nil, err
		}
		day2, err := parseDay(m[4])
		if err != nil {
			return nil, nil, err
		}
		year1 := yearForMonth(month1, now)
		year2 := year1
		// A range that wraps the year end, e.g. "Dec 20 - Jan 5"
		if month2 < month1 {
			year2++
		}
		return span(
			time.Date(year1, month1, day1, 0, 0, 0, 0, time.UTC),
			time.Date(year2, month2, day2, 0, 0, 0, 0, time.UTC),
		)
	}

	if m := wholeMonth.FindStringSubmatch(input); m != nil {
		month := parseMonth(m[1])
		year := yearForMonth(month, now)
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		return span(first, first.AddDate(0, 1, -1))
	}

	return nil, nil, fmt.Errorf("invalid date range format. Use 'today', 'week', '2026-10-01..2026-10-15', 'Oct 1-15', 'Oct 1 - Nov 2' or 'October'")
}

// span returns the whole days from start to end inclusive
func span(start, end time.Time) (*time.Time, *time.Time, error) {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)
	if from.After(to) {
		return nil, nil, fmt.Errorf("start date must be before end date")
	}
	return &from, &to, nil
}

func parseDay(s string) (int, error) {
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return 0, fmt.Errorf("invalid day: %s", s)
	}
	return day, nil
}

// parseMonth converts a month name to time.Month
func parseMonth(name string) time.Month {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "sept" {
		return time.September
	}
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if name == full || name == full[:3] {
			return m
		}
	}
	return 0
}

// yearForMonth returns now's year, or the next one when month has passed
func yearForMonth(month time.Month, now time.Time) int {
	if month < now.Month() {
		return now.Year() + 1
	}
	return now.Year()
}

// SplitList splits comma-separated values, dropping blanks
func SplitList(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ParseStatuses validates status names; "completed" may also be written "results"
func ParseStatuses(values []string) ([]match.Status, error) {
	statuses := make([]match.Status, 0, len(values))
	for _, v := range values {
		s := match.Status(strings.ToLower(v))
		if s == "results" {
			s = match.StatusCompleted
		}
		if !s.Valid() {
			return nil, fmt.Errorf("invalid status: %s", v)
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// FromQuery builds a filter from the team, tournament, status and dates
// query parameters. Repeated and comma-separated values are both accepted.
func FromQuery(q url.Values, now time.Time) (*Filter, error) {
	f := NewFilter()
	f.Teams = append(f.Teams, SplitList(q["team"]...)...)
	f.Tournaments = append(f.Tournaments, SplitList(q["tournament"]...)...)

	statuses, err := ParseStatuses(SplitList(q["status"]...))
	if err != nil {
		return nil, err
	}
	f.Statuses = statuses

	if dates := q.Get("dates"); dates != "" {
		f.From, f.To, err = ParseDateRange(dates, now)
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}
