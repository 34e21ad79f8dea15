// Package calendar renders matches as an iCalendar feed.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/vlr-matches/internal/match"
)

// seriesLength estimates how long a series occupies a calendar slot
var seriesLength = map[match.Format]time.Duration{
	match.FormatBo1: 1 * time.Hour,
	match.FormatBo3: 3 * time.Hour,
	match.FormatBo5: 5 * time.Hour,
}

// GenerateICS builds a VCALENDAR named name with one VEVENT per match that
// has a known start time. Matches without a time are skipped. now stamps
// DTSTAMP.
func GenerateICS(name string, matches []match.Summary, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//vlr-matches//vlr-matches//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	if name != "" {
		fmt.Fprintf(&ics, "X-WR-CALNAME:%s\r\n", escapeICS(name))
	}

	for _, m := range matches {
		if m.Time == nil {
			continue
		}
		writeEvent(&ics, m, now)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeEvent(ics *strings.Builder, m match.Summary, now time.Time) {
	start := *m.Time
	length, ok := seriesLength[m.Format]
	if !ok {
		length = seriesLength[match.FormatBo3]
	}

	ics.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(ics, "UID:%s@vlr.gg\r\n", m.ExternalID)
	fmt.Fprintf(ics, "DTSTAMP:%s\r\n", formatICSTime(now))
	fmt.Fprintf(ics, "DTSTART:%s\r\n", formatICSTime(start))
	fmt.Fprintf(ics, "DTEND:%s\r\n", formatICSTime(start.Add(length)))
	fmt.Fprintf(ics, "SUMMARY:%s\r\n", escapeICS(title(m)))

	description := m.Tournament
	if m.Stage != "" {
		description += "\n" + m.Stage
	}
	if m.Status == match.StatusCompleted {
		description += fmt.Sprintf("\nFinal: %d-%d", m.Team1Score, m.Team2Score)
	}
	if description != "" {
		fmt.Fprintf(ics, "DESCRIPTION:%s\r\n", escapeICS(strings.TrimPrefix(description, "\n")))
	}
	if m.URL != "" {
		fmt.Fprintf(ics, "URL:%s\r\n", m.URL)
	}

	// Upcoming matches may still be rescheduled
	if m.Status == match.StatusUpcoming {
		ics.WriteString("STATUS:TENTATIVE\r\n")
	} else {
		ics.WriteString("STATUS:CONFIRMED\r\n")
	}
	ics.WriteString("TRANSP:TRANSPARENT\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

func title(m match.Summary) string {
	team1, team2 := m.Team1Name, m.Team2Name
	if team1 == "" {
		team1 = "TBD"
	}
	if team2 == "" {
		team2 = "TBD"
	}
	return fmt.Sprintf("%s vs %s (%s)", team1, team2, m.Format)
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// RFC 5545 text escaping
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
