// Package filter narrows match lists by team, tournament, status and date.
//
// Filters back the listing query parameters of the HTTP API and the flags of
// the list and calendar commands:
//
//	f := filter.NewFilter()
//	f.Teams = []string{"sentinels"}
//	f.From, f.To, _ = filter.ParseDateRange("Oct 10-20", time.Now())
//	upcoming := f.Apply(summaries)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/vlr-matches/internal/match"
)

// Filter represents match filtering criteria. Every populated criterion must
// hold for a match to pass; within one criterion any value may match.
type Filter struct {
	// Date range on the match start time, inclusive
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`

	// Case-insensitive substring match against either side
	Teams []string `json:"teams,omitempty"`

	// Case-insensitive substring match against the tournament name
	Tournaments []string `json:"tournaments,omitempty"`

	Statuses []match.Status `json:"statuses,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all matches until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Teams:       []string{},
		Tournaments: []string{},
		Statuses:    []match.Status{},
	}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f.From == nil &&
		f.To == nil &&
		len(f.Teams) == 0 &&
		len(f.Tournaments) == 0 &&
		len(f.Statuses) == 0
}

// Matches checks if a match passes all active criteria. A date range
// excludes matches without a known start time.
func (f *Filter) Matches(m match.Summary) bool {
	if f.IsEmpty() {
		return true
	}

	if f.From != nil || f.To != nil {
		if m.Time == nil {
			return false
		}
		if f.From != nil && m.Time.Before(*f.From) {
			return false
		}
		if f.To != nil && m.Time.After(*f.To) {
			return false
		}
	}

	if len(f.Teams) > 0 && !containsAny(f.Teams, m.Team1Name, m.Team2Name) {
		return false
	}

	if len(f.Tournaments) > 0 && !containsAny(f.Tournaments, m.Tournament) {
		return false
	}

	if len(f.Statuses) > 0 {
		matched := false
		for _, s := range f.Statuses {
			if s == m.Status {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

func containsAny(needles []string, haystacks ...string) bool {
	for _, h := range haystacks {
		lower := strings.ToLower(h)
		for _, n := range needles {
			if n != "" && strings.Contains(lower, strings.ToLower(n)) {
				return true
			}
		}
	}
	return false
}

// Apply returns the matches passing the filter. An empty filter returns the
// input unchanged.
func (f *Filter) Apply(matches []match.Summary) []match.Summary {
	if f.IsEmpty() {
		return matches
	}

	filtered := make([]match.Summary, 0, len(matches))
	for _, m := range matches {
		if f.Matches(m) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// String returns a human-readable description of the active criteria.
// Format: "From: Oct 10, 2026 | To: Oct 20, 2026 | Teams: sentinels"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.From != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.From.Format("Jan 2, 2006")))
	}

	if f.To != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.To.Format("Jan 2, 2006")))
	}

	if len(f.Teams) > 0 {
		parts = append(parts, fmt.Sprintf("Teams: %s", strings.Join(f.Teams, ", ")))
	}

	if len(f.Tournaments) > 0 {
		parts = append(parts, fmt.Sprintf("Tournaments: %s", strings.Join(f.Tournaments, ", ")))
	}

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		parts = append(parts, fmt.Sprintf("Status: %s", strings.Join(statuses, ", ")))
	}

	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the filter.
func (f *Filter) Clone() *Filter {
	clone := &Filter{
		Teams:       append([]string{}, f.Teams...),
		Tournaments: append([]string{}, f.Tournaments...),
		Statuses:    append([]match.Status{}, f.Statuses...),
	}

	if f.From != nil {
		from := *f.From
		clone.From = &from
	}

	if f.To != nil {
		to := *f.To
		clone.To = &to
	}

	return clone
}
