package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/vlr-matches/internal/match"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone      SortOrder = ""
	SortByTime    SortOrder = "time"
	SortByTourney SortOrder = "tournament"
	SortByTeam    SortOrder = "team"
)

func parseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortNone, SortByTime, SortByTourney, SortByTeam:
		return order, nil
	}
	return "", fmt.Errorf("invalid sort: %s (must be 'time', 'tournament' or 'team')", s)
}

// sortSummaries sorts listing entries in place; SortNone keeps page order
func sortSummaries(items []match.Summary, order SortOrder) {
	switch order {
	case SortByTime:
		sort.SliceStable(items, func(i, j int) bool {
			return compareByTime(items[i], items[j])
		})
	case SortByTourney:
		sort.SliceStable(items, func(i, j int) bool {
			ti, tj := strings.ToLower(items[i].Tournament), strings.ToLower(items[j].Tournament)
			if ti != tj {
				return ti < tj
			}
			// Same tournament, sort by time
			return compareByTime(items[i], items[j])
		})
	case SortByTeam:
		sort.SliceStable(items, func(i, j int) bool {
			ti, tj := strings.ToLower(items[i].Team1Name), strings.ToLower(items[j].Team1Name)
			if ti != tj {
				return ti < tj
			}
			return compareByTime(items[i], items[j])
		})
	}
}

// compareByTime reports whether i should come before j. Entries with a
// known time come first, earliest first.
func compareByTime(i, j match.Summary) bool {
	if i.Time != nil && j.Time != nil {
		return i.Time.Before(*j.Time)
	}
	if i.Time != nil {
		return true
	}
	if j.Time != nil {
		return false
	}
	return i.ExternalID < j.ExternalID
}
