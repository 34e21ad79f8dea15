package match

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a match
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusLive      Status = "live"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusLive, StatusCompleted:
		return true
	}
	return false
}

// Format is the declared series length
type Format string

const (
	FormatBo1 Format = "Bo1"
	FormatBo3 Format = "Bo3"
	FormatBo5 Format = "Bo5"
)

// DetectFormat scans text for bo1/bo5 tokens, defaulting to Bo3
func DetectFormat(text string) Format {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "bo1"):
		return FormatBo1
	case strings.Contains(lower, "bo5"):
		return FormatBo5
	default:
		return FormatBo3
	}
}

// Side identifies one of the two competitors positionally
type Side string

const (
	SideTeam1 Side = "team1"
	SideTeam2 Side = "team2"
)

// Summary is a match as described by a listing page
type Summary struct {
	ExternalID        string     `json:"vlr_match_id"`
	Team1Name         string     `json:"team1_name,omitempty"`
	Team2Name         string     `json:"team2_name,omitempty"`
	Team1Score        int        `json:"team1_score"`
	Team2Score        int        `json:"team2_score"`
	Status            Status     `json:"status"`
	Tournament        string     `json:"tournament_name,omitempty"`
	TournamentLogoURL string     `json:"tournament_logo_url,omitempty"`
	Stage             string     `json:"stage,omitempty"`
	Time              *time.Time `json:"match_time,omitempty"`
	Format            Format     `json:"match_format"`
	URL               string     `json:"match_url"`
}

// InferStatus applies the listing heuristic: live wins, then any nonzero score
// means completed, otherwise upcoming.
func InferStatus(live bool, score1, score2 int) Status {
	if live {
		return StatusLive
	}
	if score1 > 0 || score2 > 0 {
		return StatusCompleted
	}
	return StatusUpcoming
}

// Detail is a match as described by its own page
type Detail struct {
	Summary

	Team1LogoURL string           `json:"team1_logo_url,omitempty"`
	Team2LogoURL string           `json:"team2_logo_url,omitempty"`
	Maps         []MapResult      `json:"maps_data"`
	Players      []PlayerStatLine `json:"player_stats,omitempty"`

	// PlayersLowConfidence marks player lines derived positionally from
	// unlabelled numbers; consumers should treat them as approximate.
	PlayersLowConfidence bool `json:"player_stats_low_confidence,omitempty"`

	VODURL   string `json:"vod_url,omitempty"`
	StatsURL string `json:"stats_url,omitempty"`
}

// Dedupe returns summaries with repeated external IDs removed, keeping the first
// occurrence and the original order.
func Dedupe(summaries []Summary) []Summary {
	seen := make(map[string]bool, len(summaries))
	unique := make([]Summary, 0, len(summaries))
	for _, s := range summaries {
		if s.ExternalID == "" || seen[s.ExternalID] {
			continue
		}
		seen[s.ExternalID] = true
		unique = append(unique, s)
	}
	return unique
}
