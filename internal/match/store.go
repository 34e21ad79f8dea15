package match

import "time"

// Team is a persisted competitor
type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FlagURL   string    `json:"flag_url,omitempty"`
	LogoURL   string    `json:"logo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Tournament is a persisted event
type Tournament struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	LogoURL   string    `json:"logo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Match is a persisted match row with its references resolved
type Match struct {
	ID           int64            `json:"id"`
	ExternalID   string           `json:"vlr_match_id"`
	Team1ID      *int64           `json:"team1_id,omitempty"`
	Team2ID      *int64           `json:"team2_id,omitempty"`
	TournamentID *int64           `json:"tournament_id,omitempty"`
	Status       Status           `json:"status"`
	Time         *time.Time       `json:"match_time,omitempty"`
	Format       Format           `json:"match_format"`
	Stage        string           `json:"stage,omitempty"`
	Team1Score   int              `json:"team1_score"`
	Team2Score   int              `json:"team2_score"`
	URL          string           `json:"match_url,omitempty"`
	VODURL       string           `json:"vod_url,omitempty"`
	StatsURL     string           `json:"stats_url,omitempty"`
	Maps         []MapResult      `json:"maps_data,omitempty"`
	Players      []PlayerStatLine `json:"player_stats,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	Team1      *Team       `json:"team1,omitempty"`
	Team2      *Team       `json:"team2,omitempty"`
	Tournament *Tournament `json:"tournament,omitempty"`
}

// ScrapeOutcome is the result recorded for one scrape unit
type ScrapeOutcome string

const (
	OutcomeSuccess    ScrapeOutcome = "success"
	OutcomeError      ScrapeOutcome = "error"
	OutcomeInProgress ScrapeOutcome = "in_progress"
)

// ScrapeLogEntry is one append-only audit record
type ScrapeLogEntry struct {
	ID        int64         `json:"id"`
	Category  string        `json:"scrape_type"`
	URL       string        `json:"url"`
	Outcome   ScrapeOutcome `json:"status"`
	Error     string        `json:"error_message,omitempty"`
	Found     int           `json:"matches_found"`
	CreatedAt time.Time     `json:"created_at"`
}

// Summary flattens a stored match back into listing form
func (m *Match) Summary() Summary {
	s := Summary{
		ExternalID: m.ExternalID,
		Team1Score: m.Team1Score,
		Team2Score: m.Team2Score,
		Status:     m.Status,
		Stage:      m.Stage,
		Time:       m.Time,
		Format:     m.Format,
		URL:        m.URL,
	}
	if m.Team1 != nil {
		s.Team1Name = m.Team1.Name
	}
	if m.Team2 != nil {
		s.Team2Name = m.Team2.Name
	}
	if m.Tournament != nil {
		s.Tournament = m.Tournament.Name
		s.TournamentLogoURL = m.Tournament.LogoURL
	}
	return s
}
