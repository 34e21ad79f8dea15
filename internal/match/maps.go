package match

// WinMethod is how a round was decided
type WinMethod string

const (
	WinElimination WinMethod = "elimination"
	WinBomb        WinMethod = "bomb"
	WinTime        WinMethod = "time"
	WinUnknown     WinMethod = "unknown"
)

// RoundType classifies the economic state of a round
type RoundType string

const (
	RoundPistol RoundType = "pistol"
)

// RegulationRounds is the standard map length before overtime
const RegulationRounds = 24

// ClassifyRound applies the pistol-round rule: the first round of each half.
func ClassifyRound(number int) RoundType {
	if number == 1 || number == RegulationRounds/2+1 {
		return RoundPistol
	}
	return ""
}

// RoundResult is one round on a map
type RoundResult struct {
	Number     int       `json:"round_number"`
	Winner     *Side     `json:"winner,omitempty"`
	Method     WinMethod `json:"win_method"`
	Type       RoundType `json:"round_type,omitempty"`
	Team1Score *int      `json:"round_score_team1,omitempty"`
	Team2Score *int      `json:"round_score_team2,omitempty"`
}

// MapResult is one map of a series
type MapResult struct {
	Name       string        `json:"map_name"`
	Team1Score int           `json:"team1_score"`
	Team2Score int           `json:"team2_score"`
	Agents     []string      `json:"agents"`
	Rounds     []RoundResult `json:"rounds_data,omitempty"`
}

// PlayerStatLine is one player's line for a match. Combat score and damage
// are zero when the page does not expose them.
type PlayerStatLine struct {
	Name        string  `json:"player_name"`
	Side        Side    `json:"team"`
	Agent       string  `json:"agent,omitempty"`
	Kills       int     `json:"kills"`
	Deaths      int     `json:"deaths"`
	Assists     int     `json:"assists"`
	KDRatio     float64 `json:"k_d_ratio"`
	ACS         int     `json:"acs"`
	ADR         int     `json:"adr"`
	HeadshotPct float64 `json:"headshot_percentage"`
	FirstKills  int     `json:"first_kills"`
	FirstDeaths int     `json:"first_deaths"`
	MapsPlayed  int     `json:"maps_played"`
}

// KDRatio divides kills by deaths; with zero deaths the ratio is the kill count.
func KDRatio(kills, deaths int) float64 {
	if deaths == 0 {
		return float64(kills)
	}
	return float64(kills) / float64(deaths)
}
