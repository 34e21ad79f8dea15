package match

import "testing"

func TestInferStatus(t *testing.T) {
	tests := []struct {
		name   string
		live   bool
		score1 int
		score2 int
		want   Status
	}{
		{"no live marker and zero scores", false, 0, 0, StatusUpcoming},
		{"first side scored", false, 2, 0, StatusCompleted},
		{"second side scored", false, 0, 1, StatusCompleted},
		{"live beats scores", true, 1, 1, StatusLive},
		{"live with zero scores", true, 0, 0, StatusLive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferStatus(tt.live, tt.score1, tt.score2); got != tt.want {
				t.Errorf("InferStatus(%v, %d, %d) = %q, want %q", tt.live, tt.score1, tt.score2, got, tt.want)
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		text string
		want Format
	}{
		{"Playoffs Bo1", FormatBo1},
		{"GRAND FINAL BO5", FormatBo5},
		{"Upper Final", FormatBo3},
		{"", FormatBo3},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := DetectFormat(tt.text); got != tt.want {
				t.Errorf("DetectFormat(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyRound(t *testing.T) {
	for n := 1; n <= RegulationRounds; n++ {
		got := ClassifyRound(n)
		if n == 1 || n == 13 {
			if got != RoundPistol {
				t.Errorf("round %d: got %q, want pistol", n, got)
			}
			continue
		}
		if got != "" {
			t.Errorf("round %d: got %q, want no classification", n, got)
		}
	}
}

func TestKDRatio(t *testing.T) {
	if got := KDRatio(20, 10); got != 2 {
		t.Errorf("KDRatio(20, 10) = %v, want 2", got)
	}
	if got := KDRatio(7, 0); got != 7 {
		t.Errorf("KDRatio(7, 0) = %v, want 7", got)
	}
	if got := KDRatio(0, 0); got != 0 {
		t.Errorf("KDRatio(0, 0) = %v, want 0", got)
	}
}

func TestDedupe(t *testing.T) {
	in := []Summary{
		{ExternalID: "1", Status: StatusUpcoming},
		{ExternalID: "2"},
		{ExternalID: "1", Status: StatusLive},
		{ExternalID: ""},
		{ExternalID: "3"},
	}

	got := Dedupe(in)
	if len(got) != 3 {
		t.Fatalf("Dedupe() returned %d summaries, want 3", len(got))
	}
	wantIDs := []string{"1", "2", "3"}
	for i, id := range wantIDs {
		if got[i].ExternalID != id {
			t.Errorf("position %d: got %q, want %q", i, got[i].ExternalID, id)
		}
	}
	if got[0].Status != StatusUpcoming {
		t.Errorf("first occurrence should win, got status %q", got[0].Status)
	}
}

func TestMatchSummary(t *testing.T) {
	m := &Match{
		ExternalID: "498001",
		Status:     StatusCompleted,
		Team1Score: 2,
		Team2Score: 1,
		Format:     FormatBo3,
		Team1:      &Team{Name: "Sentinels"},
		Tournament: &Tournament{Name: "Champions Tour 2026", LogoURL: "https://owcdn.net/img/americas.png"},
	}

	s := m.Summary()
	if s.ExternalID != "498001" || s.Team1Name != "Sentinels" || s.Team2Name != "" {
		t.Errorf("Summary() = %+v", s)
	}
	if s.Tournament != "Champions Tour 2026" || s.TournamentLogoURL == "" {
		t.Errorf("tournament = %q, logo = %q", s.Tournament, s.TournamentLogoURL)
	}
	if s.Team1Score != 2 || s.Team2Score != 1 || s.Status != StatusCompleted {
		t.Errorf("score/status = %d-%d %s", s.Team1Score, s.Team2Score, s.Status)
	}
}
