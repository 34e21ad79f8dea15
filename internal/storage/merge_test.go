package storage

import (
	"context"
	"testing"

	"github.com/pfrederiksen/vlr-matches/internal/match"
)

func TestGroupByCleanName(t *testing.T) {
	rows := []NamedRow{
		{ID: 1, Name: "Team A"},
		{ID: 2, Name: "Team B"},
		{ID: 3, Name: "Team A\t"},
		{ID: 4, Name: "Team  A"},
		{ID: 5, Name: "PICK"},
		{ID: 6, Name: " Team B\n"},
	}

	groups := GroupByCleanName(rows)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %+v", len(groups), groups)
	}

	tests := []struct {
		key string
		ids []int64
	}{
		{"Team A", []int64{1, 3, 4}},
		{"Team B", []int64{2, 6}},
	}
	for i, tt := range tests {
		g := groups[i]
		if g.Key != tt.key {
			t.Errorf("group %d key = %q, want %q", i, g.Key, tt.key)
		}
		if len(g.Rows) != len(tt.ids) {
			t.Fatalf("group %q has %d rows, want %d", g.Key, len(g.Rows), len(tt.ids))
		}
		for j, id := range tt.ids {
			if g.Rows[j].ID != id {
				t.Errorf("group %q row %d = %d, want %d", g.Key, j, g.Rows[j].ID, id)
			}
		}
	}
}

func TestGroupByCleanName_Empty(t *testing.T) {
	if groups := GroupByCleanName(nil); len(groups) != 0 {
		t.Errorf("expected no groups, got %+v", groups)
	}
}

func upsertPair(t *testing.T, s *Store, id, team1, team2, tournament string) *match.Match {
	t.Helper()
	m, _, err := s.UpsertMatch(context.Background(), &match.Detail{Summary: match.Summary{
		ExternalID: id,
		Team1Name:  team1,
		Team2Name:  team2,
		Tournament: tournament,
		Status:     match.StatusUpcoming,
	}})
	if err != nil {
		t.Fatalf("UpsertMatch(%s) error = %v", id, err)
	}
	return m
}

func TestMergeNearDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	upsertPair(t, s, "1", "Team A", "Team B", "Masters Toronto")
	upsertPair(t, s, "2", "Team A\t", "Team B", "Masters\nToronto")
	upsertPair(t, s, "3", "Team B", "Team  A", "Masters  Toronto")
	upsertPair(t, s, "4", "\tSolo Team", "Team B", "Masters Toronto")

	report, err := s.MergeNearDuplicates(ctx)
	if err != nil {
		t.Fatalf("MergeNearDuplicates() error = %v", err)
	}

	want := MergeReport{TeamsRenamed: 1, TeamsMerged: 2, TournamentsMerged: 2}
	if report != want {
		t.Errorf("report = %+v, want %+v", report, want)
	}

	teams, err := s.ListTeams(ctx)
	if err != nil {
		t.Fatalf("ListTeams() error = %v", err)
	}
	names := make(map[string]int64)
	for _, team := range teams {
		names[team.Name] = team.ID
	}
	if len(teams) != 3 {
		t.Fatalf("expected 3 teams, got %+v", teams)
	}
	teamA, ok := names["Team A"]
	if !ok {
		t.Fatalf("expected a clean Team A, got %+v", teams)
	}
	if _, ok := names["Solo Team"]; !ok {
		t.Errorf("expected the single dirty name to be renamed, got %+v", teams)
	}

	for _, id := range []string{"1", "2"} {
		m, err := s.GetMatchByExternalID(ctx, id)
		if err != nil {
			t.Fatalf("GetMatchByExternalID(%s) error = %v", id, err)
		}
		if m.Team1ID == nil || *m.Team1ID != teamA {
			t.Errorf("match %s team1 should point at Team A (%d), got %v", id, teamA, m.Team1ID)
		}
		if m.Tournament == nil || m.Tournament.Name != "Masters Toronto" {
			t.Errorf("match %s tournament not merged: %+v", id, m.Tournament)
		}
	}
	m3, _ := s.GetMatchByExternalID(ctx, "3")
	if m3.Team2ID == nil || *m3.Team2ID != teamA {
		t.Errorf("match 3 team2 should point at Team A, got %v", m3.Team2ID)
	}

	tournaments, _ := s.ListTournaments(ctx)
	if len(tournaments) != 1 {
		t.Errorf("expected 1 tournament, got %+v", tournaments)
	}

	again, err := s.MergeNearDuplicates(ctx)
	if err != nil {
		t.Fatalf("second MergeNearDuplicates() error = %v", err)
	}
	if again.Changed() {
		t.Errorf("second pass should change nothing, got %+v", again)
	}
}

func TestMergeNearDuplicates_DirtySweep(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetOrCreateTeam(ctx, "PICK\tBAN", "", ""); err != nil {
		t.Fatalf("GetOrCreateTeam() error = %v", err)
	}
	upsertPair(t, s, "9", "12:30\n", "Team B", "")

	report, err := s.MergeNearDuplicates(ctx)
	if err != nil {
		t.Fatalf("MergeNearDuplicates() error = %v", err)
	}
	if report.DirtyDeleted != 1 || report.DirtyKept != 1 {
		t.Errorf("report = %+v, want 1 deleted and 1 kept", report)
	}

	teams, _ := s.ListTeams(ctx)
	if len(teams) != 2 {
		t.Fatalf("expected the referenced dirty team to survive, got %+v", teams)
	}
	for _, team := range teams {
		if team.Name == "PICK\tBAN" {
			t.Error("unreferenced dirty team should be deleted")
		}
	}
}
