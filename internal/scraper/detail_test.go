package scraper

import (
	"testing"
	"time"

	"github.com/pfrederiksen/vlr-matches/internal/match"
)

func TestParseDetail_Fixture(t *testing.T) {
	doc := loadFixture(t, "match_detail.html")
	d := ParseDetail(doc, "498001", "https://www.vlr.gg/498001", DefaultBaseURL)

	if d.Team1Name != "Sentinels" || d.Team2Name != "G2 Esports" {
		t.Errorf("unexpected teams %q vs %q", d.Team1Name, d.Team2Name)
	}
	if d.Team1LogoURL != "https://owcdn.net/img/sentinels.png" {
		t.Errorf("unexpected team1 logo %q", d.Team1LogoURL)
	}
	if d.Team2LogoURL != "https://www.vlr.gg/img/g2.png" {
		t.Errorf("unexpected team2 logo %q", d.Team2LogoURL)
	}
	if d.Team1Score != 2 || d.Team2Score != 1 {
		t.Errorf("expected 2-1, got %d-%d", d.Team1Score, d.Team2Score)
	}
	if d.Status != match.StatusCompleted {
		t.Errorf("expected completed, got %s", d.Status)
	}
	if d.Tournament != "Champions Tour 2026: Americas Stage 2" {
		t.Errorf("unexpected tournament %q", d.Tournament)
	}
	if d.Stage != "Playoffs: Upper Final" {
		t.Errorf("unexpected stage %q", d.Stage)
	}
	if d.Format != match.FormatBo3 {
		t.Errorf("expected Bo3, got %s", d.Format)
	}
	wantTime := time.Date(2026, 10, 12, 19, 0, 0, 0, time.UTC)
	if d.Time == nil || !d.Time.Equal(wantTime) {
		t.Errorf("expected time %v, got %v", wantTime, d.Time)
	}
	if d.VODURL != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("unexpected vod url %q", d.VODURL)
	}
	if d.StatsURL != "" {
		t.Errorf("navigation links must not be taken as stats url, got %q", d.StatsURL)
	}

	if len(d.Maps) != 2 {
		t.Fatalf("expected 2 maps, got %d", len(d.Maps))
	}

	ascent := d.Maps[0]
	if ascent.Name != "Ascent" {
		t.Errorf("expected Ascent, got %q", ascent.Name)
	}
	if ascent.Team1Score != 13 || ascent.Team2Score != 11 {
		t.Errorf("expected 13-11, got %d-%d", ascent.Team1Score, ascent.Team2Score)
	}
	if len(ascent.Agents) != 2 || ascent.Agents[0] != "jett" || ascent.Agents[1] != "raze" {
		t.Errorf("unexpected agents %v", ascent.Agents)
	}
	if len(ascent.Rounds) != 4 {
		t.Fatalf("expected 4 rounds, got %d", len(ascent.Rounds))
	}

	lotus := d.Maps[1]
	if lotus.Name != "Lotus" || lotus.Team1Score != 9 || lotus.Team2Score != 13 {
		t.Errorf("unexpected second map %+v", lotus)
	}
	if len(lotus.Rounds) != 0 {
		t.Errorf("expected no rounds, got %d", len(lotus.Rounds))
	}
}

func TestParseDetail_Rounds(t *testing.T) {
	d := ParseDetail(loadFixture(t, "match_detail.html"), "498001", "", DefaultBaseURL)
	rounds := d.Maps[0].Rounds

	tests := []struct {
		number int
		winner match.Side
		method match.WinMethod
		typ    match.RoundType
		score1 int
		score2 int
	}{
		{1, match.SideTeam1, match.WinElimination, match.RoundPistol, 1, 0},
		{2, match.SideTeam2, match.WinBomb, "", 1, 1},
		{3, match.SideTeam1, match.WinBomb, "", 2, 1},
		{4, match.SideTeam2, match.WinTime, "", 2, 2},
	}

	for i, tt := range tests {
		r := rounds[i]
		if r.Number != tt.number {
			t.Errorf("round %d: number = %d", tt.number, r.Number)
		}
		if r.Winner == nil || *r.Winner != tt.winner {
			t.Errorf("round %d: winner = %v, expected %s", tt.number, r.Winner, tt.winner)
		}
		if r.Method != tt.method {
			t.Errorf("round %d: method = %s, expected %s", tt.number, r.Method, tt.method)
		}
		if r.Type != tt.typ {
			t.Errorf("round %d: type = %q, expected %q", tt.number, r.Type, tt.typ)
		}
		if r.Team1Score == nil || r.Team2Score == nil || *r.Team1Score != tt.score1 || *r.Team2Score != tt.score2 {
			t.Errorf("round %d: unexpected score snapshot", tt.number)
		}
	}
}

func TestParseDetail_Players(t *testing.T) {
	d := ParseDetail(loadFixture(t, "match_detail.html"), "498001", "", DefaultBaseURL)

	if !d.PlayersLowConfidence {
		t.Error("positional player lines should be marked low confidence")
	}
	if len(d.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(d.Players))
	}

	tenz := d.Players[0]
	if tenz.Name != "TenZ" || tenz.Side != match.SideTeam1 || tenz.Agent != "Jett" {
		t.Errorf("unexpected player %+v", tenz)
	}
	if tenz.Kills != 40 || tenz.Deaths != 30 || tenz.Assists != 10 || tenz.ACS != 245 || tenz.ADR != 160 {
		t.Errorf("unexpected stats %+v", tenz)
	}
	if tenz.MapsPlayed != 2 {
		t.Errorf("expected 2 maps played, got %d", tenz.MapsPlayed)
	}

	leaf := d.Players[1]
	if leaf.Side != match.SideTeam2 {
		t.Errorf("expected team2, got %s", leaf.Side)
	}
	if leaf.KDRatio != 25 {
		t.Errorf("expected ratio equal to kills with zero deaths, got %v", leaf.KDRatio)
	}
	if leaf.ADR != 0 {
		t.Errorf("missing damage column should read 0, got %d", leaf.ADR)
	}
}

func TestParseDetail_NamelessMapKept(t *testing.T) {
	html := `<html><body>
		<div class="match-header">
			<div class="match-header-link-name"><div class="wf-title-med">Alpha</div></div>
			<div class="match-header-link-name"><div class="wf-title-med">Beta</div></div>
		</div>
		<div class="vm-stats-game" data-game-id="all"></div>
		<div class="vm-stats-game" data-game-id="1">
			<div class="team"><div class="score">13</div></div>
			<div class="team"><div class="score">7</div></div>
			<div class="vlr-rounds-row-col" title="1-0">
				<div class="rnd-sq mod-win mod-t"><img src="/img/vlr/game/round/elim.webp"></div>
				<div class="rnd-sq"></div>
			</div>
		</div>
	</body></html>`

	d := ParseDetail(parseHTML(t, html), "43", "", "https://example.test")
	if len(d.Maps) != 1 {
		t.Fatalf("expected the nameless block to be kept, got %d maps", len(d.Maps))
	}
	m := d.Maps[0]
	if m.Name != UnknownMap {
		t.Errorf("expected %q, got %q", UnknownMap, m.Name)
	}
	if m.Team1Score != 13 || m.Team2Score != 7 {
		t.Errorf("expected 13-7, got %d-%d", m.Team1Score, m.Team2Score)
	}
	if len(m.Rounds) != 1 || m.Rounds[0].Winner == nil || *m.Rounds[0].Winner != match.SideTeam1 {
		t.Errorf("expected one round won by team1, got %+v", m.Rounds)
	}
}

func TestParseDetail_NoMaps(t *testing.T) {
	html := `<html><head><title>Alpha vs. Beta - Some Cup</title></head><body>
		<div class="match-header">
			<div class="match-header-link-name"><div class="wf-title-med">Alpha</div></div>
			<div class="match-header-vs-score"><div class="match-header-vs-note">Bo1</div></div>
			<div class="match-header-link-name"><div class="wf-title-med">Beta</div></div>
		</div>
		<div class="vm-stats-game" data-game-id="all"></div>
	</body></html>`

	d := ParseDetail(parseHTML(t, html), "42", "https://example.test/42", "https://example.test")
	if d == nil {
		t.Fatal("expected a detail record")
	}
	if d.Maps == nil || len(d.Maps) != 0 {
		t.Errorf("expected empty map list, got %v", d.Maps)
	}
	if d.Status != match.StatusUpcoming {
		t.Errorf("expected upcoming, got %s", d.Status)
	}
	if d.Format != match.FormatBo1 {
		t.Errorf("expected Bo1, got %s", d.Format)
	}
	if d.Tournament != "Alpha vs. Beta" {
		t.Errorf("expected title fallback, got %q", d.Tournament)
	}
	if d.PlayersLowConfidence {
		t.Error("no player lines should not be flagged")
	}
}

func TestParseDetail_LiveMarker(t *testing.T) {
	html := `<html><body><div class="match-header">
		<div class="match-header-vs-score">
			<div class="match-header-vs-note mod-live">live</div>
			<div class="js-spoiler">0</div><div class="js-spoiler">1</div>
		</div>
	</div></body></html>`

	d := ParseDetail(parseHTML(t, html), "1", "", DefaultBaseURL)
	if d.Status != match.StatusLive {
		t.Errorf("expected live, got %s", d.Status)
	}
	if d.Team1Score != 0 || d.Team2Score != 1 {
		t.Errorf("expected 0-1, got %d-%d", d.Team1Score, d.Team2Score)
	}
	if d.Tournament != UnknownTournament {
		t.Errorf("expected %q, got %q", UnknownTournament, d.Tournament)
	}
}

func TestCanonicalMapName(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"Ascent", "Ascent"},
		{"ascent", "Ascent"},
		{"Map 2: Icebox", "Icebox"},
		{"Drift", "Drift"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := canonicalMapName(tt.text); got != tt.expected {
				t.Errorf("canonicalMapName(%q) = %q, expected %q", tt.text, got, tt.expected)
			}
		})
	}
}

func TestWinMethod(t *testing.T) {
	tests := []struct {
		src      string
		expected match.WinMethod
	}{
		{"/img/vlr/game/round/elim.webp", match.WinElimination},
		{"/img/vlr/game/round/defuse.webp", match.WinBomb},
		{"/img/vlr/game/round/boom.webp", match.WinBomb},
		{"/img/vlr/game/round/time.webp?v=2", match.WinTime},
		{"/img/vlr/game/round/other.webp", match.WinUnknown},
		{"", match.WinUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := winMethod(tt.src); got != tt.expected {
				t.Errorf("winMethod(%q) = %s, expected %s", tt.src, got, tt.expected)
			}
		})
	}
}

func TestRoundsWithoutWinner(t *testing.T) {
	html := `<div class="vm-stats-game">
		<div class="vlr-rounds-row-col" title="0-0"><div class="rnd-sq"></div><div class="rnd-sq"></div></div>
	</div>`
	rounds := parseRounds(parseHTML(t, html).Find(".vm-stats-game"))
	if len(rounds) != 1 {
		t.Fatalf("expected 1 round, got %d", len(rounds))
	}
	if rounds[0].Winner != nil || rounds[0].Method != match.WinUnknown {
		t.Errorf("expected no winner and unknown method, got %+v", rounds[0])
	}
}
