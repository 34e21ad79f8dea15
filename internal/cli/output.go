package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/vlr-matches/internal/match"
	"github.com/pfrederiksen/vlr-matches/internal/orchestrator"
	"github.com/pfrederiksen/vlr-matches/internal/storage"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

const timeLayout = "2006-01-02 15:04 MST"

// WriteOutput writes v in the specified format
func WriteOutput(w io.Writer, v any, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, v)
	case FormatText:
		return writeText(w, v, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeText outputs v as human-readable text
func writeText(w io.Writer, v any, verbose bool) error {
	switch x := v.(type) {
	case []match.Summary:
		writeSummaries(w, x, verbose)
	case []match.Match:
		writeMatches(w, x, verbose)
	case *match.Detail:
		writeDetail(w, x, verbose)
	case *orchestrator.Summary:
		writeCycle(w, x, verbose)
	case []match.Team:
		if len(x) == 0 {
			fmt.Fprintln(w, "No teams stored.")
			return nil
		}
		for _, t := range x {
			fmt.Fprintf(w, "%5d  %s\n", t.ID, t.Name)
			if verbose && t.LogoURL != "" {
				fmt.Fprintf(w, "       Logo: %s\n", t.LogoURL)
			}
		}
		fmt.Fprintf(w, "\nTotal: %d teams\n", len(x))
	case []match.Tournament:
		if len(x) == 0 {
			fmt.Fprintln(w, "No tournaments stored.")
			return nil
		}
		for _, t := range x {
			fmt.Fprintf(w, "%5d  %s\n", t.ID, t.Name)
			if verbose && t.LogoURL != "" {
				fmt.Fprintf(w, "       Logo: %s\n", t.LogoURL)
			}
		}
		fmt.Fprintf(w, "\nTotal: %d tournaments\n", len(x))
	case []match.ScrapeLogEntry:
		writeLogs(w, x)
	case *storage.Stats:
		writeStats(w, x)
	case storage.MergeReport:
		writeMerge(w, x)
	default:
		return fmt.Errorf("no text output for %T", v)
	}
	return nil
}

func writeSummaries(w io.Writer, items []match.Summary, verbose bool) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return
	}
	for _, m := range items {
		fmt.Fprintf(w, "[%s] %s  %s %d-%d %s\n",
			m.ExternalID, statusLabel(m.Status), orDash(m.Team1Name), m.Team1Score, m.Team2Score, orDash(m.Team2Name))
		if verbose {
			fmt.Fprintf(w, "       Tournament: %s\n", orDash(m.Tournament))
			if m.Stage != "" {
				fmt.Fprintf(w, "       Stage: %s\n", m.Stage)
			}
			if m.Time != nil {
				fmt.Fprintf(w, "       Time: %s\n", m.Time.Format(timeLayout))
			}
			fmt.Fprintf(w, "       URL: %s\n", m.URL)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d matches\n", len(items))
}

func writeMatches(w io.Writer, items []match.Match, verbose bool) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No stored matches.")
		return
	}
	for _, m := range items {
		var team1, team2, tournament string
		if m.Team1 != nil {
			team1 = m.Team1.Name
		}
		if m.Team2 != nil {
			team2 = m.Team2.Name
		}
		if m.Tournament != nil {
			tournament = m.Tournament.Name
		}
		fmt.Fprintf(w, "[%s] %s  %s %d-%d %s\n",
			m.ExternalID, statusLabel(m.Status), orDash(team1), m.Team1Score, m.Team2Score, orDash(team2))
		if verbose {
			fmt.Fprintf(w, "       Tournament: %s\n", orDash(tournament))
			if m.Time != nil {
				fmt.Fprintf(w, "       Time: %s\n", m.Time.Format(timeLayout))
			}
			fmt.Fprintf(w, "       Updated: %s\n", m.UpdatedAt.Format(time.RFC3339))
		}
	}
	fmt.Fprintf(w, "\nTotal: %d matches\n", len(items))
}

func writeDetail(w io.Writer, d *match.Detail, verbose bool) {
	fmt.Fprintf(w, "%s vs %s\n", orDash(d.Team1Name), orDash(d.Team2Name))
	fmt.Fprintf(w, "  Status: %s  Score: %d-%d  Format: %s\n", d.Status, d.Team1Score, d.Team2Score, d.Format)
	fmt.Fprintf(w, "  Tournament: %s\n", orDash(d.Tournament))
	if d.Stage != "" {
		fmt.Fprintf(w, "  Stage: %s\n", d.Stage)
	}
	if d.Time != nil {
		fmt.Fprintf(w, "  Time: %s\n", d.Time.Format(timeLayout))
	}
	if d.VODURL != "" {
		fmt.Fprintf(w, "  VOD: %s\n", d.VODURL)
	}

	for i, m := range d.Maps {
		fmt.Fprintf(w, "\n  Map %d: %s %d-%d", i+1, m.Name, m.Team1Score, m.Team2Score)
		if len(m.Agents) > 0 {
			fmt.Fprintf(w, "  (%s)", strings.Join(m.Agents, ", "))
		}
		fmt.Fprintln(w)
		if !verbose {
			continue
		}
		for _, r := range m.Rounds {
			winner := "?"
			if r.Winner != nil {
				winner = string(*r.Winner)
			}
			fmt.Fprintf(w, "       R%-2d %-5s %s", r.Number, winner, r.Method)
			if r.Team1Score != nil && r.Team2Score != nil {
				fmt.Fprintf(w, "  %d-%d", *r.Team1Score, *r.Team2Score)
			}
			if r.Type != "" {
				fmt.Fprintf(w, "  %s", r.Type)
			}
			fmt.Fprintln(w)
		}
	}

	if verbose && len(d.Players) > 0 {
		fmt.Fprintln(w, "\n  Players:")
		if d.PlayersLowConfidence {
			fmt.Fprintln(w, "  (approximate, read from unlabelled columns)")
		}
		for _, p := range d.Players {
			fmt.Fprintf(w, "    %-5s %-16s %-10s %2d/%2d/%2d  KD %.2f  ACS %d\n",
				p.Side, p.Name, p.Agent, p.Kills, p.Deaths, p.Assists, p.KDRatio, p.ACS)
		}
	}
}

func writeCycle(w io.Writer, s *orchestrator.Summary, verbose bool) {
	fmt.Fprintf(w, "Scrape %s in %dms\n", s.State, s.DurationMS)
	fmt.Fprintf(w, "  New matches: %d\n", s.Scraped)
	fmt.Fprintf(w, "  Updated matches: %d\n", s.Updated)
	fmt.Fprintf(w, "  New teams: %d\n", s.NewTeams)
	fmt.Fprintf(w, "  New tournaments: %d\n", s.NewTournaments)
	if s.Merge != nil && s.Merge.Changed() {
		fmt.Fprintf(w, "  Merged: %d teams, %d tournaments\n", s.Merge.TeamsMerged, s.Merge.TournamentsMerged)
	}
	if len(s.Errors) == 0 {
		return
	}
	fmt.Fprintf(w, "  Errors: %d\n", len(s.Errors))
	if verbose {
		for _, e := range s.Errors {
			fmt.Fprintf(w, "    - %s\n", e)
		}
	}
}

func writeLogs(w io.Writer, logs []match.ScrapeLogEntry) {
	if len(logs) == 0 {
		fmt.Fprintln(w, "No scrape logs.")
		return
	}
	for _, l := range logs {
		fmt.Fprintf(w, "%s  %-9s %-11s found=%d", l.CreatedAt.Format(time.RFC3339), l.Category, l.Outcome, l.Found)
		if l.Error != "" {
			fmt.Fprintf(w, "  error=%s", l.Error)
		}
		fmt.Fprintln(w)
	}
}

func writeStats(w io.Writer, st *storage.Stats) {
	fmt.Fprintf(w, "Matches: %d (upcoming %d, live %d, completed %d)\n", st.TotalMatches, st.Upcoming, st.Live, st.Completed)
	fmt.Fprintf(w, "Teams: %d\n", st.Teams)
	fmt.Fprintf(w, "Tournaments: %d\n", st.Tournaments)
	if st.LastScrape != nil {
		fmt.Fprintf(w, "Last scrape: %s\n", st.LastScrape.Format(time.RFC3339))
	} else {
		fmt.Fprintln(w, "Last scrape: never")
	}
}

func writeMerge(w io.Writer, r storage.MergeReport) {
	if !r.Changed() {
		fmt.Fprintln(w, "No near-duplicates found.")
		return
	}
	fmt.Fprintf(w, "Teams: %d merged, %d renamed\n", r.TeamsMerged, r.TeamsRenamed)
	fmt.Fprintf(w, "Tournaments: %d merged, %d renamed\n", r.TournamentsMerged, r.TournamentsRenamed)
	fmt.Fprintf(w, "Dirty names: %d deleted, %d kept\n", r.DirtyDeleted, r.DirtyKept)
}

func statusLabel(s match.Status) string {
	switch s {
	case match.StatusLive:
		return "LIVE"
	case match.StatusCompleted:
		return "DONE"
	default:
		return "SOON"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
