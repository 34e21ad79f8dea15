package scraper

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/vlr-matches/internal/match"
	"github.com/pfrederiksen/vlr-matches/internal/normalize"
)

// UnknownTournament names matches whose event could not be read
const UnknownTournament = "Unknown Tournament"

const listingContainers = "a.wf-module-item, a.match-item"

var (
	listingTeams = cascade{
		".match-item-vs-team-name .text-of",
		".match-item-vs-team-name",
		`.match-item-vs-team .text-of, [class*="team"]`,
	}
	listingScores = cascade{
		".match-item-vs-team-score",
		".score",
		`[class*="score"]`,
	}
	listingStatus = cascade{
		".match-item-eta",
		".ml-status",
		".match-item-time",
		".time",
		`[class*="time"]`,
		`[class*="live"]`,
	}
	listingTournament = cascade{
		".match-item-event",
		".event",
		`[class*="event"]`,
		".tournament",
	}
	listingStage = cascade{
		".match-item-event-series",
		".series",
		`[class*="series"]`,
	}
	listingTime = cascade{
		".ml-eta",
		".match-item-eta",
		".match-item-time",
		".time",
	}
)

// ParseListing extracts one summary per match container, in document order.
// Containers without a recognisable match id are skipped.
func ParseListing(doc *goquery.Document, base string, now time.Time) []match.Summary {
	summaries := make([]match.Summary, 0)
	doc.Find(listingContainers).Each(func(_ int, container *goquery.Selection) {
		if s, ok := parseListingItem(container, base, now); ok {
			summaries = append(summaries, s)
		}
	})
	return summaries
}

func parseListingItem(container *goquery.Selection, base string, now time.Time) (match.Summary, bool) {
	href := container.AttrOr("href", "")
	id := normalize.ExtractMatchID(href)
	if id == "" {
		return match.Summary{}, false
	}

	s := match.Summary{
		ExternalID: id,
		URL:        normalize.ResolveURL(href, base),
		Format:     match.DetectFormat(container.Text()),
	}

	names := listingTeams.names(container, 2, isTeamName)
	if len(names) > 0 {
		s.Team1Name = normalize.CollapseSpace(names[0])
	}
	if len(names) > 1 {
		s.Team2Name = normalize.CollapseSpace(names[1])
	}

	scores := listingScores.texts(container, 2, nil)
	if len(scores) > 0 {
		s.Team1Score = normalize.ParseInt(scores[0])
	}
	if len(scores) > 1 {
		s.Team2Score = normalize.ParseInt(scores[1])
	}

	s.Status = match.InferStatus(isLive(container, listingStatus.text(container)), s.Team1Score, s.Team2Score)
	s.Tournament = tournamentName(container)
	s.TournamentLogoURL = normalize.ResolveURL(container.Find(".match-item-icon img").AttrOr("src", ""), base)
	s.Stage = normalize.CollapseSpace(listingStage.text(container))

	if t, ok := normalize.ParseRelativeTime(listingTime.text(container), now); ok {
		s.Time = &t
	}

	return s, true
}

// isTeamName filters placeholder and separator text out of team candidates
func isTeamName(text string) bool {
	name := normalize.CollapseSpace(text)
	if name == "" || normalize.IsPlaceholder(name) {
		return false
	}
	for _, word := range strings.Fields(strings.ToLower(name)) {
		if word == "vs" || word == "vs." {
			return false
		}
	}
	return true
}

func isLive(container *goquery.Selection, statusText string) bool {
	if container.Find(".ml.mod-live, .mod-live").Length() > 0 {
		return true
	}
	return strings.Contains(strings.ToLower(statusText), "live")
}

// tournamentName reads the event label, leaving out the nested series text
func tournamentName(container *goquery.Selection) string {
	for _, sel := range listingTournament {
		el := container.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		trimmed := el.Clone()
		trimmed.Find(".match-item-event-series").Remove()
		if name := normalize.CleanText(trimmed.Text()); name != "" {
			return name
		}
		if name := normalize.CleanText(el.Text()); name != "" {
			return name
		}
	}
	return UnknownTournament
}
