package scraper

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/vlr-matches/internal/match"
	"github.com/pfrederiksen/vlr-matches/internal/normalize"
)

// utcLayout is the format of the data-utc-ts attribute on match headers
const utcLayout = "2006-01-02 15:04:05"

var (
	detailSides = cascade{
		".match-header-vs-team .text-of",
		".match-header-link-name .wf-title-med",
		".match-header-vs-team",
		".match-header-link-name",
	}
	detailLogos = cascade{
		".match-header-vs-team img",
		".match-header-link img",
	}
	detailTournament = cascade{
		".match-header-event .text-of",
		".match-header-event div > div",
		".match-header-event",
	}
	detailStage = cascade{
		".match-header-event-series",
		".match-header-event .series",
	}
	detailStatus = cascade{
		".match-header-status",
		".match-header-vs-note",
	}
	detailMaps = cascade{
		`.vm-stats-game:not([data-game-id="all"])`,
		".vm-stats-game",
		".match-header-vs-map",
	}

	numericPattern   = regexp.MustCompile(`^\d+$`)
	scorePairPattern = regexp.MustCompile(`(\d+)\s*:\s*(\d+)`)
)

// ParseDetail extracts a match page using the positional player parser.
// It never fails; fields that cannot be read keep their zero value.
func ParseDetail(doc *goquery.Document, id, pageURL, base string) *match.Detail {
	return parseDetail(doc, id, pageURL, base, PositionalParser{})
}

func parseDetail(doc *goquery.Document, id, pageURL, base string, players PlayerStatsParser) *match.Detail {
	root := doc.Selection
	header := doc.Find(".match-header")
	if header.Length() == 0 {
		header = root
	}

	d := &match.Detail{
		Summary: match.Summary{
			ExternalID: id,
			URL:        pageURL,
		},
		Maps: make([]match.MapResult, 0),
	}

	names := detailSides.names(root, 2, isTeamName)
	if len(names) > 0 {
		d.Team1Name = normalize.CollapseSpace(names[0])
	}
	if len(names) > 1 {
		d.Team2Name = normalize.CollapseSpace(names[len(names)-1])
	}

	logos := detailLogos.selection(root)
	if logos.Length() > 0 {
		d.Team1LogoURL = normalize.ResolveURL(logos.First().AttrOr("src", ""), base)
	}
	if logos.Length() > 1 {
		d.Team2LogoURL = normalize.ResolveURL(logos.Last().AttrOr("src", ""), base)
	}

	d.Team1Score, d.Team2Score = detailScores(root)
	d.Tournament = detailTournamentName(doc)
	d.TournamentLogoURL = normalize.ResolveURL(root.Find(".match-header-event img").AttrOr("src", ""), base)

	notes := noteText(root)
	d.Format = match.DetectFormat(notes)
	d.Stage = detailStageLabel(root)
	d.Status = detailStatusOf(header, notes, d.Team1Score, d.Team2Score)

	if ts := root.Find(".moment-tz-convert[data-utc-ts]").First().AttrOr("data-utc-ts", ""); ts != "" {
		if t, err := time.ParseInLocation(utcLayout, ts, time.UTC); err == nil {
			d.Time = &t
		}
	}

	detailMaps.selection(root).Each(func(_ int, game *goquery.Selection) {
		if m, ok := parseMap(game); ok {
			d.Maps = append(d.Maps, m)
		}
	})

	lines, lowConfidence := players.ParsePlayers(root, len(d.Maps))
	d.Players = lines
	d.PlayersLowConfidence = lowConfidence && len(lines) > 0

	d.VODURL = normalize.ResolveURL(firstLink(root, "youtube", "youtu.be", "twitch"), base)
	d.StatsURL = normalize.ResolveURL(firstLink(root, "/stats", "rib.gg", "tracker"), base)

	return d
}

// detailScores tries the spoiler elements, then the score spans, then an
// "a:b" pair anywhere in the score block.
func detailScores(root *goquery.Selection) (int, int) {
	spoilers := cascade{".match-header-vs-score .js-spoiler"}.texts(root, 2, nil)
	if len(spoilers) >= 2 {
		return normalize.ParseInt(spoilers[0]), normalize.ParseInt(spoilers[len(spoilers)-1])
	}

	spans := cascade{".match-header-vs-score span"}.texts(root, 2, numericPattern.MatchString)
	if len(spans) >= 2 {
		return normalize.ParseInt(spans[0]), normalize.ParseInt(spans[len(spans)-1])
	}

	if m := scorePairPattern.FindStringSubmatch(root.Find(".match-header-vs-score").Text()); m != nil {
		return normalize.ParseInt(m[1]), normalize.ParseInt(m[2])
	}
	return 0, 0
}

func detailTournamentName(doc *goquery.Document) string {
	if name := normalize.CleanText(detailTournament.text(doc.Selection)); name != "" {
		return name
	}
	title := doc.Find("title").First().Text()
	if i := strings.IndexAny(title, "-|"); i >= 0 {
		title = title[:i]
	}
	if name := normalize.CleanText(title); name != "" {
		return name
	}
	return UnknownTournament
}

func noteText(root *goquery.Selection) string {
	var notes []string
	root.Find(".match-header-vs-note").Each(func(_ int, el *goquery.Selection) {
		if t := normalize.CollapseSpace(el.Text()); t != "" {
			notes = append(notes, t)
		}
	})
	return strings.Join(notes, " ")
}

// detailStageLabel prefers the event series line and falls back to the
// header notes that are not format or state markers.
func detailStageLabel(root *goquery.Selection) string {
	if stage := normalize.CollapseSpace(detailStage.text(root)); stage != "" {
		return stage
	}
	var parts []string
	root.Find(".match-header-vs-note").Each(func(_ int, el *goquery.Selection) {
		t := normalize.CollapseSpace(el.Text())
		switch strings.ToLower(t) {
		case "", "final", "live", "upcoming", "completed", "bo1", "bo3", "bo5":
			return
		}
		parts = append(parts, t)
	})
	return strings.Join(parts, " ")
}

func detailStatusOf(header *goquery.Selection, notes string, score1, score2 int) match.Status {
	if header.Find(".match-header-vs-note.mod-live, .mod-live").Length() > 0 {
		return match.StatusLive
	}
	lower := strings.ToLower(detailStatus.text(header) + " " + notes)
	if strings.Contains(lower, "live") {
		return match.StatusLive
	}
	if strings.Contains(lower, "final") || strings.Contains(lower, "completed") {
		return match.StatusCompleted
	}
	return match.InferStatus(false, score1, score2)
}

// firstLink returns the href of the first anchor outside site navigation
// whose href contains any of needles
func firstLink(root *goquery.Selection, needles ...string) string {
	var found string
	root.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if a.Closest("header, nav, .header").Length() > 0 {
			return true
		}
		href := a.AttrOr("href", "")
		lower := strings.ToLower(href)
		for _, n := range needles {
			if strings.Contains(lower, n) {
				found = href
				return false
			}
		}
		return true
	})
	return found
}
