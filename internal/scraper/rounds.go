package scraper

import (
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/vlr-matches/internal/match"
	"github.com/pfrederiksen/vlr-matches/internal/normalize"
)

// KnownMaps is the competitive map pool recognised in map headers
var KnownMaps = []string{
	"Abyss", "Ascent", "Bind", "Breeze", "Corrode", "Fracture",
	"Haven", "Icebox", "Lotus", "Pearl", "Split", "Sunset",
}

var knownMapIndex = func() map[string]string {
	idx := make(map[string]string, len(KnownMaps))
	for _, m := range KnownMaps {
		idx[strings.ToLower(m)] = m
	}
	return idx
}()

var (
	mapName = cascade{
		".map",
		".map-name",
		`[class*="map"]`,
	}
	mapScores = cascade{
		".vm-stats-game-header .team .score",
		".team .score",
		".score",
	}
	mapAgents = cascade{
		`img[src*="agent"]`,
		".mod-agents img",
	}
	mapRounds = cascade{
		".vlr-rounds-row-col[title]",
		".vlr-rounds-row-col",
	}

	roundTitlePattern = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)
)

// UnknownMap names a map block whose header cannot be read
const UnknownMap = "Unknown Map"

// parseMap reads one map block. Only the all-maps summary block is rejected;
// a block without a readable name is kept as UnknownMap.
func parseMap(game *goquery.Selection) (match.MapResult, bool) {
	if game.AttrOr("data-game-id", "") == "all" {
		return match.MapResult{}, false
	}
	name := canonicalMapName(rawMapName(game))
	if name == "" {
		name = UnknownMap
	}

	m := match.MapResult{
		Name:   name,
		Agents: agentsOf(game),
		Rounds: parseRounds(game),
	}
	scores := mapScores.texts(game, 2, nil)
	if len(scores) > 0 {
		m.Team1Score = normalize.ParseInt(scores[0])
	}
	if len(scores) > 1 {
		m.Team2Score = normalize.ParseInt(scores[1])
	}
	return m, true
}

func rawMapName(game *goquery.Selection) string {
	if span := game.Find(".map > div > span").First(); span.Length() > 0 {
		if own := normalize.CleanText(ownText(span)); own != "" {
			return own
		}
	}
	return normalize.CleanText(mapName.text(game))
}

// canonicalMapName returns the first known map named in text, or its first
// word when none is recognised.
func canonicalMapName(text string) string {
	words := strings.Fields(text)
	for _, w := range words {
		if known, ok := knownMapIndex[strings.ToLower(strings.Trim(w, ".,:;()"))]; ok {
			return known
		}
	}
	if len(words) == 0 {
		return ""
	}
	return words[0]
}

// agentsOf lists agent names from icon filenames, first appearance first
func agentsOf(game *goquery.Selection) []string {
	agents := make([]string, 0)
	seen := make(map[string]bool)
	mapAgents.selection(game).Each(func(_ int, img *goquery.Selection) {
		name := fileStem(img.AttrOr("src", ""))
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		agents = append(agents, name)
	})
	return agents
}

func fileStem(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	base := path.Base(src)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// parseRounds numbers round columns by position. Columns without round
// squares (team labels, spacers) are not rounds.
func parseRounds(game *goquery.Selection) []match.RoundResult {
	var rounds []match.RoundResult
	mapRounds.selection(game).Each(func(_ int, col *goquery.Selection) {
		if col.Find(".rnd-sq").Length() == 0 {
			return
		}
		number := len(rounds) + 1
		r := match.RoundResult{
			Number: number,
			Method: match.WinUnknown,
			Type:   match.ClassifyRound(number),
		}
		if winner, ok := roundWinner(col); ok {
			r.Winner = &winner
			r.Method = winMethod(col.Find(".rnd-sq.mod-win img").AttrOr("src", ""))
		}
		if m := roundTitlePattern.FindStringSubmatch(strings.TrimSpace(col.AttrOr("title", ""))); m != nil {
			s1, s2 := normalize.ParseInt(m[1]), normalize.ParseInt(m[2])
			r.Team1Score, r.Team2Score = &s1, &s2
		}
		rounds = append(rounds, r)
	})
	return rounds
}

// roundWinner maps the attacker-side win marker to team1 and the
// defender-side marker to team2
func roundWinner(col *goquery.Selection) (match.Side, bool) {
	switch {
	case col.Find(".rnd-sq.mod-win.mod-t").Length() > 0:
		return match.SideTeam1, true
	case col.Find(".rnd-sq.mod-win.mod-ct").Length() > 0:
		return match.SideTeam2, true
	}
	return "", false
}

func winMethod(src string) match.WinMethod {
	icon := strings.ToLower(fileStem(src))
	switch {
	case strings.Contains(icon, "elim"):
		return match.WinElimination
	case strings.Contains(icon, "defuse"), strings.Contains(icon, "boom"), strings.Contains(icon, "bomb"):
		return match.WinBomb
	case strings.Contains(icon, "time"):
		return match.WinTime
	}
	return match.WinUnknown
}
