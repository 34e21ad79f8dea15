package scraper

import (
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/vlr-matches/internal/match"
	"github.com/pfrederiksen/vlr-matches/internal/normalize"
)

// PlayerStatsParser extracts per-player lines from a match page. The
// boolean result reports whether the lines were inferred from unlabelled
// values and should be treated as approximate.
type PlayerStatsParser interface {
	ParsePlayers(root *goquery.Selection, mapsPlayed int) ([]match.PlayerStatLine, bool)
}

// PositionalParser reads the first six numbers of each player row as
// kills, deaths, assists, combat score, an ignored column and damage.
type PositionalParser struct{}

const maxPositionalStats = 6

var (
	playerTables = cascade{
		`.vm-stats-game[data-game-id="all"] table`,
		".vm-stats-game table",
		"table.wf-table-inset",
	}
	playerName = cascade{
		".mod-player .text-of",
		".mod-player a",
		".mod-player",
	}

	statNumberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ParsePlayers implements PlayerStatsParser
func (PositionalParser) ParsePlayers(root *goquery.Selection, mapsPlayed int) ([]match.PlayerStatLine, bool) {
	var lines []match.PlayerStatLine
	tables := playerTables.selection(root)
	tables.Slice(0, min(2, tables.Length())).Each(func(i int, table *goquery.Selection) {
		side := match.SideTeam1
		if i == 1 {
			side = match.SideTeam2
		}
		rows := table.Find("tbody tr")
		if rows.Length() == 0 {
			rows = table.Find("tr")
		}
		rows.Each(func(_ int, row *goquery.Selection) {
			if line, ok := parsePlayerRow(row, side, mapsPlayed); ok {
				lines = append(lines, line)
			}
		})
	})
	return lines, true
}

func parsePlayerRow(row *goquery.Selection, side match.Side, mapsPlayed int) (match.PlayerStatLine, bool) {
	name := normalize.CleanText(playerName.text(row))
	if name == "" {
		return match.PlayerStatLine{}, false
	}

	line := match.PlayerStatLine{
		Name:       name,
		Side:       side,
		MapsPlayed: mapsPlayed,
	}
	if img := row.Find(".mod-agents img").First(); img.Length() > 0 {
		line.Agent = img.AttrOr("title", "")
		if line.Agent == "" {
			line.Agent = fileStem(img.AttrOr("src", ""))
		}
	}

	nums := rowNumbers(row)
	at := func(i int) int {
		if i < len(nums) {
			return nums[i]
		}
		return 0
	}
	line.Kills = at(0)
	line.Deaths = at(1)
	line.Assists = at(2)
	line.ACS = at(3)
	line.ADR = at(5)
	line.KDRatio = match.KDRatio(line.Kills, line.Deaths)
	return line, true
}

// rowNumbers takes the leading number of each stat cell, up to six
func rowNumbers(row *goquery.Selection) []int {
	cells := row.Find("td.mod-stat")
	if cells.Length() == 0 {
		all := row.Find("td")
		cells = all.Slice(min(2, all.Length()), goquery.ToEnd)
	}
	var nums []int
	cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		raw := statNumberPattern.FindString(cell.Text())
		if raw == "" {
			return true
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return true
		}
		nums = append(nums, int(f))
		return len(nums) < maxPositionalStats
	})
	return nums
}
