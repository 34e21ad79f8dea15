package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/vlr-matches/internal/normalize"
)

// cascade is an ordered list of selectors for one field. The first selector
// that yields a usable value wins; results are never combined.
type cascade []string

// text returns the first non-empty element text found by the cascade
func (c cascade) text(root *goquery.Selection) string {
	for _, sel := range c {
		var found string
		root.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			found = strings.TrimSpace(el.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// attr returns the first non-empty attribute value found by the cascade
func (c cascade) attr(root *goquery.Selection, name string) string {
	for _, sel := range c {
		var found string
		root.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			found = strings.TrimSpace(el.AttrOr(name, ""))
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// texts returns the accepted element texts of the first selector that yields
// at least want of them. When no selector reaches want, the first selector
// that produced anything is used.
func (c cascade) texts(root *goquery.Selection, want int, accept func(string) bool) []string {
	var partial []string
	for _, sel := range c {
		var found []string
		root.Find(sel).Each(func(_ int, el *goquery.Selection) {
			t := strings.TrimSpace(el.Text())
			if accept == nil || accept(t) {
				found = append(found, t)
			}
		})
		if len(found) >= want {
			return found
		}
		if partial == nil && len(found) > 0 {
			partial = found
		}
	}
	return partial
}

// names is texts with repeated values dropped within each selector's result,
// so nested matches of the same element count once.
func (c cascade) names(root *goquery.Selection, want int, accept func(string) bool) []string {
	var partial []string
	for _, sel := range c {
		var found []string
		seen := make(map[string]bool)
		root.Find(sel).Each(func(_ int, el *goquery.Selection) {
			t := normalize.CollapseSpace(el.Text())
			if seen[t] || (accept != nil && !accept(t)) {
				return
			}
			seen[t] = true
			found = append(found, t)
		})
		if len(found) >= want {
			return found
		}
		if partial == nil && len(found) > 0 {
			partial = found
		}
	}
	return partial
}

// selection returns the elements of the first selector that matches anything
func (c cascade) selection(root *goquery.Selection) *goquery.Selection {
	for _, sel := range c {
		if found := root.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return root.Slice(0, 0)
}

// ownText returns the text of sel's direct text nodes, ignoring child elements
func ownText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
			b.WriteString(" ")
		}
	})
	return strings.TrimSpace(b.String())
}

func nonEmpty(s string) bool {
	return s != ""
}
