// Package scraper turns vlr.gg listing and match pages into match records.
//
// Listing pages are parsed container by container into match.Summary values;
// a match page is parsed into a match.Detail with per-map scores, agents and
// rounds. Extraction is tolerant of markup drift: every field is read through
// an ordered list of selectors where the first non-empty result wins, and a
// field that cannot be found degrades to a default instead of failing the page.
// Only fetch failures surface as errors.
package scraper
