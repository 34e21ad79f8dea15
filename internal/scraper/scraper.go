package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/vlr-matches/internal/logger"
	"github.com/pfrederiksen/vlr-matches/internal/match"
	"github.com/pfrederiksen/vlr-matches/internal/normalize"
)

// DefaultBaseURL is the site root all listing and match paths hang off
const DefaultBaseURL = "https://www.vlr.gg"

// ErrInvalidID is returned for match ids that are not numeric
var ErrInvalidID = errors.New("invalid match id")

// Fetcher retrieves and parses a page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Category selects a listing page
type Category string

const (
	CategoryUpcoming Category = "upcoming"
	CategoryLive     Category = "live"
	CategoryResults  Category = "results"
	CategoryAll      Category = "all"
)

// ParseCategory accepts a category name; "completed" is an alias for results
// and an empty string means all.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return CategoryAll, nil
	case "upcoming":
		return CategoryUpcoming, nil
	case "live":
		return CategoryLive, nil
	case "results", "completed":
		return CategoryResults, nil
	}
	return "", fmt.Errorf("unknown category %q (use upcoming, live, results or all)", s)
}

// Path returns the listing path for the category
func (c Category) Path() string {
	if c == CategoryResults {
		return "/matches/results"
	}
	return "/matches/"
}

// Scraper fetches vlr.gg pages and extracts match records from them
type Scraper struct {
	fetcher Fetcher
	baseURL string
	now     func() time.Time
	players PlayerStatsParser
	log     *logger.Logger
}

// Option configures a Scraper
type Option func(*Scraper)

// WithBaseURL points the scraper at another site root
func WithBaseURL(base string) Option {
	return func(s *Scraper) { s.baseURL = strings.TrimRight(base, "/") }
}

// WithClock sets the time source used for relative listing times
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// WithPlayerParser replaces the positional player stats parser
func WithPlayerParser(p PlayerStatsParser) Option {
	return func(s *Scraper) { s.players = p }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Scraper) { s.log = l }
}

// New creates a Scraper around f
func New(f Fetcher, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher: f,
		baseURL: DefaultBaseURL,
		now:     time.Now,
		players: PositionalParser{},
		log:     logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseURL returns the site root in use
func (s *Scraper) BaseURL() string {
	return s.baseURL
}

// ListingURL returns the absolute listing URL for a category
func (s *Scraper) ListingURL(c Category) string {
	return s.baseURL + c.Path()
}

// DetailURL returns the absolute match page URL for an id
func (s *Scraper) DetailURL(id string) string {
	return s.baseURL + "/" + id
}

// ListMatches fetches a listing page and extracts its summaries. The live
// category keeps only matches currently in progress.
func (s *Scraper) ListMatches(ctx context.Context, c Category) ([]match.Summary, error) {
	url := s.ListingURL(c)
	doc, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c, err)
	}

	summaries := ParseListing(doc, s.baseURL, s.now())
	if c == CategoryLive {
		live := summaries[:0]
		for _, m := range summaries {
			if m.Status == match.StatusLive {
				live = append(live, m)
			}
		}
		summaries = live
	}

	s.log.Debug("Parsed listing", logger.Fields{
		"category": string(c),
		"url":      url,
		"matches":  len(summaries),
	})
	return summaries, nil
}

// GetMatchDetail fetches and extracts one match page
func (s *Scraper) GetMatchDetail(ctx context.Context, id string) (*match.Detail, error) {
	id = strings.TrimSpace(id)
	if id == "" || normalize.ParseInt(id) <= 0 || strings.TrimLeft(id, "0123456789") != "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	url := s.DetailURL(id)
	doc, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", id, err)
	}

	d := parseDetail(doc, id, url, s.baseURL, s.players)
	s.log.Debug("Parsed match detail", logger.Fields{
		"match_id": id,
		"maps":     len(d.Maps),
		"players":  len(d.Players),
	})
	return d, nil
}
