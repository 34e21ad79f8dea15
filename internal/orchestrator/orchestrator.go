package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pfrederiksen/vlr-matches/internal/logger"
	"github.com/pfrederiksen/vlr-matches/internal/match"
	"github.com/pfrederiksen/vlr-matches/internal/scraper"
	"github.com/pfrederiksen/vlr-matches/internal/storage"
)

var (
	// ErrCycleRunning is returned when a cycle is requested while one is in progress
	ErrCycleRunning = errors.New("scrape cycle already running")

	// ErrAllListingsFailed is returned when no listing category could be fetched
	ErrAllListingsFailed = errors.New("all listing pages failed")
)

// State is the lifecycle position of the orchestrator
type State string

const (
	StateIdle           State = "idle"
	StateRunning        State = "running"
	StateSuccess        State = "success"
	StatePartialFailure State = "partial_failure"
	StateFailed         State = "failed"
)

// DefaultCategories are the listing pages read by every cycle
var DefaultCategories = []scraper.Category{
	scraper.CategoryUpcoming,
	scraper.CategoryLive,
	scraper.CategoryResults,
}

// Source provides listing and match page data
type Source interface {
	ListMatches(ctx context.Context, c scraper.Category) ([]match.Summary, error)
	GetMatchDetail(ctx context.Context, id string) (*match.Detail, error)
	ListingURL(c scraper.Category) string
}

// Store persists cycle results
type Store interface {
	UpsertMatch(ctx context.Context, d *match.Detail) (*match.Match, bool, error)
	GetMatchByExternalID(ctx context.Context, externalID string) (*match.Match, error)
	LogScrape(ctx context.Context, entry match.ScrapeLogEntry) (*match.ScrapeLogEntry, error)
	MergeNearDuplicates(ctx context.Context) (storage.MergeReport, error)
	Stats(ctx context.Context) (*storage.Stats, error)
}

// Summary reports the outcome of one cycle
type Summary struct {
	Success        bool                 `json:"success"`
	Scraped        int                  `json:"matches_scraped"`
	Updated        int                  `json:"matches_updated"`
	NewTeams       int                  `json:"new_teams"`
	NewTournaments int                  `json:"new_tournaments"`
	Errors         []string             `json:"errors"`
	DurationMS     int64                `json:"duration_ms"`
	State          State                `json:"state"`
	Merge          *storage.MergeReport `json:"merge,omitempty"`
}

// Orchestrator coordinates the scraper and the store
type Orchestrator struct {
	source     Source
	store      Store
	log        *logger.Logger
	categories []scraper.Category
	mergeAfter bool
	now        func() time.Time

	running atomic.Bool

	mu      sync.RWMutex
	state   State
	last    *Summary
	lastRun time.Time
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithCategories replaces the listing categories read per cycle
func WithCategories(categories ...scraper.Category) Option {
	return func(o *Orchestrator) { o.categories = categories }
}

// WithMergeAfterCycle runs the near-duplicate merge after every cycle
func WithMergeAfterCycle(enabled bool) Option {
	return func(o *Orchestrator) { o.mergeAfter = enabled }
}

// WithClock sets the time source used for durations
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator
func New(source Source, store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:     source,
		store:      store,
		log:        logger.Default(),
		categories: DefaultCategories,
		mergeAfter: true,
		now:        time.Now,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// IsRunning reports whether a cycle is in progress
func (o *Orchestrator) IsRunning() bool {
	return o.running.Load()
}

// LastSummary returns the summary of the most recent finished cycle and when
// it started, or nil when no cycle has finished
func (o *Orchestrator) LastSummary() (*Summary, time.Time) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last, o.lastRun
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) finish(summary *Summary, started time.Time) {
	summary.DurationMS = o.now().Sub(started).Milliseconds()
	o.mu.Lock()
	o.state = summary.State
	o.last = summary
	o.lastRun = started
	o.mu.Unlock()

	logger.RecordTiming("cycle.duration", time.Duration(summary.DurationMS)*time.Millisecond)
	logger.AddCounter("cycle.matches_scraped", int64(summary.Scraped))
	logger.AddCounter("cycle.matches_updated", int64(summary.Updated))
	logger.AddCounter("cycle.errors", int64(len(summary.Errors)))
}

// RunCycle performs one full scrape. It always returns a summary; the error
// is non-nil only when the cycle could not run or was aborted.
func (o *Orchestrator) RunCycle(ctx context.Context) (*Summary, error) {
	return o.RunCategories(ctx, o.categories...)
}

// listingPlan keeps one category per listing page. Live is a filtered view
// of the upcoming page, so it gives way to any unfiltered category that reads
// the same URL.
func (o *Orchestrator) listingPlan(categories []scraper.Category) []scraper.Category {
	plan := make([]scraper.Category, 0, len(categories))
	slot := make(map[string]int, len(categories))
	for _, c := range categories {
		url := o.source.ListingURL(c)
		i, seen := slot[url]
		if !seen {
			slot[url] = len(plan)
			plan = append(plan, c)
			continue
		}
		if plan[i] == scraper.CategoryLive && c != scraper.CategoryLive {
			plan[i] = c
		}
	}
	return plan
}

// RunCategories performs a cycle restricted to the given listing categories.
// It shares the single-flight guard with RunCycle.
func (o *Orchestrator) RunCategories(ctx context.Context, categories ...scraper.Category) (*Summary, error) {
	if !o.running.CompareAndSwap(false, true) {
		return &Summary{
			Success: false,
			Errors:  []string{ErrCycleRunning.Error()},
			State:   StateRunning,
		}, ErrCycleRunning
	}
	defer o.running.Store(false)

	started := o.now()
	o.setState(StateRunning)
	logger.IncrCounter("cycle.runs")
	o.log.Info("Scrape cycle started", logger.Fields{"categories": len(categories)})
	o.audit(ctx, match.ScrapeLogEntry{Category: "cycle", Outcome: match.OutcomeInProgress})

	summary := &Summary{Errors: make([]string, 0)}
	before := o.counts(ctx)

	categories = o.listingPlan(categories)
	var listed []match.Summary
	failed := 0
	for _, c := range categories {
		entry := match.ScrapeLogEntry{Category: string(c), URL: o.source.ListingURL(c)}
		items, err := o.source.ListMatches(ctx, c)
		if err != nil {
			failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("listing %s: %v", c, err))
			entry.Outcome = match.OutcomeError
			entry.Error = err.Error()
		} else {
			entry.Outcome = match.OutcomeSuccess
			entry.Found = len(items)
			listed = append(listed, items...)
		}
		o.audit(ctx, entry)
	}

	if len(categories) > 0 && failed == len(categories) {
		summary.State = StateFailed
		o.finish(summary, started)
		o.audit(ctx, match.ScrapeLogEntry{Category: "cycle", Outcome: match.OutcomeError, Error: ErrAllListingsFailed.Error()})
		o.log.Error("Scrape cycle aborted", logger.Fields{"errors": len(summary.Errors)}, ErrAllListingsFailed)
		return summary, ErrAllListingsFailed
	}

	unique := match.Dedupe(listed)
	for _, item := range unique {
		o.processMatch(ctx, item, summary)
	}

	if o.mergeAfter {
		report, err := o.store.MergeNearDuplicates(ctx)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("merge: %v", err))
		} else {
			summary.Merge = &report
		}
	}

	if after := o.counts(ctx); before != nil && after != nil {
		summary.NewTeams = max(after.Teams-before.Teams, 0)
		summary.NewTournaments = max(after.Tournaments-before.Tournaments, 0)
	}

	summary.Success = len(summary.Errors) == 0
	summary.State = StateSuccess
	if !summary.Success {
		summary.State = StatePartialFailure
	}
	o.finish(summary, started)

	end := match.ScrapeLogEntry{Category: "cycle", Outcome: match.OutcomeSuccess, Found: len(unique)}
	if !summary.Success {
		end.Outcome = match.OutcomeError
		end.Error = fmt.Sprintf("%d errors", len(summary.Errors))
	}
	o.audit(ctx, end)

	o.log.Info("Scrape cycle finished", logger.Fields{
		"state":       string(summary.State),
		"matches":     len(unique),
		"scraped":     summary.Scraped,
		"updated":     summary.Updated,
		"errors":      len(summary.Errors),
		"duration_ms": summary.DurationMS,
	})
	return summary, nil
}

// processMatch fetches one match page and upserts it. When the page cannot
// be fetched the listing data is stored instead and the failure is recorded.
func (o *Orchestrator) processMatch(ctx context.Context, item match.Summary, summary *Summary) {
	record, err := o.source.GetMatchDetail(ctx, item.ExternalID)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("match %s: %v", item.ExternalID, err))
		record = &match.Detail{Summary: item}
	} else {
		fillFromListing(record, item)
	}

	previous, err := o.store.GetMatchByExternalID(ctx, item.ExternalID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		o.log.Warn("Reading stored match failed", logger.Fields{"match_id": item.ExternalID, "error": err.Error()})
	}

	_, created, err := o.store.UpsertMatch(ctx, record)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("saving match %s: %v", item.ExternalID, err))
		return
	}
	if created {
		summary.Scraped++
	} else {
		summary.Updated++
	}

	for _, c := range match.DetectChanges(previous, &record.Summary) {
		if c.ChangeType == "new" {
			continue
		}
		o.log.Info("Match changed", logger.Fields{
			"match_id": c.ExternalID,
			"change":   c.ChangeType,
			"old":      c.OldValue,
			"new":      c.NewValue,
		})
	}
}

// fillFromListing copies listing fields the match page did not provide
func fillFromListing(d *match.Detail, item match.Summary) {
	if d.Team1Name == "" {
		d.Team1Name = item.Team1Name
	}
	if d.Team2Name == "" {
		d.Team2Name = item.Team2Name
	}
	if d.Tournament == "" || d.Tournament == scraper.UnknownTournament {
		if item.Tournament != "" {
			d.Tournament = item.Tournament
		}
	}
	if d.TournamentLogoURL == "" {
		d.TournamentLogoURL = item.TournamentLogoURL
	}
	if d.Stage == "" {
		d.Stage = item.Stage
	}
	if d.Time == nil {
		d.Time = item.Time
	}
	if d.URL == "" {
		d.URL = item.URL
	}
}

// ListMatches reads one listing category without persisting it
func (o *Orchestrator) ListMatches(ctx context.Context, c scraper.Category) ([]match.Summary, error) {
	items, err := o.source.ListMatches(ctx, c)
	if err != nil {
		return nil, err
	}
	return match.Dedupe(items), nil
}

// GetMatchDetail fetches one match page and stores it. A storage failure is
// logged; the fetched detail is still returned.
func (o *Orchestrator) GetMatchDetail(ctx context.Context, id string) (*match.Detail, error) {
	d, err := o.source.GetMatchDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, _, err := o.store.UpsertMatch(ctx, d); err != nil {
		o.log.Warn("Saving match detail failed", logger.Fields{"match_id": id, "error": err.Error()})
	}
	return d, nil
}

func (o *Orchestrator) audit(ctx context.Context, entry match.ScrapeLogEntry) {
	if _, err := o.store.LogScrape(ctx, entry); err != nil {
		o.log.Warn("Writing scrape log failed", logger.Fields{"category": entry.Category, "error": err.Error()})
	}
}

func (o *Orchestrator) counts(ctx context.Context) *storage.Stats {
	st, err := o.store.Stats(ctx)
	if err != nil {
		return nil
	}
	return st
}
