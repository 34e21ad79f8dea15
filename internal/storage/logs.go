package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pfrederiksen/vlr-matches/internal/match"
)

// DefaultLogLimit bounds RecentScrapeLogs when no limit is given
const DefaultLogLimit = 50

// LogScrape appends an audit record. Entries are never updated.
func (s *Store) LogScrape(ctx context.Context, entry match.ScrapeLogEntry) (*match.ScrapeLogEntry, error) {
	if entry.Outcome == "" {
		entry.Outcome = match.OutcomeSuccess
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	err := s.queryRow(ctx, s.db, `
		INSERT INTO scraping_logs (scrape_type, url, status, error_message, matches_found, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, entry.Category, emptyToNull(entry.URL), string(entry.Outcome), emptyToNull(entry.Error),
		entry.Found, s.timeArg(entry.CreatedAt)).Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("writing scrape log: %w", err)
	}
	return &entry, nil
}

// RecentScrapeLogs returns the newest audit records first
func (s *Store) RecentScrapeLogs(ctx context.Context, limit int) ([]match.ScrapeLogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	rows, err := s.query(ctx, s.db, `
		SELECT id, scrape_type, url, status, error_message, matches_found, created_at
		FROM scraping_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scrape logs: %w", err)
	}
	defer rows.Close()

	entries := make([]match.ScrapeLogEntry, 0)
	for rows.Next() {
		var (
			e       match.ScrapeLogEntry
			url     sql.NullString
			outcome string
			errMsg  sql.NullString
			created scanTime
		)
		if err := rows.Scan(&e.ID, &e.Category, &url, &outcome, &errMsg, &e.Found, &created); err != nil {
			return nil, fmt.Errorf("reading scrape log: %w", err)
		}
		e.URL = url.String
		e.Outcome = match.ScrapeOutcome(outcome)
		e.Error = errMsg.String
		e.CreatedAt = created.Time
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
