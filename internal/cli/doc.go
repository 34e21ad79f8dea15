// Package cli implements the command-line interface for vlr-matches.
//
// The cli package provides the Cobra-based CLI: one-shot scrape cycles, live
// and stored match listings, single-match lookups, iCalendar export, store maintenance, and the
// long-running serve command that combines the HTTP API with the cron
// scheduler. Output is text or JSON; logs go to stderr.
package cli
