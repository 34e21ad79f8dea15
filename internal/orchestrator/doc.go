// Package orchestrator runs scrape cycles: it reads every listing category,
// fetches each distinct match page in turn and upserts the results into the
// store, keeping an audit trail of what was attempted. Only one cycle runs at
// a time; per-match failures are collected and reported without stopping the
// cycle.
package orchestrator
