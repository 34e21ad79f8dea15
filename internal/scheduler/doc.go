// Package scheduler triggers scrape cycles on a cron schedule, plus once
// shortly after startup.
package scheduler
