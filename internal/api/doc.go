// Package api serves the stored and freshly scraped match data over HTTP.
//
// Routes live under /api and answer with a JSON envelope:
//
//	{"success": true, "data": ..., "message": "..."}
//	{"success": false, "error": "..."}
//
// Listing and single-match routes scrape live; /api/matches, /api/teams,
// /api/tournaments, /api/stats and /api/logs read the store. /api/calendar.ics
// renders stored matches as text/calendar rather than JSON.
package api
