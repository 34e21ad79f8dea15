// Package storage persists teams, tournaments, matches and scrape logs in a
// relational database.
//
// Two drivers are supported through database/sql: SQLite (modernc.org/sqlite,
// the default, a single file under ~/.local/share/vlr-matches/) and PostgreSQL
// (pgx). Queries are written once with "?" placeholders and rebound for
// PostgreSQL. Matches are keyed by their vlr.gg id and upserted; team and
// tournament rows are created on first sight and can later be merged when
// several rows differ only by whitespace or page artifacts.
package storage
