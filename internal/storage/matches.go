package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/vlr-matches/internal/logger"
	"github.com/pfrederiksen/vlr-matches/internal/match"
	"github.com/pfrederiksen/vlr-matches/internal/normalize"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

const matchSelect = `
	SELECT m.id, m.vlr_match_id, m.team1_id, m.team2_id, m.tournament_id,
		m.status, m.match_time, m.match_format, m.stage, m.team1_score, m.team2_score,
		m.match_url, m.vod_url, m.stats_url, m.maps_data, m.player_stats,
		m.created_at, m.updated_at,
		t1.name, t1.flag_url, t1.logo_url, t1.created_at,
		t2.name, t2.flag_url, t2.logo_url, t2.created_at,
		tr.name, tr.logo_url, tr.created_at
	FROM matches m
	LEFT JOIN teams t1 ON t1.id = m.team1_id
	LEFT JOIN teams t2 ON t2.id = m.team2_id
	LEFT JOIN tournaments tr ON tr.id = m.tournament_id`

// ListOptions filters and pages ListMatches
type ListOptions struct {
	Status match.Status
	Limit  int
	Offset int
}

// Stats summarises the stored data
type Stats struct {
	TotalMatches int        `json:"total_matches"`
	Upcoming     int        `json:"upcoming"`
	Live         int        `json:"live"`
	Completed    int        `json:"completed"`
	Teams        int        `json:"teams"`
	Tournaments  int        `json:"tournaments"`
	LastScrape   *time.Time `json:"last_scrape,omitempty"`
}

// UpsertMatch inserts or updates the match keyed by its external id in one
// transaction. Team and tournament references are resolved by name; a
// placeholder name leaves that reference unresolved. On update, status,
// scores and format always take the new values while time, stage, links,
// references and the map and player blobs are only replaced when the record
// carries them. The boolean result reports whether a row was created.
func (s *Store) UpsertMatch(ctx context.Context, d *match.Detail) (*match.Match, bool, error) {
	if d == nil || d.ExternalID == "" {
		return nil, false, errors.New("upserting match: missing external id")
	}

	status := d.Status
	if !status.Valid() {
		status = match.StatusUpcoming
	}
	format := d.Format
	if format == "" {
		format = match.FormatBo3
	}

	// An empty parse keeps whatever was stored before
	mapsArg, err := blobArg(len(d.Maps) > 0, d.Maps)
	if err != nil {
		return nil, false, fmt.Errorf("encoding maps for match %s: %w", d.ExternalID, err)
	}
	playersArg, err := blobArg(len(d.Players) > 0, d.Players)
	if err != nil {
		return nil, false, fmt.Errorf("encoding players for match %s: %w", d.ExternalID, err)
	}

	var (
		result  *match.Match
		created bool
	)
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		team1ID, err := s.resolveTeam(ctx, tx, d.Team1Name, d.Team1LogoURL)
		if err != nil {
			return err
		}
		team2ID, err := s.resolveTeam(ctx, tx, d.Team2Name, d.Team2LogoURL)
		if err != nil {
			return err
		}
		tournamentID, err := s.resolveTournament(ctx, tx, d.Tournament, d.TournamentLogoURL)
		if err != nil {
			return err
		}

		var id int64
		err = s.queryRow(ctx, tx, `SELECT id FROM matches WHERE vlr_match_id = ?`, d.ExternalID).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			created = true
			now := s.stamp()
			err = s.queryRow(ctx, tx, `
				INSERT INTO matches (
					vlr_match_id, team1_id, team2_id, tournament_id, status, match_time,
					match_format, stage, team1_score, team2_score, match_url, vod_url,
					stats_url, maps_data, player_stats, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				RETURNING id
			`, d.ExternalID, nullIntArg(team1ID), nullIntArg(team2ID), nullIntArg(tournamentID),
				string(status), s.optionalTimeArg(d.Time), string(format), emptyToNull(d.Stage),
				d.Team1Score, d.Team2Score, emptyToNull(d.URL), emptyToNull(d.VODURL),
				emptyToNull(d.StatsURL), mapsArg, playersArg, now, now).Scan(&id)
			if err != nil {
				return fmt.Errorf("inserting match %s: %w", d.ExternalID, err)
			}
		case err != nil:
			return fmt.Errorf("looking up match %s: %w", d.ExternalID, err)
		default:
			_, err = s.exec(ctx, tx, `
				UPDATE matches SET
					team1_id = COALESCE(?, team1_id),
					team2_id = COALESCE(?, team2_id),
					tournament_id = COALESCE(?, tournament_id),
					status = ?,
					match_time = COALESCE(?, match_time),
					match_format = ?,
					stage = COALESCE(?, stage),
					team1_score = ?,
					team2_score = ?,
					match_url = COALESCE(?, match_url),
					vod_url = COALESCE(?, vod_url),
					stats_url = COALESCE(?, stats_url),
					maps_data = COALESCE(?, maps_data),
					player_stats = COALESCE(?, player_stats),
					updated_at = ?
				WHERE id = ?
			`, nullIntArg(team1ID), nullIntArg(team2ID), nullIntArg(tournamentID),
				string(status), s.optionalTimeArg(d.Time), string(format), emptyToNull(d.Stage),
				d.Team1Score, d.Team2Score, emptyToNull(d.URL), emptyToNull(d.VODURL),
				emptyToNull(d.StatsURL), mapsArg, playersArg, s.stamp(), id)
			if err != nil {
				return fmt.Errorf("updating match %s: %w", d.ExternalID, err)
			}
		}

		result, err = s.getMatch(ctx, tx, "m.id = ?", id)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func (s *Store) resolveTeam(ctx context.Context, q querier, name, logoURL string) (*int64, error) {
	if normalize.IsPlaceholder(name) {
		return nil, nil
	}
	team, err := s.getOrCreateTeam(ctx, q, name, "", logoURL)
	if err != nil {
		return nil, err
	}
	return &team.ID, nil
}

func (s *Store) resolveTournament(ctx context.Context, q querier, name, logoURL string) (*int64, error) {
	if normalize.IsPlaceholder(name) {
		return nil, nil
	}
	t, err := s.getOrCreateTournament(ctx, q, name, logoURL)
	if err != nil {
		return nil, err
	}
	return &t.ID, nil
}

// GetMatchByExternalID returns the stored match with the given vlr.gg id
func (s *Store) GetMatchByExternalID(ctx context.Context, externalID string) (*match.Match, error) {
	return s.getMatch(ctx, s.db, "m.vlr_match_id = ?", externalID)
}

// GetMatch returns the stored match with the given row id
func (s *Store) GetMatch(ctx context.Context, id int64) (*match.Match, error) {
	return s.getMatch(ctx, s.db, "m.id = ?", id)
}

func (s *Store) getMatch(ctx context.Context, q querier, where string, arg any) (*match.Match, error) {
	m, err := scanMatch(s.queryRow(ctx, q, matchSelect+" WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading match %v: %w", arg, err)
	}
	return m, nil
}

// ListMatches returns one page of matches, most recent first, together with
// the total number of matches satisfying the filter
func (s *Store) ListMatches(ctx context.Context, opts ListOptions) ([]match.Match, int, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(opts.Offset, 0)

	where := ""
	var args []any
	if opts.Status != "" {
		where = " WHERE m.status = ?"
		args = append(args, string(opts.Status))
	}

	var total int
	if err := s.queryRow(ctx, s.db, "SELECT COUNT(*) FROM matches m"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting matches: %w", err)
	}

	rows, err := s.query(ctx, s.db,
		matchSelect+where+" ORDER BY m.match_time IS NULL, m.match_time DESC, m.id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	matches := make([]match.Match, 0, limit)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("reading match: %w", err)
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("listing matches: %w", err)
	}
	return matches, total, nil
}

// Stats counts matches by status along with teams and tournaments
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}

	rows, err := s.query(ctx, s.db, `SELECT status, COUNT(*) FROM matches GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting matches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("reading match counts: %w", err)
		}
		st.TotalMatches += n
		switch match.Status(status) {
		case match.StatusUpcoming:
			st.Upcoming = n
		case match.StatusLive:
			st.Live = n
		case match.StatusCompleted:
			st.Completed = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting matches: %w", err)
	}

	if err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM teams`).Scan(&st.Teams); err != nil {
		return nil, fmt.Errorf("counting teams: %w", err)
	}
	if err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM tournaments`).Scan(&st.Tournaments); err != nil {
		return nil, fmt.Errorf("counting tournaments: %w", err)
	}

	var last scanTime
	if err := s.queryRow(ctx, s.db, `SELECT MAX(created_at) FROM scraping_logs WHERE status = ?`, string(match.OutcomeSuccess)).Scan(&last); err != nil {
		return nil, fmt.Errorf("reading last scrape: %w", err)
	}
	st.LastScrape = last.ptr()

	logger.SetGauge("store.matches", float64(st.TotalMatches))
	return st, nil
}

func blobArg(present bool, v any) (any, error) {
	if !present {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanMatch(row rowScanner) (*match.Match, error) {
	var (
		m                                  match.Match
		team1ID, team2ID, tournamentID     sql.NullInt64
		status, format, stage              sql.NullString
		url, vod, stats, mapsData, players sql.NullString
		matchTime, created, updated        scanTime
		t1Name, t1Flag, t1Logo             sql.NullString
		t2Name, t2Flag, t2Logo             sql.NullString
		trName, trLogo                     sql.NullString
		t1Created, t2Created, trCreated    scanTime
	)
	err := row.Scan(
		&m.ID, &m.ExternalID, &team1ID, &team2ID, &tournamentID,
		&status, &matchTime, &format, &stage, &m.Team1Score, &m.Team2Score,
		&url, &vod, &stats, &mapsData, &players,
		&created, &updated,
		&t1Name, &t1Flag, &t1Logo, &t1Created,
		&t2Name, &t2Flag, &t2Logo, &t2Created,
		&trName, &trLogo, &trCreated,
	)
	if err != nil {
		return nil, err
	}

	m.Team1ID = nullInt(team1ID)
	m.Team2ID = nullInt(team2ID)
	m.TournamentID = nullInt(tournamentID)
	m.Status = match.Status(status.String)
	m.Time = matchTime.ptr()
	m.Format = match.Format(format.String)
	m.Stage = stage.String
	m.URL = url.String
	m.VODURL = vod.String
	m.StatsURL = stats.String
	m.CreatedAt = created.Time
	m.UpdatedAt = updated.Time

	if mapsData.Valid && mapsData.String != "" {
		if err := json.Unmarshal([]byte(mapsData.String), &m.Maps); err != nil {
			return nil, fmt.Errorf("decoding maps_data: %w", err)
		}
	}
	if players.Valid && players.String != "" {
		if err := json.Unmarshal([]byte(players.String), &m.Players); err != nil {
			return nil, fmt.Errorf("decoding player_stats: %w", err)
		}
	}

	if m.Team1ID != nil {
		m.Team1 = &match.Team{ID: *m.Team1ID, Name: t1Name.String, FlagURL: t1Flag.String, LogoURL: t1Logo.String, CreatedAt: t1Created.Time}
	}
	if m.Team2ID != nil {
		m.Team2 = &match.Team{ID: *m.Team2ID, Name: t2Name.String, FlagURL: t2Flag.String, LogoURL: t2Logo.String, CreatedAt: t2Created.Time}
	}
	if m.TournamentID != nil {
		m.Tournament = &match.Tournament{ID: *m.TournamentID, Name: trName.String, LogoURL: trLogo.String, CreatedAt: trCreated.Time}
	}
	return &m, nil
}
