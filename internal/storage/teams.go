package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pfrederiksen/vlr-matches/internal/match"
	"github.com/pfrederiksen/vlr-matches/internal/normalize"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// GetOrCreateTeam returns the team with exactly this name, creating it when
// unseen. Non-empty flag and logo URLs replace stored ones.
func (s *Store) GetOrCreateTeam(ctx context.Context, name, flagURL, logoURL string) (*match.Team, error) {
	return s.getOrCreateTeam(ctx, s.db, name, flagURL, logoURL)
}

func (s *Store) getOrCreateTeam(ctx context.Context, q querier, name, flagURL, logoURL string) (*match.Team, error) {
	if normalize.IsPlaceholder(name) {
		return nil, fmt.Errorf("%w: team %q", ErrInvalidName, name)
	}

	row := s.queryRow(ctx, q, `
		INSERT INTO teams (name, flag_url, logo_url, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			flag_url = COALESCE(excluded.flag_url, teams.flag_url),
			logo_url = COALESCE(excluded.logo_url, teams.logo_url)
		RETURNING id, name, flag_url, logo_url, created_at
	`, name, emptyToNull(flagURL), emptyToNull(logoURL), s.stamp())

	team, err := scanTeam(row)
	if err != nil {
		return nil, fmt.Errorf("saving team %q: %w", name, err)
	}
	return team, nil
}

// GetOrCreateTournament returns the tournament with exactly this name,
// creating it when unseen
func (s *Store) GetOrCreateTournament(ctx context.Context, name, logoURL string) (*match.Tournament, error) {
	return s.getOrCreateTournament(ctx, s.db, name, logoURL)
}

func (s *Store) getOrCreateTournament(ctx context.Context, q querier, name, logoURL string) (*match.Tournament, error) {
	if normalize.IsPlaceholder(name) {
		return nil, fmt.Errorf("%w: tournament %q", ErrInvalidName, name)
	}

	row := s.queryRow(ctx, q, `
		INSERT INTO tournaments (name, logo_url, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			logo_url = COALESCE(excluded.logo_url, tournaments.logo_url)
		RETURNING id, name, logo_url, created_at
	`, name, emptyToNull(logoURL), s.stamp())

	t, err := scanTournament(row)
	if err != nil {
		return nil, fmt.Errorf("saving tournament %q: %w", name, err)
	}
	return t, nil
}

// ListTeams returns every team ordered by name
func (s *Store) ListTeams(ctx context.Context) ([]match.Team, error) {
	rows, err := s.query(ctx, s.db, `SELECT id, name, flag_url, logo_url, created_at FROM teams ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	teams := make([]match.Team, 0)
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("reading team: %w", err)
		}
		teams = append(teams, *t)
	}
	return teams, rows.Err()
}

// ListTournaments returns every tournament ordered by name
func (s *Store) ListTournaments(ctx context.Context) ([]match.Tournament, error) {
	rows, err := s.query(ctx, s.db, `SELECT id, name, logo_url, created_at FROM tournaments ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]match.Tournament, 0)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("reading tournament: %w", err)
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

func scanTeam(row rowScanner) (*match.Team, error) {
	var (
		t       match.Team
		flag    sql.NullString
		logo    sql.NullString
		created scanTime
	)
	if err := row.Scan(&t.ID, &t.Name, &flag, &logo, &created); err != nil {
		return nil, err
	}
	t.FlagURL = flag.String
	t.LogoURL = logo.String
	t.CreatedAt = created.Time
	return &t, nil
}

func scanTournament(row rowScanner) (*match.Tournament, error) {
	var (
		t       match.Tournament
		logo    sql.NullString
		created scanTime
	)
	if err := row.Scan(&t.ID, &t.Name, &logo, &created); err != nil {
		return nil, err
	}
	t.LogoURL = logo.String
	t.CreatedAt = created.Time
	return &t, nil
}
