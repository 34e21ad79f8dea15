package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pfrederiksen/vlr-matches/internal/logger"
	"github.com/pfrederiksen/vlr-matches/internal/normalize"
)

// NamedRow is a team or tournament row reduced to what merging needs
type NamedRow struct {
	ID   int64
	Name string
}

// NameGroup is a set of rows sharing one cleaned name. Rows keep their input
// order, so the first row is the survivor.
type NameGroup struct {
	Key  string
	Rows []NamedRow
}

// MergeReport counts what a merge pass changed
type MergeReport struct {
	TeamsRenamed       int `json:"teams_renamed"`
	TeamsMerged        int `json:"teams_merged"`
	TournamentsRenamed int `json:"tournaments_renamed"`
	TournamentsMerged  int `json:"tournaments_merged"`
	DirtyDeleted       int `json:"dirty_deleted"`
	DirtyKept          int `json:"dirty_kept"`
}

// Changed reports whether the pass modified anything
func (r MergeReport) Changed() bool {
	return r != MergeReport{}
}

// GroupByCleanName groups rows by their cleaned name in order of first
// appearance. Rows whose name cleans to nothing are left out.
func GroupByCleanName(rows []NamedRow) []NameGroup {
	index := make(map[string]int)
	var groups []NameGroup
	for _, r := range rows {
		key := normalize.NameKey(r.Name)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, NameGroup{Key: key})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}
	return groups
}

// entity describes one mergeable table and the match columns pointing at it
type entity struct {
	table   string
	refCols []string
}

var (
	teamEntity       = entity{table: "teams", refCols: []string{"team1_id", "team2_id"}}
	tournamentEntity = entity{table: "tournaments", refCols: []string{"tournament_id"}}
)

// MergeNearDuplicates collapses teams and tournaments whose names differ only
// by whitespace or page artifacts into the oldest row of each group, moving
// match references onto it. Rows left with tab, newline or doubled-space names
// are deleted when no match references them. Running it twice changes nothing
// the second time.
func (s *Store) MergeNearDuplicates(ctx context.Context) (MergeReport, error) {
	var report MergeReport

	for _, e := range []entity{teamEntity, tournamentEntity} {
		var renamed, merged, deleted, kept int
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			var err error
			renamed, merged, err = s.mergeEntity(ctx, tx, e)
			if err != nil {
				return err
			}
			deleted, kept, err = s.sweepDirty(ctx, tx, e)
			return err
		})
		if err != nil {
			return report, fmt.Errorf("merging %s: %w", e.table, err)
		}

		if e.table == teamEntity.table {
			report.TeamsRenamed, report.TeamsMerged = renamed, merged
		} else {
			report.TournamentsRenamed, report.TournamentsMerged = renamed, merged
		}
		report.DirtyDeleted += deleted
		report.DirtyKept += kept
	}

	if report.Changed() {
		s.log.Info("Merged near-duplicate names", logger.Fields{
			"teams_renamed":       report.TeamsRenamed,
			"teams_merged":        report.TeamsMerged,
			"tournaments_renamed": report.TournamentsRenamed,
			"tournaments_merged":  report.TournamentsMerged,
			"dirty_deleted":       report.DirtyDeleted,
			"dirty_kept":          report.DirtyKept,
		})
	}
	logger.AddCounter("store.merged_rows", int64(report.TeamsMerged+report.TournamentsMerged))
	return report, nil
}

func (s *Store) loadNames(ctx context.Context, q querier, table string) ([]NamedRow, error) {
	rows, err := s.query(ctx, q, "SELECT id, name FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", table, err)
	}
	defer rows.Close()

	var out []NamedRow
	for rows.Next() {
		var r NamedRow
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("reading %s: %w", table, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) mergeEntity(ctx context.Context, tx *sql.Tx, e entity) (renamed, merged int, err error) {
	rows, err := s.loadNames(ctx, tx, e.table)
	if err != nil {
		return 0, 0, err
	}

	for _, g := range GroupByCleanName(rows) {
		keeper := g.Rows[0]

		for _, dup := range g.Rows[1:] {
			for _, col := range e.refCols {
				if _, err := s.exec(ctx, tx, "UPDATE matches SET "+col+" = ? WHERE "+col+" = ?", keeper.ID, dup.ID); err != nil {
					return renamed, merged, fmt.Errorf("repointing %s %d: %w", col, dup.ID, err)
				}
			}
			if _, err := s.exec(ctx, tx, "DELETE FROM "+e.table+" WHERE id = ?", dup.ID); err != nil {
				return renamed, merged, fmt.Errorf("deleting %s %d: %w", e.table, dup.ID, err)
			}
			merged++
		}
		if len(g.Rows) > 1 {
			s.log.Debug("Merged name group", logger.Fields{
				"table":      e.table,
				"name":       g.Key,
				"keeper_id":  keeper.ID,
				"duplicates": len(g.Rows) - 1,
			})
		}

		if keeper.Name != g.Key {
			if _, err := s.exec(ctx, tx, "UPDATE "+e.table+" SET name = ? WHERE id = ?", g.Key, keeper.ID); err != nil {
				return renamed, merged, fmt.Errorf("renaming %s %d: %w", e.table, keeper.ID, err)
			}
			renamed++
		}
	}
	return renamed, merged, nil
}

// sweepDirty removes unreferenced rows whose names still carry tabs, newlines
// or doubled spaces; referenced ones are kept and reported
func (s *Store) sweepDirty(ctx context.Context, tx *sql.Tx, e entity) (deleted, kept int, err error) {
	rows, err := s.loadNames(ctx, tx, e.table)
	if err != nil {
		return 0, 0, err
	}

	refWhere := ""
	for i, col := range e.refCols {
		if i > 0 {
			refWhere += " OR "
		}
		refWhere += col + " = ?"
	}

	for _, r := range rows {
		if !normalize.IsDirty(r.Name) {
			continue
		}

		args := make([]any, len(e.refCols))
		for i := range args {
			args[i] = r.ID
		}
		var refs int
		if err := s.queryRow(ctx, tx, "SELECT COUNT(*) FROM matches WHERE "+refWhere, args...).Scan(&refs); err != nil {
			return deleted, kept, fmt.Errorf("checking references to %s %d: %w", e.table, r.ID, err)
		}
		if refs > 0 {
			s.log.Warn("Keeping referenced dirty name", logger.Fields{
				"table":      e.table,
				"id":         r.ID,
				"name":       r.Name,
				"references": refs,
			})
			kept++
			continue
		}

		if _, err := s.exec(ctx, tx, "DELETE FROM "+e.table+" WHERE id = ?", r.ID); err != nil {
			return deleted, kept, fmt.Errorf("deleting %s %d: %w", e.table, r.ID, err)
		}
		deleted++
	}
	return deleted, kept, nil
}
