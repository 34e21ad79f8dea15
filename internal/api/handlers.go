package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pfrederiksen/vlr-matches/internal/calendar"
	"github.com/pfrederiksen/vlr-matches/internal/filter"
	"github.com/pfrederiksen/vlr-matches/internal/logger"
	"github.com/pfrederiksen/vlr-matches/internal/match"
	"github.com/pfrederiksen/vlr-matches/internal/orchestrator"
	"github.com/pfrederiksen/vlr-matches/internal/scraper"
	"github.com/pfrederiksen/vlr-matches/internal/storage"
)

// MatchPage is one page of stored matches
type MatchPage struct {
	Matches []match.Match `json:"matches"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	Limit   int           `json:"limit"`
	HasNext bool          `json:"has_next"`
}

// Health reports liveness of the store and the scrape loop
type Health struct {
	Status    string                `json:"status"`
	Database  string                `json:"database"`
	Scraper   orchestrator.State    `json:"scraper_state"`
	LastCycle *orchestrator.Summary `json:"last_cycle,omitempty"`
	LastRunAt *time.Time            `json:"last_run_at,omitempty"`
	Scheduler *schedulerStatus      `json:"scheduler,omitempty"`
}

type schedulerStatus struct {
	Started      bool       `json:"started"`
	Schedule     string     `json:"schedule"`
	CycleRunning bool       `json:"cycle_running"`
	NextRun      *time.Time `json:"next_run,omitempty"`
	Runs         int        `json:"runs"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: "vlr-matches API",
		Data: []string{
			"GET /api/health",
			"GET /api/matches?status=&page=&limit=",
			"GET /api/matches/{upcoming|live|results}?team=&tournament=&status=&dates=",
			"GET /api/calendar.ics?team=&tournament=&status=&dates=",
			"GET /api/match/{id}",
			"POST /api/scrape?type=all|upcoming|live|results",
			"GET /api/teams",
			"GET /api/tournaments",
			"GET /api/stats",
			"GET /api/logs?limit=",
			"GET /api/metrics",
			"POST /api/merge",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := Health{Status: "healthy", Database: "ok", Scraper: s.engine.State()}
	if err := s.store.Ping(r.Context()); err != nil {
		h.Status = "degraded"
		h.Database = err.Error()
	}
	if last, at := s.engine.LastSummary(); last != nil {
		h.LastCycle = last
		h.LastRunAt = &at
	}
	if s.sched != nil {
		st := s.sched.Status()
		h.Scheduler = &schedulerStatus{
			Started:      st.Started,
			Schedule:     st.Schedule,
			CycleRunning: st.CycleRunning,
			NextRun:      st.NextRun,
			Runs:         st.Runs,
		}
	}
	writeData(w, h)
}

func (s *Server) handleStoredMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var status match.Status
	if v := strings.ToLower(strings.TrimSpace(q.Get("status"))); v != "" && v != "all" {
		status = match.Status(v)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status: %s", v))
			return
		}
	}

	page, err := positiveParam(q.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page: "+err.Error())
		return
	}
	limit, err := positiveParam(q.Get("limit"), storage.DefaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit: "+err.Error())
		return
	}
	limit = min(limit, storage.MaxListLimit)
	offset := (page - 1) * limit

	matches, total, err := s.store.ListMatches(r.Context(), storage.ListOptions{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		s.serverError(w, "listing stored matches", err)
		return
	}
	writeData(w, MatchPage{
		Matches: matches,
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasNext: offset+len(matches) < total,
	})
}

func (s *Server) handleLiveListing(w http.ResponseWriter, r *http.Request) {
	c, err := scraper.ParseCategory(mux.Vars(r)["category"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := filter.FromQuery(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := s.engine.ListMatches(r.Context(), c)
	if err != nil {
		s.log.Warn("Live listing failed", logger.Fields{"category": string(c), "error": err.Error()})
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	items = f.Apply(items)
	writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Message: fmt.Sprintf("%d %s matches", len(items), c),
	})
}

// handleCalendar renders stored matches as an iCalendar feed
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	f, err := filter.FromQuery(r.URL.Query(), now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	matches, _, err := s.store.ListMatches(r.Context(), storage.ListOptions{Limit: storage.MaxListLimit})
	if err != nil {
		s.serverError(w, "building calendar", err)
		return
	}
	summaries := make([]match.Summary, 0, len(matches))
	for i := range matches {
		summaries = append(summaries, matches[i].Summary())
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="vlr-matches.ics"`)
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, calendar.GenerateICS("Valorant matches", f.Apply(summaries), now))
}

func (s *Server) handleMatchDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	d, err := s.engine.GetMatchDetail(r.Context(), id)
	switch {
	case errors.Is(err, scraper.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.Warn("Match lookup failed", logger.Fields{"match_id": id, "error": err.Error()})
		writeError(w, http.StatusNotFound, fmt.Sprintf("match %s not found", id))
		return
	}
	writeData(w, d)
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	kind := strings.TrimSpace(r.URL.Query().Get("type"))
	c, err := scraper.ParseCategory(kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var summary *orchestrator.Summary
	if c == scraper.CategoryAll {
		summary, err = s.engine.RunCycle(r.Context())
	} else {
		summary, err = s.engine.RunCategories(r.Context(), c)
	}

	switch {
	case errors.Is(err, orchestrator.ErrCycleRunning):
		writeJSON(w, http.StatusConflict, Envelope{Success: false, Data: summary, Error: err.Error()})
		return
	case err != nil:
		s.log.Error("Manual scrape failed", logger.Fields{"type": string(c)}, err)
		writeJSON(w, http.StatusInternalServerError, Envelope{Success: false, Data: summary, Error: err.Error()})
		return
	}

	msg := fmt.Sprintf("Scraped %d new and %d updated matches", summary.Scraped, summary.Updated)
	if !summary.Success {
		msg += fmt.Sprintf(" with %d errors", len(summary.Errors))
	}
	writeJSON(w, http.StatusOK, Envelope{Success: summary.Success, Data: summary, Message: msg})
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.store.ListTeams(r.Context())
	if err != nil {
		s.serverError(w, "listing teams", err)
		return
	}
	writeData(w, teams)
}

func (s *Server) handleTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := s.store.ListTournaments(r.Context())
	if err != nil {
		s.serverError(w, "listing tournaments", err)
		return
	}
	writeData(w, tournaments)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		s.serverError(w, "reading stats", err)
		return
	}
	writeData(w, st)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := positiveParam(r.URL.Query().Get("limit"), storage.DefaultLogLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit: "+err.Error())
		return
	}
	logs, err := s.store.RecentScrapeLogs(r.Context(), limit)
	if err != nil {
		s.serverError(w, "reading scrape logs", err)
		return
	}
	writeData(w, logs)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeData(w, logger.GetMetricsSnapshot())
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.MergeNearDuplicates(r.Context())
	if err != nil {
		s.serverError(w, "merging near-duplicates", err)
		return
	}
	msg := "No near-duplicates found"
	if report.Changed() {
		msg = fmt.Sprintf("Merged %d teams and %d tournaments", report.TeamsMerged, report.TournamentsMerged)
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: report, Message: msg})
}

func (s *Server) serverError(w http.ResponseWriter, action string, err error) {
	s.log.Error("API request failed", logger.Fields{"action": action}, err)
	writeError(w, http.StatusInternalServerError, action+" failed")
}

func positiveParam(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be at least 1")
	}
	return n, nil
}
