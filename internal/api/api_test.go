package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/vlr-matches/internal/logger"
	"github.com/pfrederiksen/vlr-matches/internal/match"
	"github.com/pfrederiksen/vlr-matches/internal/orchestrator"
	"github.com/pfrederiksen/vlr-matches/internal/scheduler"
	"github.com/pfrederiksen/vlr-matches/internal/scraper"
	"github.com/pfrederiksen/vlr-matches/internal/storage"
)

type fakeStore struct {
	matches []match.Match
	lastOpt storage.ListOptions
	pingErr error
	listErr error
	merges  int
}

func (f *fakeStore) ListMatches(_ context.Context, opts storage.ListOptions) ([]match.Match, int, error) {
	f.lastOpt = opts
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	var filtered []match.Match
	for _, m := range f.matches {
		if opts.Status == "" || m.Status == opts.Status {
			filtered = append(filtered, m)
		}
	}
	total := len(filtered)
	end := min(opts.Offset+opts.Limit, total)
	if opts.Offset >= total {
		return []match.Match{}, total, nil
	}
	return filtered[opts.Offset:end], total, nil
}

func (f *fakeStore) ListTeams(context.Context) ([]match.Team, error) {
	return []match.Team{{ID: 1, Name: "Sentinels"}, {ID: 2, Name: "G2 Esports"}}, nil
}

func (f *fakeStore) ListTournaments(context.Context) ([]match.Tournament, error) {
	return []match.Tournament{{ID: 1, Name: "Champions Tour 2026"}}, nil
}

func (f *fakeStore) Stats(context.Context) (*storage.Stats, error) {
	return &storage.Stats{TotalMatches: len(f.matches), Teams: 2, Tournaments: 1}, nil
}

func (f *fakeStore) RecentScrapeLogs(_ context.Context, limit int) ([]match.ScrapeLogEntry, error) {
	out := make([]match.ScrapeLogEntry, 0, limit)
	for i := 0; i < limit && i < 3; i++ {
		out = append(out, match.ScrapeLogEntry{ID: int64(3 - i), Category: "upcoming", Outcome: match.OutcomeSuccess})
	}
	return out, nil
}

func (f *fakeStore) MergeNearDuplicates(context.Context) (storage.MergeReport, error) {
	f.merges++
	return storage.MergeReport{TeamsMerged: 1}, nil
}

func (f *fakeStore) Ping(context.Context) error {
	return f.pingErr
}

type fakeEngine struct {
	cycleErr   error
	summary    *orchestrator.Summary
	categories []scraper.Category
	fullCycles int
	listings   map[scraper.Category][]match.Summary
	listErr    error
	details    map[string]*match.Detail
}

func (f *fakeEngine) RunCycle(context.Context) (*orchestrator.Summary, error) {
	f.fullCycles++
	return f.summary, f.cycleErr
}

func (f *fakeEngine) RunCategories(_ context.Context, categories ...scraper.Category) (*orchestrator.Summary, error) {
	f.categories = append(f.categories, categories...)
	return f.summary, f.cycleErr
}

func (f *fakeEngine) ListMatches(_ context.Context, c scraper.Category) ([]match.Summary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listings[c], nil
}

func (f *fakeEngine) GetMatchDetail(_ context.Context, id string) (*match.Detail, error) {
	if id == "abc" {
		return nil, fmt.Errorf("%w: %q", scraper.ErrInvalidID, id)
	}
	d, ok := f.details[id]
	if !ok {
		return nil, errors.New("HTTP 404")
	}
	return d, nil
}

func (f *fakeEngine) State() orchestrator.State {
	return orchestrator.StateIdle
}

func (f *fakeEngine) LastSummary() (*orchestrator.Summary, time.Time) {
	return nil, time.Time{}
}

type fakeScheduler struct{}

func (fakeScheduler) Status() scheduler.Status {
	return scheduler.Status{Started: true, Schedule: "*/15 * * * *", Runs: 2}
}

func newTestServer(t *testing.T, store *fakeStore, engine *fakeEngine) *httptest.Server {
	t.Helper()
	srv := New(store, engine,
		WithScheduler(fakeScheduler{}),
		WithLogger(logger.New(logger.LevelError, &bytes.Buffer{})),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decode(t *testing.T, resp *http.Response, data any) Envelope {
	t.Helper()
	defer resp.Body.Close()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decoding data: %v", err)
		}
	}
	return Envelope{Success: raw.Success, Error: raw.Error, Message: raw.Message}
}

func storedMatches(n int) []match.Match {
	out := make([]match.Match, 0, n)
	for i := 1; i <= n; i++ {
		status := match.StatusUpcoming
		if i%2 == 0 {
			status = match.StatusCompleted
		}
		out = append(out, match.Match{ID: int64(i), ExternalID: fmt.Sprint(1000 + i), Status: status})
	}
	return out
}

func TestHealth(t *testing.T) {
	store := &fakeStore{}
	ts := newTestServer(t, store, &fakeEngine{})

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	var h Health
	env := decode(t, resp, &h)
	if !env.Success {
		t.Fatal("health should succeed")
	}
	if h.Status != "healthy" || h.Scraper != orchestrator.StateIdle {
		t.Errorf("health = %+v", h)
	}
	if h.Scheduler == nil || h.Scheduler.Runs != 2 {
		t.Errorf("scheduler = %+v, want runs 2", h.Scheduler)
	}
}

func TestHealth_Degraded(t *testing.T) {
	ts := newTestServer(t, &fakeStore{pingErr: errors.New("database is locked")}, &fakeEngine{})

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	var h Health
	decode(t, resp, &h)
	if h.Status != "degraded" || h.Database != "database is locked" {
		t.Errorf("health = %+v", h)
	}
}

func TestStoredMatches_Paging(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
		wantTotal  int
		wantNext   bool
	}{
		{"defaults", "", http.StatusOK, 20, 25, true},
		{"second page", "?page=2", http.StatusOK, 5, 25, false},
		{"small limit", "?limit=10&page=3", http.StatusOK, 5, 25, false},
		{"status filter", "?status=completed&limit=5", http.StatusOK, 5, 12, true},
		{"all status", "?status=all&limit=100", http.StatusOK, 25, 25, false},
		{"limit capped", "?limit=500", http.StatusOK, 25, 25, false},
		{"invalid status", "?status=postponed", http.StatusBadRequest, 0, 0, false},
		{"invalid page", "?page=0", http.StatusBadRequest, 0, 0, false},
		{"invalid limit", "?limit=x", http.StatusBadRequest, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{matches: storedMatches(25)}
			ts := newTestServer(t, store, &fakeEngine{})

			resp, err := http.Get(ts.URL + "/api/matches" + tt.query)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var page MatchPage
			env := decode(t, resp, &page)
			if tt.wantStatus != http.StatusOK {
				if env.Success || env.Error == "" {
					t.Errorf("envelope = %+v, want error", env)
				}
				return
			}
			if len(page.Matches) != tt.wantCount {
				t.Errorf("matches = %d, want %d", len(page.Matches), tt.wantCount)
			}
			if page.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", page.Total, tt.wantTotal)
			}
			if page.HasNext != tt.wantNext {
				t.Errorf("has_next = %v, want %v", page.HasNext, tt.wantNext)
			}
		})
	}
}

func TestStoredMatches_StoreError(t *testing.T) {
	ts := newTestServer(t, &fakeStore{listErr: errors.New("boom")}, &fakeEngine{})

	resp, err := http.Get(ts.URL + "/api/matches")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	env := decode(t, resp, nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if env.Error != "listing stored matches failed" {
		t.Errorf("error = %q", env.Error)
	}
}

func TestLiveListing(t *testing.T) {
	engine := &fakeEngine{listings: map[scraper.Category][]match.Summary{
		scraper.CategoryResults: {{ExternalID: "497990", Status: match.StatusCompleted}},
	}}
	ts := newTestServer(t, &fakeStore{}, engine)

	resp, err := http.Get(ts.URL + "/api/matches/completed")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var items []match.Summary
	env := decode(t, resp, &items)
	if !env.Success || len(items) != 1 || items[0].ExternalID != "497990" {
		t.Errorf("envelope = %+v, items = %+v", env, items)
	}

	resp, err = http.Get(ts.URL + "/api/matches/postponed")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown category status = %d, want 400", resp.StatusCode)
	}
}

func TestLiveListing_UpstreamFailure(t *testing.T) {
	ts := newTestServer(t, &fakeStore{}, &fakeEngine{listErr: errors.New("timeout")})

	resp, err := http.Get(ts.URL + "/api/matches/upcoming")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestLiveListing_Filtered(t *testing.T) {
	engine := &fakeEngine{listings: map[scraper.Category][]match.Summary{
		scraper.CategoryUpcoming: {
			{ExternalID: "498001", Team1Name: "Sentinels", Team2Name: "G2 Esports", Status: match.StatusUpcoming},
			{ExternalID: "498003", Team1Name: "LOUD", Team2Name: "KRU Esports", Status: match.StatusUpcoming},
		},
	}}
	ts := newTestServer(t, &fakeStore{}, engine)

	resp, err := http.Get(ts.URL + "/api/matches/upcoming?team=g2")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var items []match.Summary
	env := decode(t, resp, &items)
	if len(items) != 1 || items[0].ExternalID != "498001" {
		t.Errorf("items = %+v", items)
	}
	if env.Message != "1 upcoming matches" {
		t.Errorf("message = %q", env.Message)
	}

	resp, err = http.Get(ts.URL + "/api/matches/upcoming?dates=someday")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad dates status = %d, want 400", resp.StatusCode)
	}
}

func TestCalendar(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	soon := now.Add(48 * time.Hour)
	later := now.AddDate(0, 1, 0)
	store := &fakeStore{matches: []match.Match{
		{ID: 1, ExternalID: "498001", Status: match.StatusUpcoming, Time: &soon, Format: match.FormatBo3,
			Team1: &match.Team{Name: "Sentinels"}, Team2: &match.Team{Name: "G2 Esports"}},
		{ID: 2, ExternalID: "498050", Status: match.StatusUpcoming, Time: &later, Format: match.FormatBo5,
			Team1: &match.Team{Name: "FNATIC"}, Team2: &match.Team{Name: "Team Heretics"}},
		{ID: 3, ExternalID: "498060", Status: match.StatusUpcoming, Format: match.FormatBo1},
	}}
	srv := New(store, &fakeEngine{}, WithLogger(logger.New(logger.LevelError, &bytes.Buffer{})))
	srv.now = func() time.Time { return now }
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/calendar.ics")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	ics := string(body)
	if strings.Count(ics, "BEGIN:VEVENT") != 2 {
		t.Errorf("expected 2 events, got:\n%s", ics)
	}
	if !strings.Contains(ics, "SUMMARY:Sentinels vs G2 Esports (Bo3)") {
		t.Errorf("missing Sentinels event:\n%s", ics)
	}
	if store.lastOpt.Limit != storage.MaxListLimit {
		t.Errorf("limit = %d, want %d", store.lastOpt.Limit, storage.MaxListLimit)
	}

	resp, err = http.Get(ts.URL + "/api/calendar.ics?dates=week")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if got := strings.Count(string(body), "BEGIN:VEVENT"); got != 1 {
		t.Errorf("week feed events = %d, want 1", got)
	}

	resp, err = http.Get(ts.URL + "/api/calendar.ics?status=maybe")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad status = %d, want 400", resp.StatusCode)
	}
}

func TestMatchDetail(t *testing.T) {
	engine := &fakeEngine{details: map[string]*match.Detail{
		"498001": {Summary: match.Summary{ExternalID: "498001", Team1Name: "Sentinels"}},
	}}
	ts := newTestServer(t, &fakeStore{}, engine)

	tests := []struct {
		id         string
		wantStatus int
	}{
		{"498001", http.StatusOK},
		{"999999", http.StatusNotFound},
		{"abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/match/" + tt.id)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			var d match.Detail
			env := decode(t, resp, &d)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && d.Team1Name != "Sentinels" {
				t.Errorf("detail = %+v", d)
			}
			if tt.wantStatus != http.StatusOK && env.Success {
				t.Error("error response should not be successful")
			}
		})
	}
}

func TestScrape(t *testing.T) {
	summary := &orchestrator.Summary{Success: true, Scraped: 3, Updated: 1, Errors: []string{}, State: orchestrator.StateSuccess}

	t.Run("all runs a full cycle", func(t *testing.T) {
		engine := &fakeEngine{summary: summary}
		ts := newTestServer(t, &fakeStore{}, engine)

		resp, err := http.Post(ts.URL+"/api/scrape?type=all", "application/json", nil)
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		var got orchestrator.Summary
		env := decode(t, resp, &got)
		if resp.StatusCode != http.StatusOK || !env.Success {
			t.Fatalf("status = %d, env = %+v", resp.StatusCode, env)
		}
		if engine.fullCycles != 1 || got.Scraped != 3 {
			t.Errorf("fullCycles = %d, scraped = %d", engine.fullCycles, got.Scraped)
		}
		if env.Message != "Scraped 3 new and 1 updated matches" {
			t.Errorf("message = %q", env.Message)
		}
	})

	t.Run("type restricts categories", func(t *testing.T) {
		engine := &fakeEngine{summary: summary}
		ts := newTestServer(t, &fakeStore{}, engine)

		resp, err := http.Post(ts.URL+"/api/scrape?type=live", "application/json", nil)
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if len(engine.categories) != 1 || engine.categories[0] != scraper.CategoryLive {
			t.Errorf("categories = %v, want [live]", engine.categories)
		}
		if engine.fullCycles != 0 {
			t.Errorf("fullCycles = %d, want 0", engine.fullCycles)
		}
	})

	t.Run("overlap is a conflict", func(t *testing.T) {
		engine := &fakeEngine{
			summary:  &orchestrator.Summary{State: orchestrator.StateRunning, Errors: []string{"scrape cycle already running"}},
			cycleErr: orchestrator.ErrCycleRunning,
		}
		ts := newTestServer(t, &fakeStore{}, engine)

		resp, err := http.Post(ts.URL+"/api/scrape", "application/json", nil)
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		env := decode(t, resp, nil)
		if resp.StatusCode != http.StatusConflict || env.Success {
			t.Errorf("status = %d, env = %+v", resp.StatusCode, env)
		}
	})

	t.Run("all listings failed", func(t *testing.T) {
		engine := &fakeEngine{
			summary:  &orchestrator.Summary{State: orchestrator.StateFailed},
			cycleErr: orchestrator.ErrAllListingsFailed,
		}
		ts := newTestServer(t, &fakeStore{}, engine)

		resp, err := http.Post(ts.URL+"/api/scrape", "application/json", nil)
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", resp.StatusCode)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		ts := newTestServer(t, &fakeStore{}, &fakeEngine{summary: summary})

		resp, err := http.Post(ts.URL+"/api/scrape?type=weekly", "application/json", nil)
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("GET not allowed", func(t *testing.T) {
		ts := newTestServer(t, &fakeStore{}, &fakeEngine{summary: summary})

		resp, err := http.Get(ts.URL + "/api/scrape")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		env := decode(t, resp, nil)
		if resp.StatusCode != http.StatusMethodNotAllowed || env.Success {
			t.Errorf("status = %d, env = %+v", resp.StatusCode, env)
		}
	})
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &fakeStore{}, &fakeEngine{})

	tests := []struct {
		method    string
		path      string
		wantAllow string
	}{
		{http.MethodGet, "/api/scrape", http.MethodPost},
		{http.MethodGet, "/api/merge", http.MethodPost},
		{http.MethodPost, "/api/health", http.MethodGet},
		{http.MethodDelete, "/api/match/498001", http.MethodGet},
		{http.MethodPost, "/", http.MethodGet},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("%s %s: %v", tt.method, tt.path, err)
			}
			env := decode(t, resp, nil)
			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want 405", resp.StatusCode)
			}
			if got := resp.Header.Get("Allow"); got != tt.wantAllow {
				t.Errorf("Allow = %q, want %q", got, tt.wantAllow)
			}
			if env.Success || env.Error != "method "+tt.method+" not allowed" {
				t.Errorf("envelope = %+v", env)
			}
		})
	}
}

func TestStoreReads(t *testing.T) {
	store := &fakeStore{matches: storedMatches(4)}
	ts := newTestServer(t, store, &fakeEngine{})

	var teams []match.Team
	resp, err := http.Get(ts.URL + "/api/teams")
	if err != nil {
		t.Fatalf("GET teams: %v", err)
	}
	decode(t, resp, &teams)
	if len(teams) != 2 {
		t.Errorf("teams = %d, want 2", len(teams))
	}

	var tournaments []match.Tournament
	resp, err = http.Get(ts.URL + "/api/tournaments")
	if err != nil {
		t.Fatalf("GET tournaments: %v", err)
	}
	decode(t, resp, &tournaments)
	if len(tournaments) != 1 {
		t.Errorf("tournaments = %d, want 1", len(tournaments))
	}

	var st storage.Stats
	resp, err = http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	decode(t, resp, &st)
	if st.TotalMatches != 4 {
		t.Errorf("total_matches = %d, want 4", st.TotalMatches)
	}

	var logs []match.ScrapeLogEntry
	resp, err = http.Get(ts.URL + "/api/logs?limit=2")
	if err != nil {
		t.Fatalf("GET logs: %v", err)
	}
	decode(t, resp, &logs)
	if len(logs) != 2 {
		t.Errorf("logs = %d, want 2", len(logs))
	}
}

func TestMerge(t *testing.T) {
	store := &fakeStore{}
	ts := newTestServer(t, store, &fakeEngine{})

	resp, err := http.Post(ts.URL+"/api/merge", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var report storage.MergeReport
	env := decode(t, resp, &report)
	if store.merges != 1 || report.TeamsMerged != 1 {
		t.Errorf("merges = %d, report = %+v", store.merges, report)
	}
	if env.Message != "Merged 1 teams and 0 tournaments" {
		t.Errorf("message = %q", env.Message)
	}
}

func TestMetricsAndCORS(t *testing.T) {
	ts := newTestServer(t, &fakeStore{}, &fakeEngine{})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/metrics", nil)
	req.Header.Set("Origin", "https://example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	var snapshot map[string]any
	env := decode(t, resp, &snapshot)
	if !env.Success {
		t.Error("metrics should succeed")
	}
	if _, ok := snapshot["counters"]; !ok {
		t.Errorf("snapshot missing counters: %v", snapshot)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, &fakeStore{}, &fakeEngine{})

	resp, err := http.Get(ts.URL + "/api/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	env := decode(t, resp, nil)
	if resp.StatusCode != http.StatusNotFound || env.Success {
		t.Errorf("status = %d, env = %+v", resp.StatusCode, env)
	}
}
