package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pfrederiksen/vlr-matches/internal/logger"
	"github.com/pfrederiksen/vlr-matches/internal/orchestrator"
	"github.com/robfig/cron/v3"
)

// DefaultCycleTimeout bounds a single scheduled cycle
const DefaultCycleTimeout = 10 * time.Minute

// Runner runs one scrape cycle
type Runner interface {
	RunCycle(ctx context.Context) (*orchestrator.Summary, error)
}

// Status describes the scheduler for health reporting
type Status struct {
	Started      bool       `json:"started"`
	Schedule     string     `json:"schedule"`
	CycleRunning bool       `json:"cycle_running"`
	NextRun      *time.Time `json:"next_run,omitempty"`
	PrevRun      *time.Time `json:"prev_run,omitempty"`
	Runs         int        `json:"runs"`
}

// Scheduler owns the cron loop and the initial delayed run
type Scheduler struct {
	runner       Runner
	spec         string
	initialDelay time.Duration
	timeout      time.Duration
	log          *logger.Logger

	cron    *cron.Cron
	entryID cron.EntryID

	wg      sync.WaitGroup
	mu      sync.Mutex
	timer   *time.Timer
	started bool
	active  int
	runs    int
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithCycleTimeout bounds each triggered cycle
func WithCycleTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// New validates spec (standard five-field cron or an @every/@hourly descriptor)
// and creates a stopped Scheduler
func New(runner Runner, spec string, initialDelay time.Duration, opts ...Option) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}

	s := &Scheduler{
		runner:       runner,
		spec:         spec,
		initialDelay: initialDelay,
		timeout:      DefaultCycleTimeout,
		log:          logger.Default(),
		cron:         cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start registers the periodic job and arms the initial run. A negative
// initial delay disables the initial run.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already started")
	}

	id, err := s.cron.AddFunc(s.spec, s.run)
	if err != nil {
		return fmt.Errorf("scheduling scrape cycle: %w", err)
	}
	s.entryID = id
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()

	if s.initialDelay >= 0 {
		s.timer = time.AfterFunc(s.initialDelay, s.run)
	}
	s.started = true

	s.log.Info("Scheduler started", logger.Fields{
		"schedule":      s.spec,
		"initial_delay": s.initialDelay.String(),
	})
	return nil
}

// Stop cancels pending runs and waits for a running cycle to finish or ctx
// to expire
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	s.cron.Stop()
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.log.Info("Scheduler stopped", nil)
	return nil
}

// Status reports the schedule and the next planned run
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := Status{
		Started:      s.started,
		Schedule:     s.spec,
		CycleRunning: s.active > 0,
		Runs:         s.runs,
	}
	started := s.started
	s.mu.Unlock()

	if started {
		entry := s.cron.Entry(s.entryID)
		if !entry.Next.IsZero() {
			next := entry.Next
			st.NextRun = &next
		}
		if !entry.Prev.IsZero() {
			prev := entry.Prev
			st.PrevRun = &prev
		}
	}
	return st
}

func (s *Scheduler) run() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.active++
	s.runs++
	parent := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
		s.wg.Done()
	}()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	summary, err := s.runner.RunCycle(ctx)
	switch {
	case errors.Is(err, orchestrator.ErrCycleRunning):
		s.log.Info("Skipping scheduled cycle, previous one still running", nil)
	case err != nil:
		s.log.Error("Scheduled scrape cycle failed", nil, err)
	case summary != nil && !summary.Success:
		s.log.Warn("Scheduled scrape cycle finished with errors", logger.Fields{"errors": len(summary.Errors)})
	}
}
