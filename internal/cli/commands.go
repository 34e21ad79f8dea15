package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pfrederiksen/vlr-matches/internal/api"
	"github.com/pfrederiksen/vlr-matches/internal/calendar"
	"github.com/pfrederiksen/vlr-matches/internal/filter"
	"github.com/pfrederiksen/vlr-matches/internal/logger"
	"github.com/pfrederiksen/vlr-matches/internal/match"
	"github.com/pfrederiksen/vlr-matches/internal/orchestrator"
	"github.com/pfrederiksen/vlr-matches/internal/scheduler"
	"github.com/pfrederiksen/vlr-matches/internal/scraper"
	"github.com/pfrederiksen/vlr-matches/internal/storage"
	"github.com/spf13/cobra"
)

const stopTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr         string
		schedule     string
		initialDelay string
		noScheduler  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and scrape on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(cmd, func(_ context.Context, a *app, _ OutputFormat) error {
				if addr != "" {
					a.cfg.HTTPAddr = addr
				}
				if schedule != "" {
					a.cfg.Schedule = schedule
				}
				if initialDelay != "" {
					d, err := parseDelay(initialDelay)
					if err != nil {
						return fmt.Errorf("invalid --initial-delay: %w", err)
					}
					a.cfg.InitialDelay = d
				}
				return serve(ctx, a, !noScheduler)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (env: VLR_HTTP_ADDR)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron schedule for scrape cycles (env: VLR_SCHEDULE)")
	cmd.Flags().StringVar(&initialDelay, "initial-delay", "", "Delay before the first cycle, negative to skip (env: VLR_INITIAL_DELAY)")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Serve the API without scheduled scraping")
	return cmd
}

func parseDelay(s string) (time.Duration, error) {
	if strings.HasPrefix(s, "-") {
		return -1, nil
	}
	return time.ParseDuration(s)
}

func serve(ctx context.Context, a *app, scheduled bool) error {
	var opts []api.Option
	opts = append(opts, api.WithLogger(a.log))

	var sched *scheduler.Scheduler
	if scheduled {
		var err error
		sched, err = scheduler.New(a.orch, a.cfg.Schedule, a.cfg.InitialDelay, scheduler.WithLogger(a.log))
		if err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		opts = append(opts, api.WithScheduler(sched))
	}

	srv := api.New(a.store, a.orch, opts...)
	serveErr := srv.ListenAndServe(ctx, a.cfg.HTTPAddr)

	if sched != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := sched.Stop(stopCtx); err != nil {
			a.log.Warn("Scheduler did not stop cleanly", logger.Fields{"error": err.Error()})
		}
	}
	a.log.Info("Server stopped", nil)
	return serveErr
}

func newScrapeCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape cycle and store the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := scraper.ParseCategory(kind)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app, format OutputFormat) error {
				var summary *orchestrator.Summary
				if c == scraper.CategoryAll {
					summary, err = a.orch.RunCycle(ctx)
				} else {
					summary, err = a.orch.RunCategories(ctx, c)
				}
				if summary != nil {
					if werr := WriteOutput(cmd.OutOrStdout(), summary, format, flagVerbose); werr != nil {
						return fmt.Errorf("writing output: %w", werr)
					}
				}
				if err != nil {
					return fmt.Errorf("scrape cycle: %w", err)
				}
				if !summary.Success {
					return &exitError{code: ExitPartialFailure, msg: fmt.Sprintf("scrape finished with %d errors", len(summary.Errors))}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "type", "all", "Listings to scrape: all, upcoming, live or results")
	return cmd
}

// filterFlags are shared by the list and calendar commands
type filterFlags struct {
	teams       []string
	tournaments []string
	statuses    []string
	dates       string
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&ff.teams, "team", nil, "Only matches involving these teams (substring, repeatable)")
	cmd.Flags().StringSliceVar(&ff.tournaments, "tournament", nil, "Only matches in these tournaments (substring, repeatable)")
	cmd.Flags().StringSliceVar(&ff.statuses, "status", nil, "Only matches with these statuses")
	cmd.Flags().StringVar(&ff.dates, "dates", "", "Date range: today, week, 'Oct 1-15', 2026-10-01..2026-10-15")
}

func (ff *filterFlags) build(now time.Time) (*filter.Filter, error) {
	f := filter.NewFilter()
	f.Teams = filter.SplitList(ff.teams...)
	f.Tournaments = filter.SplitList(ff.tournaments...)

	statuses, err := filter.ParseStatuses(filter.SplitList(ff.statuses...))
	if err != nil {
		return nil, err
	}
	f.Statuses = statuses

	if ff.dates != "" {
		if f.From, f.To, err = filter.ParseDateRange(ff.dates, now); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func summarize(matches []match.Match) []match.Summary {
	out := make([]match.Summary, 0, len(matches))
	for i := range matches {
		out = append(out, matches[i].Summary())
	}
	return out
}

func newListCmd() *cobra.Command {
	var (
		sortBy  string
		stored  bool
		page    int
		limit   int
		filters filterFlags
	)

	cmd := &cobra.Command{
		Use:   "list [upcoming|live|results|all]",
		Short: "List matches from a live listing page or from the store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			c, err := scraper.ParseCategory(arg)
			if err != nil {
				return err
			}
			order, err := parseSortOrder(sortBy)
			if err != nil {
				return err
			}
			if page < 1 {
				return fmt.Errorf("--page must be at least 1")
			}
			f, err := filters.build(time.Now())
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app, format OutputFormat) error {
				if stored {
					opts := storage.ListOptions{Status: categoryStatus(c), Limit: limit, Offset: (page - 1) * max(limit, 1)}
					matches, total, err := a.store.ListMatches(ctx, opts)
					if err != nil {
						return fmt.Errorf("listing stored matches: %w", err)
					}
					if flagVerbose {
						fmt.Fprintf(cmd.ErrOrStderr(), "Showing page %d of %d stored matches\n", page, total)
					}
					if f.IsEmpty() {
						return WriteOutput(cmd.OutOrStdout(), matches, format, flagVerbose)
					}
					items := f.Apply(summarize(matches))
					sortSummaries(items, order)
					return WriteOutput(cmd.OutOrStdout(), items, format, flagVerbose)
				}

				items, err := a.orch.ListMatches(ctx, c)
				if err != nil {
					return fmt.Errorf("listing %s: %w", c, err)
				}
				if !f.IsEmpty() {
					if flagVerbose {
						fmt.Fprintf(cmd.ErrOrStderr(), "Filter: %s\n", f)
					}
					items = f.Apply(items)
				}
				sortSummaries(items, order)
				return WriteOutput(cmd.OutOrStdout(), items, format, flagVerbose)
			})
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort live results by time, tournament or team")
	cmd.Flags().BoolVar(&stored, "stored", false, "Read from the store instead of the site")
	cmd.Flags().IntVar(&page, "page", 1, "Page of stored matches")
	cmd.Flags().IntVar(&limit, "limit", storage.DefaultListLimit, "Stored matches per page")
	filters.register(cmd)
	return cmd
}

func newCalendarCmd() *cobra.Command {
	var (
		output  string
		name    string
		filters filterFlags
	)

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Export stored matches as an iCalendar feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			f, err := filters.build(now)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app, _ OutputFormat) error {
				matches, _, err := a.store.ListMatches(ctx, storage.ListOptions{Limit: storage.MaxListLimit})
				if err != nil {
					return fmt.Errorf("listing stored matches: %w", err)
				}
				items := f.Apply(summarize(matches))
				ics := calendar.GenerateICS(name, items, now)

				if output == "" || output == "-" {
					_, err = fmt.Fprint(cmd.OutOrStdout(), ics)
					return err
				}
				if err := os.WriteFile(output, []byte(ics), 0o644); err != nil {
					return fmt.Errorf("writing calendar: %w", err)
				}
				a.log.Info("Calendar written", logger.Fields{"path": output, "matches": len(items)})
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the feed to this file instead of stdout")
	cmd.Flags().StringVar(&name, "name", "Valorant matches", "Calendar name")
	filters.register(cmd)
	return cmd
}

// categoryStatus maps a listing category onto the stored status filter
func categoryStatus(c scraper.Category) match.Status {
	switch c {
	case scraper.CategoryUpcoming:
		return match.StatusUpcoming
	case scraper.CategoryLive:
		return match.StatusLive
	case scraper.CategoryResults:
		return match.StatusCompleted
	}
	return ""
}

func newMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <id>",
		Short: "Fetch one match page, store it and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app, format OutputFormat) error {
				d, err := a.orch.GetMatchDetail(ctx, args[0])
				if err != nil {
					return err
				}
				return WriteOutput(cmd.OutOrStdout(), d, format, flagVerbose)
			})
		},
	}
}

func newTeamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teams",
		Short: "List stored teams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app, format OutputFormat) error {
				teams, err := a.store.ListTeams(ctx)
				if err != nil {
					return err
				}
				return WriteOutput(cmd.OutOrStdout(), teams, format, flagVerbose)
			})
		},
	}
}

func newTournamentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tournaments",
		Short: "List stored tournaments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app, format OutputFormat) error {
				tournaments, err := a.store.ListTournaments(ctx)
				if err != nil {
					return err
				}
				return WriteOutput(cmd.OutOrStdout(), tournaments, format, flagVerbose)
			})
		},
	}
}

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge teams and tournaments whose names differ only in whitespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app, format OutputFormat) error {
				report, err := a.store.MergeNearDuplicates(ctx)
				if err != nil {
					return err
				}
				return WriteOutput(cmd.OutOrStdout(), report, format, flagVerbose)
			})
		},
	}
}

func newLogsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent scrape audit entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app, format OutputFormat) error {
				logs, err := a.store.RecentScrapeLogs(ctx, limit)
				if err != nil {
					return err
				}
				return WriteOutput(cmd.OutOrStdout(), logs, format, flagVerbose)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", storage.DefaultLogLimit, "Number of entries")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show stored totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app, format OutputFormat) error {
				st, err := a.store.Stats(ctx)
				if err != nil {
					return err
				}
				if format == FormatJSON && flagVerbose {
					return writeJSON(cmd.OutOrStdout(), map[string]any{
						"stats":   st,
						"metrics": logger.GetMetricsSnapshot(),
					})
				}
				return WriteOutput(cmd.OutOrStdout(), st, format, flagVerbose)
			})
		},
	}
}
