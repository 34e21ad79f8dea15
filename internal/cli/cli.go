package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pfrederiksen/vlr-matches/internal/config"
	"github.com/pfrederiksen/vlr-matches/internal/fetcher"
	"github.com/pfrederiksen/vlr-matches/internal/logger"
	"github.com/pfrederiksen/vlr-matches/internal/orchestrator"
	"github.com/pfrederiksen/vlr-matches/internal/scraper"
	"github.com/pfrederiksen/vlr-matches/internal/storage"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess        = 0
	ExitError          = 1
	ExitPartialFailure = 2
)

var (
	flagFormat   string
	flagDBDriver string
	flagDBDSN    string
	flagBaseURL  string
	flagLogLevel string
	flagEnvFile  string
	flagVerbose  bool
)

// exitError carries a non-default process exit code
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vlr-matches",
		Short: "Scrape and store Valorant esports matches from vlr.gg",
		Long: `A scraper for vlr.gg match listings and match pages.
Keeps a local store of teams, tournaments and matches up to date and serves
it over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagFormat, "format", "text", "Output format: text or json")
	pf.StringVar(&flagDBDriver, "db-driver", "", "Database driver: sqlite or pgx (env: VLR_DB_DRIVER)")
	pf.StringVar(&flagDBDSN, "db-dsn", "", "Database DSN or sqlite path (env: VLR_DB_DSN)")
	pf.StringVar(&flagBaseURL, "base-url", "", "Site base URL (env: VLR_BASE_URL)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error (env: VLR_LOG_LEVEL)")
	pf.StringVar(&flagEnvFile, "env-file", "", "Load settings from this .env file instead of the default locations")
	pf.BoolVar(&flagVerbose, "verbose", false, "Show extra detail and debug logging")

	cmd.AddCommand(
		newServeCmd(),
		newScrapeCmd(),
		newListCmd(),
		newMatchCmd(),
		newTeamsCmd(),
		newTournamentsCmd(),
		newMergeCmd(),
		newLogsCmd(),
		newStatsCmd(),
		newCalendarCmd(),
	)
	return cmd
}

// outputFormat validates --format
func outputFormat() (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	return format, nil
}

// loadConfig reads .env and environment settings, then applies flags
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagEnvFile != "" {
		cfg, err = config.LoadFrom(flagEnvFile)
		if err == nil && cfg.EnvFile == "" {
			err = fmt.Errorf("env file not found: %s", flagEnvFile)
		}
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if flagDBDriver != "" {
		cfg.DBDriver = strings.ToLower(flagDBDriver)
	}
	if flagDBDSN != "" {
		cfg.DBDSN = flagDBDSN
	}
	if flagBaseURL != "" {
		cfg.BaseURL = strings.TrimRight(flagBaseURL, "/")
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagVerbose {
		cfg.LogLevel = string(logger.LevelDebug)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app bundles the components a command needs
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   *storage.Store
	scraper *scraper.Scraper
	orch    *orchestrator.Orchestrator
}

func (a *app) Close() error {
	return a.store.Close()
}

// openApp wires config, logging, the fetcher, the scraper, the store and the
// orchestrator. Logs go to errOut so that stdout stays parseable.
func openApp(ctx context.Context, errOut io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.ParseLevel(cfg.LogLevel), errOut)
	logger.SetDefault(log)
	if cfg.EnvFile != "" {
		log.Debug("Loaded env file", logger.Fields{"path": cfg.EnvFile})
	}

	dsn, err := cfg.ResolveDSN()
	if err != nil {
		return nil, err
	}
	store, err := storage.OpenWithRetry(ctx, cfg.DBDriver, dsn, cfg.ConnectWait, storage.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	f := fetcher.New(
		fetcher.WithDelay(cfg.RequestDelay),
		fetcher.WithTimeout(cfg.RequestTimeout),
		fetcher.WithLogger(log),
	)
	sc := scraper.New(f, scraper.WithBaseURL(cfg.BaseURL), scraper.WithLogger(log))
	orch := orchestrator.New(sc, store,
		orchestrator.WithLogger(log),
		orchestrator.WithMergeAfterCycle(cfg.MergeAfter),
	)

	return &app{cfg: cfg, log: log, store: store, scraper: sc, orch: orch}, nil
}

// withApp opens the app for a command and closes it afterwards
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app, format OutputFormat) error) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a, format)
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			fmt.Fprintf(os.Stderr, "%s\n", ee.msg)
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
