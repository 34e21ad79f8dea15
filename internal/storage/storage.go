package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pfrederiksen/vlr-matches/internal/logger"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

var (
	// ErrInvalidName is returned for empty or placeholder team and tournament names
	ErrInvalidName = errors.New("invalid name")

	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedDriver is returned by Open for drivers other than sqlite and pgx
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the persistence layer for scraped matches
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
	log    *logger.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the time source for created/updated timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for merge reporting
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open connects to the database and creates the schema when missing
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	var statements []string
	switch driver {
	case DriverSQLite:
		statements = sqliteSchema
	case DriverPostgres:
		statements = postgresSchema
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if driver == DriverSQLite {
		// One writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragmas: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	s := &Store{
		db:     db,
		driver: driver,
		now:    time.Now,
		log:    logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OpenWithRetry calls Open with exponential backoff until it succeeds or
// maxWait has elapsed, for databases that start alongside the scraper.
// A maxWait of zero tries once.
func OpenWithRetry(ctx context.Context, driver, dsn string, maxWait time.Duration, opts ...Option) (*Store, error) {
	if maxWait <= 0 {
		return Open(ctx, driver, dsn, opts...)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxWait

	probe := &Store{log: logger.Default()}
	for _, opt := range opts {
		opt(probe)
	}
	log := probe.log

	var store *Store
	op := func() error {
		s, err := Open(ctx, driver, dsn, opts...)
		if errors.Is(err, ErrUnsupportedDriver) {
			return backoff.Permanent(err)
		}
		if err != nil {
			return err
		}
		store = s
		return nil
	}
	notify := func(err error, next time.Duration) {
		log.Warn("Database not ready, retrying", logger.Fields{
			"driver": driver,
			"retry":  next.String(),
			"error":  err.Error(),
		})
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}
	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the database driver name in use
func (s *Store) Driver() string {
	return s.driver
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, q querier, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, q querier, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, q querier, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.rebind(query), args...)
}

// inTx runs fn in a transaction, rolling back when it fails
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// timestampLayout is the SQLite text form; the Z suffix keeps values UTC and sortable
const timestampLayout = "2006-01-02T15:04:05Z"

// timeArg converts t into a driver argument
func (s *Store) timeArg(t time.Time) any {
	if s.driver == DriverPostgres {
		return t.UTC()
	}
	return t.UTC().Format(timestampLayout)
}

func (s *Store) optionalTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return s.timeArg(*t)
}

func (s *Store) stamp() any {
	return s.timeArg(s.now())
}

// scanTime accepts the time representations the drivers return
type scanTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Scan implements sql.Scanner
func (t *scanTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	}
	return fmt.Errorf("unsupported time value %T", value)
}

func (t *scanTime) parse(raw string) error {
	if raw == "" {
		t.Time, t.Valid = time.Time{}, false
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time, t.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognised time value %q", raw)
}

func (t scanTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullIntArg(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// emptyToNull stores missing optional text as NULL
func emptyToNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
