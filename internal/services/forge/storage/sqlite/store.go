package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/andysmith26/forge/internal/platform/id"
	platformotel "github.com/andysmith26/forge/internal/platform/otel"
	sqlitemigrate "github.com/andysmith26/forge/internal/platform/storage/sqlitemigrate"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/projection"
	"github.com/andysmith26/forge/internal/services/forge/storage"
	"github.com/andysmith26/forge/internal/services/forge/storage/sqlite/migrations"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const tracerName = "github.com/andysmith26/forge/internal/services/forge/storage/sqlite"

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner func(dest ...any) error

// Store provides SQLite-backed persistence for forge.
type Store struct {
	sqlDB *sql.DB
	q     querier

	writeMu     *sync.Mutex
	events      *event.Registry
	projections *projection.Registry
	emitter     storage.EventEmitter
	clock       func() time.Time
	newID       func() (string, error)
	logger      *zap.Logger
	tracer      trace.Tracer
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithEventRegistry replaces the registry used to validate appends.
func WithEventRegistry(r *event.Registry) Option {
	return func(s *Store) {
		if r != nil {
			s.events = r
		}
	}
}

// WithProjections replaces the projector registry run inside appends.
func WithProjections(r *projection.Registry) Option {
	return func(s *Store) {
		if r != nil {
			s.projections = r
		}
	}
}

// WithEmitter sets the post-commit emitter used by AppendAndEmit.
func WithEmitter(e storage.EventEmitter) Option {
	return func(s *Store) { s.emitter = e }
}

// WithClock sets the clock that stamps appended events.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithIDGenerator sets the generator for event and notification ids.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets the logger used for best-effort emission warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func toNullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func fromNullMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// Open opens a forge SQLite store at the provided path and applies
// pending migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store := &Store{
		sqlDB:       sqlDB,
		q:           sqlDB,
		writeMu:     &sync.Mutex{},
		events:      event.CoreRegistry(),
		projections: projection.CoreRegistry(),
		clock:       time.Now,
		newID:       id.NewID,
		logger:      zap.NewNop(),
		tracer:      platformotel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// withTx returns a shallow copy whose queries run on tx.
func (s *Store) withTx(tx *sql.Tx) *Store {
	clone := *s
	clone.q = tx
	return &clone
}

// projectionStores binds the projector-facing tables to this store's querier.
func (s *Store) projectionStores() projection.Stores {
	return projection.Stores{Sessions: s, SignIns: s, HelpRequests: s}
}

// inTx runs fn in a transaction under the write lock.
func (s *Store) inTx(ctx context.Context, name string, fn func(tx *Store) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", name, err)
	}
	if err := fn(s.withTx(tx)); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback %s: %v", err, name, rollbackErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func ensureForeignKeysEnabled(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("sqlite db is required")
	}
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

// notFound maps sql.ErrNoRows to storage.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") || strings.Contains(message, "constraint failed: unique")
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
