package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/biosnap/internal/model"
)

// FileName is the ledger file created inside the data directory.
const FileName = "biosnap.db"

// Kind is the command that produced a run.
type Kind string

// Run kinds.
const (
	KindImport     Kind = "import"
	KindTests      Kind = "tests"
	KindBiomarkers Kind = "biomarkers"
	KindExtract    Kind = "extract"
	KindRedact     Kind = "redact"
)

// Status is the outcome of a run.
type Status string

// Run statuses.
const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one ledger entry. It describes a run and never holds report contents:
// the digest lets a user match an output file to its run without storing it.
type Run struct {
	// ID is a random UUID assigned by Begin.
	ID string

	// Kind is the command that produced the run.
	Kind Kind

	// Source is the portal key or the document's base name.
	Source string

	// StartedAt and FinishedAt are UTC. FinishedAt is zero while running.
	StartedAt  time.Time
	FinishedAt time.Time

	// Status is the run outcome.
	Status Status

	// RowCount is the number of rows or records written.
	RowCount int

	// Digest is the SHA3-256 hex digest of the output bytes.
	Digest string

	// Error is the user-facing message of a failed run.
	Error string
}

// Elapsed returns the run duration, or zero while the run is in progress.
func (r Run) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Ledger provides SQLite-based storage for run history.
// It manages the connection pool and the imports table.
//
// Design decision: We keep one ledger file per user data directory rather
// than one per portal so that history can list every command in order.
type Ledger struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// now returns the current time. Tests replace it.
	now func() time.Time
}

// Options configures Ledger behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Ledger in dbDir.
// If CreateIfNotExists is false and the file doesn't exist, ErrDatabaseNotFound
// is returned.
func Open(dbDir string, opts Options) (*Ledger, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rwc"
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = dbPath + "?mode=rw"
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	l := &Ledger{
		db:     db,
		dbPath: dbPath,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := l.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return l, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.dbPath
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (l *Ledger) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS imports (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		source TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		status TEXT NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		digest TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_imports_started ON imports(started_at);
	`

	_, err := l.db.ExecContext(context.Background(), schema)
	return err
}

// Begin records a new running entry and returns it.
func (l *Ledger) Begin(ctx context.Context, kind Kind, source string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Source:    source,
		StartedAt: l.now(),
		Status:    StatusRunning,
	}

	query := `
	INSERT INTO imports (id, kind, source, started_at, status)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := l.db.ExecContext(ctx, query,
		run.ID,
		string(run.Kind),
		run.Source,
		formatTimestamp(run.StartedAt),
		string(run.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// Finish completes run. A nil runErr marks it succeeded with rows and the
// digest of output; otherwise it is marked failed with the user-facing
// message of runErr. Internal error detail is not stored.
func (l *Ledger) Finish(ctx context.Context, run *Run, rows int, output []byte, runErr error) error {
	if run.Status != StatusRunning {
		return fmt.Errorf("%w: %s", ErrRunFinished, run.ID)
	}

	run.FinishedAt = l.now()
	run.RowCount = rows
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = model.UserMessage(runErr)
	} else {
		run.Status = StatusSucceeded
		run.Digest = Digest(output)
	}

	query := `
	UPDATE imports
	SET finished_at = ?, status = ?, row_count = ?, digest = ?, error = ?
	WHERE id = ? AND status = ?
	`

	res, err := l.db.ExecContext(ctx, query,
		formatTimestamp(run.FinishedAt),
		string(run.Status),
		run.RowCount,
		nullString(run.Digest),
		nullString(run.Error),
		run.ID,
		string(StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

// Get retrieves a run by ID.
func (l *Ledger) Get(ctx context.Context, id string) (*Run, error) {
	query := `
	SELECT id, kind, source, started_at, finished_at, status, row_count, digest, error
	FROM imports
	WHERE id = ?
	`

	run, err := scanRun(l.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, newest first. A non-positive limit returns all.
func (l *Ledger) List(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, kind, source, started_at, finished_at, status, row_count, digest, error
	FROM imports
	ORDER BY started_at DESC, rowid DESC
	LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*Run, error) {
	var (
		run                 Run
		kind, status        string
		started             string
		finished            sql.NullString
		digest, errorString sql.NullString
	)
	if err := s.Scan(&run.ID, &kind, &run.Source, &started, &finished, &status, &run.RowCount, &digest, &errorString); err != nil {
		return nil, err
	}
	run.Kind = Kind(kind)
	run.Status = Status(status)
	run.StartedAt = parseTimestamp(started)
	if finished.Valid {
		run.FinishedAt = parseTimestamp(finished.String)
	}
	run.Digest = digest.String
	run.Error = errorString.String
	return &run, nil
}

// Digest returns the SHA3-256 hex digest of data.
func Digest(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// timestampLayout sorts lexically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats the ledger may hold.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
