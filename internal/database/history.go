package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/kbexport/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "history.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("database: run not found")

// HistoryDB records crawl runs and their export attempts.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so that concurrent crawls of
	// several roots do not block each other's readers.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl with --history first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root_url TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		format TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		visited INTEGER DEFAULT 0,
		exported INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		cancelled INTEGER DEFAULT 0,
		summary_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS exports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		directory TEXT NOT NULL,
		path TEXT,
		title TEXT,
		sequence INTEGER,
		success INTEGER NOT NULL,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_exports_run ON exports(run_id);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is one stored crawl run.
type RunRecord struct {
	ID         int64
	RootURL    string
	OutputDir  string
	Format     string
	StartedAt  time.Time
	FinishedAt time.Time
	Visited    int
	Exported   int
	Failed     int
	Cancelled  bool
}

// Finished reports whether FinishRun was called for the run.
func (r RunRecord) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// ExportRecord is one stored export attempt.
type ExportRecord struct {
	ID         int64
	RunID      int64
	URL        string
	Directory  string
	Path       string
	Title      string
	Sequence   int
	Success    bool
	RecordedAt time.Time
}

// StartRun inserts a run row and returns its ID.
func (hdb *HistoryDB) StartRun(ctx context.Context, rootURL, outputDir, format string, startedAt time.Time) (int64, error) {
	query := `
	INSERT INTO runs (root_url, output_dir, format, started_at)
	VALUES (?, ?, ?, ?)
	`

	result, err := hdb.db.ExecContext(ctx, query, rootURL, outputDir, format, formatTimestamp(startedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	return result.LastInsertId()
}

// RecordExport stores one export attempt of a run.
func (hdb *HistoryDB) RecordExport(ctx context.Context, runID int64, url, directory string, res model.ExportResult) error {
	query := `
	INSERT INTO exports (run_id, url, directory, path, title, sequence, success, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := hdb.db.ExecContext(ctx, query,
		runID,
		url,
		directory,
		res.Path,
		res.Title,
		res.Sequence,
		boolToInt(res.Success),
		formatTimestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to record export: %w", err)
	}
	return nil
}

// FinishRun stores the totals and the JSON summary of a run.
func (hdb *HistoryDB) FinishRun(ctx context.Context, runID int64, summary *model.Summary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	finished := summary.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	query := `
	UPDATE runs SET
		finished_at = ?,
		visited = ?,
		exported = ?,
		failed = ?,
		cancelled = ?,
		summary_json = ?
	WHERE id = ?
	`

	result, err := hdb.db.ExecContext(ctx, query,
		formatTimestamp(finished),
		summary.TotalVisited(),
		summary.TotalExported(),
		summary.StateCount(model.NodeFailed),
		boolToInt(summary.Cancelled),
		string(summaryJSON),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, root_url, output_dir, format, started_at, finished_at, visited, exported, failed, cancelled
	FROM runs
	ORDER BY started_at DESC, id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID.
func (hdb *HistoryDB) GetRun(ctx context.Context, runID int64) (*RunRecord, error) {
	query := `
	SELECT id, root_url, output_dir, format, started_at, finished_at, visited, exported, failed, cancelled
	FROM runs
	WHERE id = ?
	`

	run, err := scanRun(hdb.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRunSummary returns the summary stored by FinishRun.
func (hdb *HistoryDB) GetRunSummary(ctx context.Context, runID int64) (*model.Summary, error) {
	var summaryJSON sql.NullString
	err := hdb.db.QueryRowContext(ctx, "SELECT summary_json FROM runs WHERE id = ?", runID).Scan(&summaryJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run summary: %w", err)
	}
	if !summaryJSON.Valid || summaryJSON.String == "" {
		return nil, nil
	}

	var summary model.Summary
	if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse run summary: %w", err)
	}
	return &summary, nil
}

// GetRunExports returns the export attempts of a run in the order they
// were recorded.
func (hdb *HistoryDB) GetRunExports(ctx context.Context, runID int64) ([]ExportRecord, error) {
	query := `
	SELECT id, run_id, url, directory, path, title, sequence, success, recorded_at
	FROM exports
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := hdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run exports: %w", err)
	}
	defer rows.Close()

	var records []ExportRecord
	for rows.Next() {
		var rec ExportRecord
		var path, title sql.NullString
		var sequence sql.NullInt64
		var success int
		var recordedAt string

		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.URL,
			&rec.Directory,
			&path,
			&title,
			&sequence,
			&success,
			&recordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		rec.Path = path.String
		rec.Title = title.String
		rec.Sequence = int(sequence.Int64)
		rec.Success = success != 0
		rec.RecordedAt = parseTimestamp(recordedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var run RunRecord
	var startedAt string
	var finishedAt sql.NullString
	var cancelled int

	err := row.Scan(
		&run.ID,
		&run.RootURL,
		&run.OutputDir,
		&run.Format,
		&startedAt,
		&finishedAt,
		&run.Visited,
		&run.Exported,
		&run.Failed,
		&cancelled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	run.Cancelled = cancelled != 0
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatTimestamp stores times as UTC RFC 3339 text, which sorts
// chronologically as a string.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampLayout has a fixed-width fraction so that string order matches
// time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
