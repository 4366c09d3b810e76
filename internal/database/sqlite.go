package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"prem-rta/internal/logging"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"
)

const sqliteBatchSize = 1000

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	name TEXT,
	description TEXT,
	checksum TEXT,
	started TEXT,
	finished TEXT,
	systems INTEGER,
	policies TEXT,
	hostname TEXT,
	cpu_model TEXT,
	config_file TEXT
);`,
	`CREATE TABLE IF NOT EXISTS systems (
	run_id TEXT,
	policy TEXT,
	utilisation REAL,
	memory_share_min INTEGER,
	memory_share_max INTEGER,
	idx INTEGER,
	processors INTEGER,
	tasks INTEGER,
	analysable INTEGER,
	schedulable INTEGER,
	calls INTEGER,
	elapsed_ns INTEGER,
	record TEXT
);`,
	`CREATE TABLE IF NOT EXISTS summaries (
	run_id TEXT,
	policy TEXT,
	utilisation REAL,
	memory_share_min INTEGER,
	memory_share_max INTEGER,
	systems INTEGER,
	analysable INTEGER,
	schedulable INTEGER,
	ratio REAL
);`,
}

const insertSystemSQL = `INSERT INTO systems VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteSink records campaign results into a local SQLite file. System
// rows are buffered and written in batches inside one transaction.
type SQLiteSink struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	pending []*SystemResult
}

// DefaultSQLitePath returns a fresh file name for a recording.
func DefaultSQLitePath() string {
	return "prem_rta_results_" + xid.New().String() + ".sqlite3"
}

// NewSQLiteSink opens (or creates) the database at path. An empty path
// picks DefaultSQLitePath. Buffered rows are flushed at process exit.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if path == "" {
		path = DefaultSQLitePath()
	}
	if !strings.HasSuffix(path, ".sqlite3") && !strings.HasSuffix(path, ".db") {
		path += ".sqlite3"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	s := &SQLiteSink{db: db, path: path}
	atexit.Register(func() { _ = s.Flush() })

	logging.GetLogger().WithField("path", path).Info("Recording results to SQLite")
	return s, nil
}

func (s *SQLiteSink) Path() string {
	return s.path
}

// DB exposes the underlying handle for queries.
func (s *SQLiteSink) DB() *sql.DB {
	return s.db
}

func (s *SQLiteSink) WriteRun(ctx context.Context, run *RunMetadata) error {
	hostname, cpuModel := "", ""
	if run.Host != nil {
		hostname, cpuModel = run.Host.Hostname, run.Host.CPUModel
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Name, run.Description, run.Checksum,
		run.Started.UTC().Format("2006-01-02T15:04:05Z"),
		run.Finished.UTC().Format("2006-01-02T15:04:05Z"),
		run.Systems, strings.Join(run.Policies, ","), hostname, cpuModel, run.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to write run metadata: %w", err)
	}
	return nil
}

func (s *SQLiteSink) WriteSystem(ctx context.Context, result *SystemResult) error {
	s.mu.Lock()
	s.pending = append(s.pending, result)
	full := len(s.pending) >= sqliteBatchSize
	s.mu.Unlock()

	if full {
		return s.FlushContext(ctx)
	}
	return nil
}

func (s *SQLiteSink) WriteSummary(ctx context.Context, summary *Summary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.Policy, summary.Utilisation,
		summary.MemoryShareMin, summary.MemoryShareMax,
		summary.Systems, summary.Analysable, summary.Schedulable, summary.Ratio)
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Flush() error {
	return s.FlushContext(context.Background())
}

// FlushContext writes all buffered system rows in one transaction.
func (s *SQLiteSink) FlushContext(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertSystemSQL)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range s.pending {
		_, err := stmt.ExecContext(ctx,
			r.RunID, r.Policy, r.Utilisation, r.MemoryShareMin, r.MemoryShareMax,
			r.Index, r.Processors, r.Tasks, r.Analysable, r.Schedulable,
			r.Calls, r.Elapsed.Nanoseconds(), r.Record)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert system row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logging.GetLogger().WithFields(logrus.Fields{
		"path": s.path,
		"rows": len(s.pending),
	}).Debug("Flushed system rows")
	s.pending = nil
	return nil
}

func (s *SQLiteSink) Close() error {
	if err := s.Flush(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
