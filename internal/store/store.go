// Package store persists log records and API keys in SQLite under a storage
// root directory:
//
//	rootDir/
//	  uls.db          # logs + api_keys tables
//	  exports/        # server-side CSV exports, one file per export
package store

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ulsys/uls/internal/logging"
	"github.com/ulsys/uls/internal/model"

	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNoLogs is returned by ExportCSV when the store holds no log records.
var ErrNoLogs = errors.New("no logs to export")

// csvHeader is the column order of exported CSV files.
var csvHeader = []string{"timestamp", "service", "level", "message", "server", "trace_id"}

// Store manages log and API-key persistence plus the exports directory.
type Store struct {
	db        *sql.DB
	exportDir string
	logger    logging.Logger
}

// Open opens (creating when necessary) the SQLite database at
// rootDir/uls.db, runs migrations from schema.sql and ensures the
// exports directory exists.
func Open(rootDir string, logger logging.Logger) (*Store, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("rootDir is required")
	}
	rootDir = filepath.Clean(rootDir)
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure rootDir %s: %w", rootDir, err)
	}
	exportDir := filepath.Join(rootDir, "exports")
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure export dir %s: %w", exportDir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(rootDir, "uls.db"))
	if err != nil {
		return nil, fmt.Errorf("opening log database: %w", err)
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Store{db: db, exportDir: exportDir, logger: logger}, nil
}

// AppendLog inserts a single log record.
func (s *Store) AppendLog(ctx context.Context, e model.LogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (timestamp, service, level, message, server, trace_id)
         VALUES (?, ?, ?, ?, ?, ?)`,
		string(e.Timestamp), e.Service, e.Level, e.Message, e.Server, e.TraceID,
	)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// ListLogs returns all log records, newest first. Insertion order breaks
// timestamp ties so repeated reads are stable.
func (s *Store) ListLogs(ctx context.Context) ([]model.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, service, level, message, server, trace_id
         FROM logs
         ORDER BY timestamp DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	logs := []model.LogEntry{}
	for rows.Next() {
		var e model.LogEntry
		var ts string
		if err := rows.Scan(&ts, &e.Service, &e.Level, &e.Message, &e.Server, &e.TraceID); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		e.Timestamp = model.Timestamp(ts)
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

// CountLogs returns the number of stored log records.
func (s *Store) CountLogs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count logs: %w", err)
	}
	return n, nil
}

// ClearLogs deletes every stored log record.
func (s *Store) ClearLogs(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM logs`); err != nil {
		return fmt.Errorf("clear logs: %w", err)
	}
	return nil
}

// AddKey stores a newly generated API key.
func (s *Store) AddKey(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (key, created_at) VALUES (?, ?)`,
		key, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// ValidKey reports whether key matches a previously generated API key.
func (s *Store) ValidKey(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM api_keys WHERE key = ? LIMIT 1`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup api key: %w", err)
	}
	return true, nil
}

// ExportCSV renders all logs as CSV in insertion order, writes a
// timestamped copy under the exports directory and returns both the
// server-side path and the rendered bytes. Returns ErrNoLogs when the
// store is empty.
func (s *Store) ExportCSV(ctx context.Context) (string, []byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, service, level, message, server, trace_id
         FROM logs
         ORDER BY id ASC`,
	)
	if err != nil {
		return "", nil, fmt.Errorf("query logs for export: %w", err)
	}
	defer rows.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", nil, fmt.Errorf("write csv header: %w", err)
	}

	count := 0
	for rows.Next() {
		var ts, service, level, message, server, traceID string
		if err := rows.Scan(&ts, &service, &level, &message, &server, &traceID); err != nil {
			return "", nil, fmt.Errorf("scan log row: %w", err)
		}
		if err := w.Write([]string{ts, service, level, message, server, traceID}); err != nil {
			return "", nil, fmt.Errorf("write csv row: %w", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return "", nil, err
	}
	if count == 0 {
		return "", nil, ErrNoLogs
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, fmt.Errorf("flush csv: %w", err)
	}

	path := filepath.Join(s.exportDir, fmt.Sprintf("logs_%s.csv", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", nil, fmt.Errorf("save export %s: %w", path, err)
	}
	if s.logger != nil {
		s.logger.Info("exported logs to csv",
			logging.Field{Key: "path", Value: path},
			logging.Field{Key: "rows", Value: count})
	}

	return path, buf.Bytes(), nil
}

// DB exposes the underlying database handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
