// Package index maintains a sqlite ledger of cached module transformations.
// The disk cache alone is content-addressed and opaque; the index is what
// makes it inspectable (ls, stats) and prunable without guessing at paths.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"remod/internal/logging"
)

// DBName is the ledger filename under the .remod directory.
const DBName = "index.db"

// Store is the cache ledger.
type Store struct {
	conn   *sql.DB
	logger *logging.Logger
	path   string
}

// Entry is one recorded transformation.
type Entry struct {
	Key       string    `json:"key"`
	Source    string    `json:"source"`
	TableID   string    `json:"tableId"`
	RequestID string    `json:"requestId"`
	Mode      string    `json:"mode"`
	Location  string    `json:"location"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// EdgeRow is one resolved dependency edge recorded during a walk.
type EdgeRow struct {
	RequestID string `json:"requestId" yaml:"requestId"`
	From      string `json:"from" yaml:"from"`
	Specifier string `json:"specifier" yaml:"specifier"`
	Resolved  string `json:"resolved" yaml:"resolved"`
	Rewritten string `json:"rewritten" yaml:"rewritten"`
	Role      string `json:"role" yaml:"role"`
}

// Open opens or creates the ledger under dir (usually <root>/.remod).
func Open(dir string, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, DBName)
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{conn: conn, logger: logger, path: path}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS modules (
		key        TEXT PRIMARY KEY,
		source     TEXT NOT NULL,
		table_id   TEXT NOT NULL,
		request_id TEXT NOT NULL,
		mode       TEXT NOT NULL,
		location   TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_modules_source ON modules(source);
	CREATE INDEX IF NOT EXISTS idx_modules_created ON modules(created_at);

	CREATE TABLE IF NOT EXISTS edges (
		request_id TEXT NOT NULL,
		from_src   TEXT NOT NULL,
		specifier  TEXT NOT NULL,
		resolved   TEXT NOT NULL,
		rewritten  TEXT NOT NULL,
		role       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_edges_request ON edges(request_id);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize index schema: %w", err)
	}
	return nil
}

// Close closes the ledger.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Record upserts an entry. Re-recording the same key is expected: content
// addressing means repeated transforms of unchanged input share a key.
func (s *Store) Record(e Entry) error {
	_, err := s.conn.Exec(`
		INSERT OR REPLACE INTO modules (key, source, table_id, request_id, mode, location, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Key, e.Source, e.TableID, e.RequestID, e.Mode, e.Location, e.SizeBytes, e.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record module: %w", err)
	}
	return nil
}

// RecordEdge stores a resolved dependency edge for graph export.
func (s *Store) RecordEdge(e EdgeRow) error {
	_, err := s.conn.Exec(`
		INSERT INTO edges (request_id, from_src, specifier, resolved, rewritten, role)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.RequestID, e.From, e.Specifier, e.Resolved, e.Rewritten, e.Role)
	if err != nil {
		return fmt.Errorf("failed to record edge: %w", err)
	}
	return nil
}

// List returns entries newest first, up to limit (0 means all).
func (s *Store) List(limit int) ([]Entry, error) {
	query := `SELECT key, source, table_id, request_id, mode, location, size_bytes, created_at
		FROM modules ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EdgesForRequest returns the edges recorded under one request id.
func (s *Store) EdgesForRequest(requestID string) ([]EdgeRow, error) {
	rows, err := s.conn.Query(`
		SELECT request_id, from_src, specifier, resolved, rewritten, role
		FROM edges WHERE request_id = ?
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []EdgeRow
	for rows.Next() {
		var e EdgeRow
		if err := rows.Scan(&e.RequestID, &e.From, &e.Specifier, &e.Resolved, &e.Rewritten, &e.Role); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// PruneOlderThan deletes entries created before cutoff and returns them so
// the caller can remove the cache files they point at.
func (s *Store) PruneOlderThan(cutoff time.Time) ([]Entry, error) {
	rows, err := s.conn.Query(`
		SELECT key, source, table_id, request_id, mode, location, size_bytes, created_at
		FROM modules WHERE created_at < ?
	`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query prunable modules: %w", err)
	}

	var pruned []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		pruned = append(pruned, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := s.conn.Exec(`DELETE FROM modules WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("failed to prune modules: %w", err)
	}

	s.logger.Debug("Pruned index entries", map[string]interface{}{
		"count": len(pruned),
	})
	return pruned, nil
}

// Stats summarizes the ledger.
type Stats struct {
	Entries    int   `json:"entries"`
	TotalBytes int64 `json:"totalBytes"`
	Sources    int   `json:"sources"`
}

// Stats returns entry count, total cached bytes, and distinct sources.
func (s *Store) Stats() (*Stats, error) {
	var st Stats
	err := s.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(size_bytes), 0), COUNT(DISTINCT source)
		FROM modules
	`).Scan(&st.Entries, &st.TotalBytes, &st.Sources)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return &st, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(rows rowScanner) (Entry, error) {
	var e Entry
	var createdAt string
	if err := rows.Scan(&e.Key, &e.Source, &e.TableID, &e.RequestID, &e.Mode, &e.Location, &e.SizeBytes, &createdAt); err != nil {
		return Entry{}, fmt.Errorf("failed to scan module row: %w", err)
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid created_at format: %w", err)
	}
	e.CreatedAt = t
	return e, nil
}
