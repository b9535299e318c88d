// Package store implements the SQLite reference store over the EPPO code
// tables. Two tables participate: t_codes (one row per code and datatype)
// and t_names (name variants per code), joined on codeid. Only rows with
// active status take part in lookups.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"phytovet/internal/logging"
)

// RefStore wraps the SQLite reference database.
type RefStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NameRow is one joined (code, name) row returned by a lookup.
type NameRow struct {
	EPPOCode string
	DTCode   string
	FullName string
}

// Open initializes the SQLite database at the given path, creating the
// schema when it does not exist yet.
func Open(path string) (*RefStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &RefStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initialize creates the required tables.
func (s *RefStore) initialize() error {
	codesTable := `
	CREATE TABLE IF NOT EXISTS t_codes (
		codeid   INTEGER PRIMARY KEY,
		eppocode TEXT NOT NULL,
		dtcode   TEXT NOT NULL,
		status   TEXT NOT NULL DEFAULT 'A'
	);
	CREATE INDEX IF NOT EXISTS idx_codes_eppocode ON t_codes(eppocode);
	`

	namesTable := `
	CREATE TABLE IF NOT EXISTS t_names (
		nameid   INTEGER PRIMARY KEY AUTOINCREMENT,
		codeid   INTEGER NOT NULL,
		fullname TEXT NOT NULL,
		status   TEXT NOT NULL DEFAULT 'A',
		UNIQUE(codeid, fullname)
	);
	CREATE INDEX IF NOT EXISTS idx_names_codeid ON t_names(codeid);
	CREATE INDEX IF NOT EXISTS idx_names_fullname ON t_names(fullname);
	`

	for _, table := range []string{codesTable, namesTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *RefStore) Close() error {
	return s.db.Close()
}

// Path returns the database path the store was opened with.
func (s *RefStore) Path() string {
	return s.dbPath
}

// SearchNames returns every active (code, name) row whose name contains any
// of the given tokens as a substring. SQLite LIKE is case-insensitive for
// ASCII, which is the match rule the scorer expects. An empty token list
// returns no rows.
func (s *RefStore) SearchNames(tokens []string) ([]NameRow, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	conds := make([]string, len(tokens))
	args := make([]interface{}, len(tokens))
	for i, tok := range tokens {
		conds[i] = "n.fullname LIKE ?"
		args[i] = "%" + tok + "%"
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT c.eppocode, c.dtcode, n.fullname
		FROM t_codes c
		JOIN t_names n ON c.codeid = n.codeid
		WHERE c.status = 'A' AND n.status = 'A'
		  AND (%s)`, strings.Join(conds, " OR "))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		logging.StoreError("name lookup failed: %v", err)
		return nil, fmt.Errorf("name lookup failed: %w", err)
	}
	defer rows.Close()

	var out []NameRow
	for rows.Next() {
		var r NameRow
		if err := rows.Scan(&r.EPPOCode, &r.DTCode, &r.FullName); err != nil {
			return nil, fmt.Errorf("failed to scan name row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("name lookup failed: %w", err)
	}

	logging.StoreDebug("lookup for %d tokens returned %d rows", len(tokens), len(out))
	return out, nil
}

// InsertCode adds or replaces one t_codes row.
func (s *RefStore) InsertCode(codeID int64, eppoCode, dtCode, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO t_codes (codeid, eppocode, dtcode, status) VALUES (?, ?, ?, ?)",
		codeID, eppoCode, dtCode, status,
	)
	return err
}

// InsertName adds or replaces one t_names row.
func (s *RefStore) InsertName(codeID int64, fullName, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO t_names (codeid, fullname, status) VALUES (?, ?, ?)",
		codeID, fullName, status,
	)
	return err
}

// Counts returns the number of code and name rows, for import summaries.
func (s *RefStore) Counts() (codes, names int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err = s.db.QueryRow("SELECT COUNT(*) FROM t_codes").Scan(&codes); err != nil {
		return 0, 0, fmt.Errorf("failed to count codes: %w", err)
	}
	if err = s.db.QueryRow("SELECT COUNT(*) FROM t_names").Scan(&names); err != nil {
		return 0, 0, fmt.Errorf("failed to count names: %w", err)
	}
	return codes, names, nil
}
