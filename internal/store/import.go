package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"phytovet/internal/logging"
)

// ImportStats summarizes a bulk load.
type ImportStats struct {
	Codes int
	Names int
}

// ImportCSV bulk-loads the reference tables from the EPPO data-export CSVs.
// The codes file carries codeid,eppocode,dtcode,status rows; the names file
// codeid,fullname,status. Both loads run inside one transaction so a partial
// import never becomes visible.
func (s *RefStore) ImportCSV(codesPath, namesPath string) (ImportStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats ImportStats

	tx, err := s.db.Begin()
	if err != nil {
		return stats, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	codesFile, err := os.Open(codesPath)
	if err != nil {
		return stats, fmt.Errorf("failed to open codes file: %w", err)
	}
	defer codesFile.Close()

	codeStmt, err := tx.Prepare("INSERT OR REPLACE INTO t_codes (codeid, eppocode, dtcode, status) VALUES (?, ?, ?, ?)")
	if err != nil {
		return stats, fmt.Errorf("failed to prepare codes insert: %w", err)
	}
	defer codeStmt.Close()

	codesReader := csv.NewReader(codesFile)
	if err := expectHeader(codesReader, []string{"codeid", "eppocode", "dtcode", "status"}); err != nil {
		return stats, fmt.Errorf("codes file: %w", err)
	}
	for {
		rec, err := codesReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("codes file row %d: %w", stats.Codes+2, err)
		}
		codeID, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return stats, fmt.Errorf("codes file row %d: bad codeid %q", stats.Codes+2, rec[0])
		}
		if _, err := codeStmt.Exec(codeID, rec[1], rec[2], rec[3]); err != nil {
			return stats, fmt.Errorf("failed to insert code %s: %w", rec[1], err)
		}
		stats.Codes++
	}

	namesFile, err := os.Open(namesPath)
	if err != nil {
		return stats, fmt.Errorf("failed to open names file: %w", err)
	}
	defer namesFile.Close()

	nameStmt, err := tx.Prepare("INSERT OR REPLACE INTO t_names (codeid, fullname, status) VALUES (?, ?, ?)")
	if err != nil {
		return stats, fmt.Errorf("failed to prepare names insert: %w", err)
	}
	defer nameStmt.Close()

	namesReader := csv.NewReader(namesFile)
	if err := expectHeader(namesReader, []string{"codeid", "fullname", "status"}); err != nil {
		return stats, fmt.Errorf("names file: %w", err)
	}
	for {
		rec, err := namesReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("names file row %d: %w", stats.Names+2, err)
		}
		codeID, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return stats, fmt.Errorf("names file row %d: bad codeid %q", stats.Names+2, rec[0])
		}
		if _, err := nameStmt.Exec(codeID, rec[1], rec[2]); err != nil {
			return stats, fmt.Errorf("failed to insert name %q: %w", rec[1], err)
		}
		stats.Names++
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("failed to commit import: %w", err)
	}

	logging.Store("imported %d codes and %d names from %s, %s", stats.Codes, stats.Names, codesPath, namesPath)
	return stats, nil
}

func expectHeader(r *csv.Reader, want []string) error {
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("missing header: %w", err)
	}
	if len(header) != len(want) {
		return fmt.Errorf("header %v, want %v", header, want)
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(col), want[i]) {
			return fmt.Errorf("header %v, want %v", header, want)
		}
	}
	return nil
}
