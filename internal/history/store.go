// Package history records finished runs in a local sqlite database and
// renders them into spreadsheet reports.
//
// History is additive observability. A run that cannot be recorded is
// still a successful run; callers log store errors and move on rather
// than failing the batch.
package history

/*
freqscan — batch frequency scoring for domain names with the freq tool
Copyright (C) 2026  Pepijn van der Stap <freqscan@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/x-stp/freqscan/internal/core"
)

// Store wraps the run-history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and
// makes sure the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening history database %s: %w", path, err)
	}

	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		mode TEXT,
		whois INTEGER,
		table_path TEXT,
		table_created INTEGER,
		corpus_fingerprint TEXT,
		files_processed INTEGER,
		candidates INTEGER,
		scored INTEGER,
		skipped INTEGER,
		filtered INTEGER,
		status TEXT,
		error TEXT
	);
	`
	filesTable := `
	CREATE TABLE IF NOT EXISTS run_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		input_file TEXT,
		output_file TEXT,
		rows_written INTEGER,
		skipped INTEGER,
		filtered INTEGER
	);
	`
	if _, err := db.Exec(runsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating runs table: %w", err)
	}
	if _, err := db.Exec(filesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating run_files table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun records one finished run and its per-file stats. runErr is
// whatever the run returned; nil marks a clean batch.
func (s *Store) SaveRun(sum *core.RunSummary, runErr error) error {
	status := "ok"
	errMsg := ""
	if runErr != nil {
		status = "error"
		errMsg = runErr.Error()
	}

	_, err := s.db.Exec(`INSERT INTO runs
		(id, started_at, finished_at, mode, whois, table_path, table_created, corpus_fingerprint,
		 files_processed, candidates, scored, skipped, filtered, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.StartTime.UTC(), sum.EndTime.UTC(), sum.Mode, sum.Whois,
		sum.TablePath, sum.TableCreated, sum.CorpusFingerprint,
		sum.FilesProcessed, sum.Candidates, sum.Scored, sum.Skipped, sum.Filtered,
		status, errMsg)
	if err != nil {
		return fmt.Errorf("error inserting run %s: %w", sum.RunID, err)
	}

	for _, fs := range sum.Files {
		_, err := s.db.Exec(`INSERT INTO run_files
			(run_id, input_file, output_file, rows_written, skipped, filtered)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sum.RunID, fs.InputFile, fs.OutputFile, fs.Rows, fs.Skipped, fs.Filtered)
		if err != nil {
			return fmt.Errorf("error inserting run file %s: %w", fs.InputFile, err)
		}
	}
	return nil
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID                string
	StartedAt         time.Time
	FinishedAt        time.Time
	Mode              string
	Whois             bool
	TablePath         string
	TableCreated      bool
	CorpusFingerprint string
	FilesProcessed    int64
	Candidates        int64
	Scored            int64
	Skipped           int64
	Filtered          int64
	Status            string
	Error             string
}

// FileRecord is one row of the run_files table.
type FileRecord struct {
	RunID      string
	InputFile  string
	OutputFile string
	Rows       int64
	Skipped    int64
	Filtered   int64
}

// ListRuns returns every recorded run, newest first.
func (s *Store) ListRuns() ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT id, started_at, finished_at, mode, whois, table_path,
		table_created, corpus_fingerprint, files_processed, candidates, scored, skipped,
		filtered, status, error
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("error listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Mode, &r.Whois,
			&r.TablePath, &r.TableCreated, &r.CorpusFingerprint, &r.FilesProcessed,
			&r.Candidates, &r.Scored, &r.Skipped, &r.Filtered, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("error scanning run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListFiles returns every per-file record, newest run first, files in
// the order they were processed.
func (s *Store) ListFiles() ([]FileRecord, error) {
	rows, err := s.db.Query(`SELECT rf.run_id, rf.input_file, rf.output_file,
		rf.rows_written, rf.skipped, rf.filtered
		FROM run_files rf
		JOIN runs r ON r.id = rf.run_id
		ORDER BY r.started_at DESC, rf.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("error listing run files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.RunID, &f.InputFile, &f.OutputFile,
			&f.Rows, &f.Skipped, &f.Filtered); err != nil {
			return nil, fmt.Errorf("error scanning run file row: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
