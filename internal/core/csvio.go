package core

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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// Output column headers. The plain variant carries the candidate and
// its score; the WhoIs variant adds registration data.
var (
	scoreHeader = []string{"Input", "Score"}
	whoisHeader = []string{"Input", "Score", "Created", "Updated", "Registrant", "RegistrantState", "RegistrantCountry"}
)

// InputReader walks the first column of an input CSV.
// The first record is discarded as a header no matter what it holds,
// and rows the parser rejects are counted rather than fatal; input
// files come from many hands and many exporters.
type InputReader struct {
	f       *os.File
	r       *csv.Reader
	row     int
	badRows int64
}

// OpenInput opens path for candidate extraction.
func OpenInput(path string) (*InputReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening input file %s: %w", path, err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // column counts vary across exports
	r.LazyQuotes = true
	return &InputReader{f: f, r: r}, nil
}

// Scan returns the next candidate value and true, or "" and false when
// the file is exhausted. The value is the raw first column; trimming
// and emptiness are the caller's concern.
func (ir *InputReader) Scan() (string, bool) {
	for {
		rec, err := ir.r.Read()
		if err == io.EOF {
			return "", false
		}
		ir.row++
		if err != nil {
			// A parse error spoils one record. The header slot does
			// not count as a lost candidate; anything that is not a
			// parse error means the file itself went bad.
			if ir.row > 1 {
				ir.badRows++
			}
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return "", false
			}
			continue
		}
		if ir.row == 1 || len(rec) == 0 {
			continue
		}
		return rec[0], true
	}
}

// BadRows reports how many records the parser rejected so far.
func (ir *InputReader) BadRows() int64 {
	return ir.badRows
}

// Close releases the underlying file.
func (ir *InputReader) Close() error {
	return ir.f.Close()
}

// OutputWriter appends rows to a per-input output CSV, writing the
// header only when the file starts out empty. Existing rows are never
// touched; reruns of the same inputs append below them.
type OutputWriter struct {
	path string
	f    *os.File
	w    *csv.Writer
}

// OpenOutput opens (creating if needed) the output file at path in
// append mode, emitting header first when the file has no content yet.
func OpenOutput(path string, header []string) (*OutputWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening output file %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error checking output file %s: %w", path, err)
	}

	ow := &OutputWriter{path: path, f: f, w: csv.NewWriter(f)}
	if fi.Size() == 0 {
		if err := ow.WriteRow(header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return ow, nil
}

// WriteRow appends one record and flushes it through to the file, so a
// write failure surfaces on the row that caused it and earlier rows
// survive a crash.
func (ow *OutputWriter) WriteRow(record []string) error {
	if err := ow.w.Write(record); err != nil {
		return fmt.Errorf("error writing row to %s: %w", ow.path, err)
	}
	ow.w.Flush()
	if err := ow.w.Error(); err != nil {
		return fmt.Errorf("error writing row to %s: %w", ow.path, err)
	}
	return nil
}

// Close flushes anything buffered and closes the file.
func (ow *OutputWriter) Close() error {
	ow.w.Flush()
	if err := ow.w.Error(); err != nil {
		ow.f.Close()
		return fmt.Errorf("error flushing output file %s: %w", ow.path, err)
	}
	return ow.f.Close()
}
