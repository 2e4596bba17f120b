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
	"time"

	"github.com/google/uuid"

	"github.com/x-stp/freqscan/internal/metrics"
)

// SkipReason classifies why a candidate produced no output row.
type SkipReason string

// Skip reasons recorded per candidate. read_error covers rows the CSV
// parser rejected; the others name the pipeline stage that refused the
// candidate.
const (
	SkipReadError   SkipReason = "read_error"
	SkipEmptyValue  SkipReason = "empty_value"
	SkipWhoisError  SkipReason = "whois_error"
	SkipScorerError SkipReason = "scorer_error"
	SkipWriteError  SkipReason = "write_error"
)

// FileStats counts what one input file contributed to a run.
type FileStats struct {
	InputFile  string
	OutputFile string
	Rows       int64 // output rows written
	Skipped    int64
	Filtered   int64 // dropped by the registration-age cutoff
}

// RunSummary aggregates one batch run end to end.
// Candidates = Scored + Skipped + Filtered holds at all times; every
// candidate read lands in exactly one bucket.
type RunSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time

	Mode  string // "exe" or "py"
	Whois bool

	TablePath         string
	TableCreated      bool
	CorpusFingerprint string

	FilesProcessed int64
	Candidates     int64
	Scored         int64
	Skipped        int64
	Filtered       int64
	WhoisCacheHits int64

	SkippedBy map[SkipReason]int64
	Files     []FileStats
}

// NewRunSummary seeds a summary with a fresh run ID and start time.
func NewRunSummary(mode string, whoisEnabled bool) *RunSummary {
	return &RunSummary{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
		Mode:      mode,
		Whois:     whoisEnabled,
		SkippedBy: make(map[SkipReason]int64),
	}
}

// skip records one skipped candidate under reason, at run level, file
// level and in the metrics registry, so the three never diverge.
func (s *RunSummary) skip(fs *FileStats, reason SkipReason) {
	s.Skipped++
	s.SkippedBy[reason]++
	fs.Skipped++
	metrics.Get().CandidateSkipped(fs.InputFile, string(reason))
}

// Duration is wall time from start to finish of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}
