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
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/x-stp/freqscan/internal/config"
	"github.com/x-stp/freqscan/internal/metrics"
	"github.com/x-stp/freqscan/internal/util"
	"github.com/x-stp/freqscan/internal/whois"
)

// WhoisLookup is the slice of the WhoIs client the pipeline needs.
// *whois.Client satisfies it; tests swap in fakes.
type WhoisLookup interface {
	Lookup(ctx context.Context, domain string) (*whois.Record, error)
	CacheHits() int64
}

// Runner drives one batch run: precondition gate, frequency table
// bootstrap, then every input file in name order.
// Goal: feed raw first-column values through freq (and optionally
// WhoIs) and append the results to per-input output CSVs.
// Concurrency: none. Candidates are scored strictly in input order and
// rows land in the order they were read.
type Runner struct {
	cfg    *config.Config
	scorer FrequencyScorer
	whois  WhoisLookup // nil in plain mode
	mode   string

	now func() time.Time // swapped in tests to pin the age gate
}

// NewRunner wires a runner. who == nil runs the plain pipeline; a
// non-nil who switches every input file to WhoIs-enriched output.
func NewRunner(cfg *config.Config, sc FrequencyScorer, who WhoisLookup, mode string) *Runner {
	return &Runner{cfg: cfg, scorer: sc, whois: who, mode: mode, now: time.Now}
}

// Run executes the batch. The returned summary is non-nil even on
// error, so callers can report whatever progress was made.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	sum := NewRunSummary(r.mode, r.whois != nil)
	defer func() {
		sum.EndTime = time.Now()
		if r.whois != nil {
			sum.WhoisCacheHits = r.whois.CacheHits()
		}
	}()

	// 1. Precondition gate. A failure here is an operator problem, not
	// a pipeline one; the run stops before any scoring happens.
	if err := r.cfg.EnsureDirs(); err != nil {
		return sum, err
	}

	// 2. Today's frequency table.
	table, err := EnsureTable(ctx, r.scorer, r.cfg.BaseDir, r.cfg.NormalDir, r.now())
	if err != nil {
		return sum, fmt.Errorf("table bootstrap failed: %w", err)
	}
	sum.TablePath = table.Path
	sum.TableCreated = table.Created
	sum.CorpusFingerprint = table.CorpusFingerprint

	// 3. Every input file, in name order. A broken file is logged and
	// skipped; only cancellation stops the batch.
	inputs, err := listFiles(r.cfg.InputDir)
	if err != nil {
		return sum, err
	}
	for _, input := range inputs {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		if err := r.processFile(ctx, input, table.Path, sum); err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			logrus.Warnf("Skipping input file %s: %v", input, err)
			continue
		}
		sum.FilesProcessed++
	}
	return sum, nil
}

// processFile scores one input file into its output file.
func (r *Runner) processFile(ctx context.Context, inputPath, tablePath string, sum *RunSummary) error {
	name := filepath.Base(inputPath)

	outName := util.OutputFileName(name)
	header := scoreHeader
	if r.whois != nil {
		outName = util.WhoisOutputFileName(name)
		header = whoisHeader
	}
	outPath := filepath.Join(r.cfg.OutputDir, outName)

	in, err := OpenInput(inputPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := in.Close(); err != nil {
			logrus.Warnf("Error closing %s: %v", inputPath, err)
		}
	}()

	out, err := OpenOutput(outPath, header)
	if err != nil {
		return err
	}

	fs := FileStats{InputFile: name, OutputFile: outName}
	logrus.Infof("Scoring %s -> %s", name, outName)

	for ctx.Err() == nil {
		value, ok := in.Scan()
		if !ok {
			break
		}
		sum.Candidates++
		r.processCandidate(ctx, value, tablePath, out, &fs, sum)
	}

	// Records the CSV parser rejected are candidates we never saw.
	for i := int64(0); i < in.BadRows(); i++ {
		sum.Candidates++
		sum.skip(&fs, SkipReadError)
	}

	if err := out.Close(); err != nil {
		logrus.Warnf("Error closing %s: %v", outPath, err)
	}
	sum.Files = append(sum.Files, fs)
	return ctx.Err()
}

// processCandidate turns one raw first-column value into at most one
// output row. Every path out of here lands the candidate in exactly
// one of Scored, Skipped or Filtered.
func (r *Runner) processCandidate(ctx context.Context, raw, tablePath string, out *OutputWriter, fs *FileStats, sum *RunSummary) {
	value := strings.TrimSpace(raw)
	if value == "" {
		sum.skip(fs, SkipEmptyValue)
		return
	}

	var rec *whois.Record
	if r.whois != nil {
		var err error
		rec, err = r.whois.Lookup(ctx, value)
		if err != nil {
			logrus.Debugf("WhoIs lookup failed for %s: %v", value, err)
			sum.skip(fs, SkipWhoisError)
			return
		}

		// Age gate. A parseable creation date past the cutoff drops
		// the candidate before it costs a scorer run; a missing or
		// unparseable date bypasses the gate entirely.
		if created, ok := whois.ParseTimestamp(rec.CreatedDate); ok {
			age := int(r.now().Sub(created).Hours() / 24)
			if age > r.cfg.MaxAgeDays {
				sum.Filtered++
				fs.Filtered++
				metrics.Get().CandidateFiltered(fs.InputFile)
				return
			}
		}
	}

	score, err := r.scorer.Measure(ctx, value, tablePath)
	if err != nil {
		logrus.Debugf("Scorer failed for %s: %v", value, err)
		sum.skip(fs, SkipScorerError)
		return
	}

	row := []string{value, score}
	if r.whois != nil {
		row = append(row,
			formatDate(rec.CreatedDate),
			formatDate(rec.UpdatedDate),
			rec.Registrant.Organization,
			rec.Registrant.State,
			rec.Registrant.Country)
	}
	if err := out.WriteRow(row); err != nil {
		logrus.Warnf("Dropping row for %s: %v", value, err)
		sum.skip(fs, SkipWriteError)
		return
	}

	sum.Scored++
	fs.Rows++
	metrics.Get().CandidateScored(fs.InputFile)
	metrics.Get().RowWritten(fs.OutputFile)
}

// formatDate renders a WhoIs date as RFC 3339, or empty when the raw
// value does not parse. Output rows carry one uniform date format no
// matter which of the API's shapes the record used.
func formatDate(raw string) string {
	if t, ok := whois.ParseTimestamp(raw); ok {
		return t.Format(time.RFC3339)
	}
	return ""
}
