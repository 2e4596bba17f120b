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
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"github.com/x-stp/freqscan/internal/util"
)

// FrequencyScorer is the slice of the freq tool the pipeline needs.
// *scorer.Scorer satisfies it; tests swap in fakes.
type FrequencyScorer interface {
	CreateTable(ctx context.Context, tablePath string) error
	TrainFile(ctx context.Context, corpusFile, tablePath string) error
	Measure(ctx context.Context, value, tablePath string) (string, error)
}

// TableInfo describes the frequency table a run scored against.
type TableInfo struct {
	Path              string
	Created           bool   // true when this call built the table
	CorpusFingerprint string // xxh3 over corpus names and contents
	CorpusFiles       int
}

// EnsureTable makes sure today's frequency table exists under baseDir,
// training it from every file in normalDir when it does not.
//
// The table name is derived from now, so the first run of a day trains
// a fresh table and every later run that day reuses it untouched. An
// existing table is trusted as-is; the corpus fingerprint is computed
// either way so a run can be correlated with the corpus state it
// scored against.
// Operation: blocking. Table training shells out to freq once per
// corpus file and can take a while on large corpora.
func EnsureTable(ctx context.Context, sc FrequencyScorer, baseDir, normalDir string, now time.Time) (*TableInfo, error) {
	info := &TableInfo{
		Path: filepath.Join(baseDir, util.TableFileName(now)),
	}

	corpus, err := listFiles(normalDir)
	if err != nil {
		return nil, err
	}
	info.CorpusFiles = len(corpus)

	if fp, err := fingerprintFiles(corpus); err != nil {
		logrus.Warnf("Could not fingerprint corpus: %v", err)
	} else {
		info.CorpusFingerprint = fp
	}

	if _, err := os.Stat(info.Path); err == nil {
		logrus.Debugf("Frequency table %s already exists, reusing it", info.Path)
		return info, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("error checking frequency table %s: %w", info.Path, err)
	}

	logrus.Infof("Training frequency table %s from %d corpus file(s)", info.Path, len(corpus))
	if err := sc.CreateTable(ctx, info.Path); err != nil {
		return nil, err
	}
	for _, cf := range corpus {
		if err := sc.TrainFile(ctx, cf, info.Path); err != nil {
			return nil, fmt.Errorf("error training table from %s: %w", cf, err)
		}
	}
	info.Created = true
	return info, nil
}

// listFiles returns the regular files directly under dir, joined with
// dir. os.ReadDir sorts by name, which keeps run order stable across
// filesystems.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// fingerprintFiles hashes file basenames and contents, in order, into
// one 64-bit fingerprint string.
func fingerprintFiles(paths []string) (string, error) {
	h := xxh3.New()
	for _, p := range paths {
		if _, err := h.WriteString(filepath.Base(p)); err != nil {
			return "", err
		}
		f, err := os.Open(p)
		if err != nil {
			return "", fmt.Errorf("error opening corpus file %s: %w", p, err)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("error hashing corpus file %s: %w", p, err)
		}
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
