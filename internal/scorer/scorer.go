package scorer

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

/*
Package scorer runs the external freq character-frequency tool as a
subprocess. The frequency model itself lives entirely in freq; this package
only builds argv lists for its three operations (create a table, fold a
corpus file into a table, measure a value against a table) and captures
stdout.

Every invocation is fire-and-wait. Arguments are passed as separate argv
elements, never through a shell, so candidate values containing shell
metacharacters are inert.
*/

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/x-stp/freqscan/internal/metrics"
)

// Mode selects how the freq tool is launched.
type Mode int

const (
	// ModeExe invokes the compiled freq.exe from the bin directory.
	ModeExe Mode = iota
	// ModePy invokes freq.py from the bin directory through a Python interpreter.
	ModePy
)

// String returns the flag-facing name of the mode.
func (m Mode) String() string {
	if m == ModePy {
		return "py"
	}
	return "exe"
}

// Binary names expected inside the bin directory.
const (
	ExeName = "freq.exe"
	PyName  = "freq.py"
)

// DefaultPython is the interpreter used for ModePy when none is configured.
const DefaultPython = "python3"

// stderrTailLen bounds how much of a freq traceback ends up in an error.
const stderrTailLen = 300

// Scorer invokes the freq tool.
// Operation: blocking subprocess calls; ctx cancellation kills the child.
type Scorer struct {
	mode   Mode
	binDir string
	python string
}

// New returns a Scorer for the given mode and bin directory.
// python is only used in ModePy; empty selects DefaultPython.
func New(mode Mode, binDir, python string) *Scorer {
	if python == "" {
		python = DefaultPython
	}
	return &Scorer{mode: mode, binDir: binDir, python: python}
}

// Mode reports which invocation mode the scorer was built with.
func (s *Scorer) Mode() Mode {
	return s.mode
}

// Argv builds the full argument vector for one freq invocation.
func (s *Scorer) Argv(args ...string) []string {
	switch s.mode {
	case ModePy:
		return append([]string{s.python, filepath.Join(s.binDir, PyName)}, args...)
	default:
		return append([]string{filepath.Join(s.binDir, ExeName)}, args...)
	}
}

// run executes one freq invocation and returns trimmed stdout.
func (s *Scorer) run(ctx context.Context, op string, args ...string) (string, error) {
	argv := s.Argv(args...)
	logrus.Debugf("freq %s: %q", op, argv)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.Get().ObserveScorer(op, status, time.Since(start))

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("freq %s failed: %w (stderr: %s)", op, err, stderrTail(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// stderrTail keeps error messages bounded when freq dumps a long traceback.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTailLen {
		return "..." + s[len(s)-stderrTailLen:]
	}
	return s
}

// CreateTable initializes an empty frequency table file.
func (s *Scorer) CreateTable(ctx context.Context, tablePath string) error {
	_, err := s.run(ctx, "create", "--create", tablePath)
	return err
}

// TrainFile folds one corpus file into the table.
func (s *Scorer) TrainFile(ctx context.Context, corpusFile, tablePath string) error {
	_, err := s.run(ctx, "normalfile", "--normalfile", corpusFile, tablePath)
	return err
}

// Measure scores a single value against the table.
// The returned score is freq's raw stdout with surrounding whitespace
// trimmed; callers treat it as opaque text, not a number.
func (s *Scorer) Measure(ctx context.Context, value, tablePath string) (string, error) {
	return s.run(ctx, "measure", "--measure", value, tablePath)
}
