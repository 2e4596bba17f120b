// Package config resolves the directory layout and settings a scan run
// works against.
//
// A run is anchored at a base directory (by default the directory the
// executable lives in) containing four well-known subdirectories:
//
//	Output/  scored CSVs, one or two per input file
//	Normal/  corpus files the frequency table is trained from
//	Input/   CSVs whose first column holds candidate values
//	Bin/     the freq tool (freq.py or freq.exe)
//
// EnsureDirs walks those preconditions in order and creates whatever is
// missing. A freshly created Normal, Input or Bin directory stops the
// run: each needs operator-supplied files before scoring can proceed.
package config

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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Well-known subdirectory names under the base directory.
const (
	OutputDirName = "Output"
	NormalDirName = "Normal"
	InputDirName  = "Input"
	BinDirName    = "Bin"
)

const (
	// DefaultMaxAgeDays is the registration-age cutoff for WhoIs runs.
	// Domains registered longer ago than this are dropped from output.
	DefaultMaxAgeDays = 180

	// APIKeyEnv names the environment variable holding the WhoIs API key.
	APIKeyEnv = "WHOIS_API_KEY"

	// HistoryDBName is the default run-history database filename.
	HistoryDBName = "freqscan.db"
)

// Precondition failures from EnsureDirs / EnsureCorpusDirs. Each names
// the operator action needed before the next run can go through.
var (
	ErrNormalMissing = errors.New("Normal directory was missing and has been created; add corpus files before running again")
	ErrNormalEmpty   = errors.New("Normal directory holds no corpus files")
	ErrInputMissing  = errors.New("Input directory was missing and has been created; add input CSVs before running again")
	ErrInputEmpty    = errors.New("Input directory holds no input files")
	ErrBinMissing    = errors.New("Bin directory was missing and has been created; place freq.py or freq.exe in it before running again")
)

// Config carries every knob a run needs. Zero values mean "use the
// default"; Resolve fills them in.
type Config struct {
	BaseDir   string
	OutputDir string
	NormalDir string
	InputDir  string
	BinDir    string

	// WhoIs enrichment. An empty APIKey leaves enrichment off.
	APIKey   string
	WhoisURL string
	WhoisRPS float64

	// MaxAgeDays is the registration-age cutoff in whole days.
	MaxAgeDays int

	// HistoryDB is the sqlite file runs are recorded in.
	// NoHistory clears it, disabling recording entirely.
	HistoryDB string
	NoHistory bool
}

// DefaultBaseDir is the directory the running executable lives in,
// falling back to the working directory when that cannot be resolved.
func DefaultBaseDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// Resolve fills unset fields from their defaults. Call it once, before
// any directory checks or runs.
func (c *Config) Resolve() {
	if c.BaseDir == "" {
		c.BaseDir = DefaultBaseDir()
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.BaseDir, OutputDirName)
	}
	if c.NormalDir == "" {
		c.NormalDir = filepath.Join(c.BaseDir, NormalDirName)
	}
	if c.InputDir == "" {
		c.InputDir = filepath.Join(c.BaseDir, InputDirName)
	}
	if c.BinDir == "" {
		c.BinDir = filepath.Join(c.BaseDir, BinDirName)
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = DefaultMaxAgeDays
	}
	if c.APIKey == "" {
		c.APIKey = keyFromEnv(c.BaseDir)
	}
	if c.NoHistory {
		c.HistoryDB = ""
	} else if c.HistoryDB == "" {
		c.HistoryDB = filepath.Join(c.BaseDir, HistoryDBName)
	}
}

// WhoisEnabled reports whether runs should enrich rows with WhoIs data.
func (c *Config) WhoisEnabled() bool {
	return c.APIKey != ""
}

// EnsureDirs checks the four run directories in order, creating any
// that are missing. The first unmet precondition stops the check.
func (c *Config) EnsureDirs() error {
	// 1. Output can be created on the fly; nothing is read from it.
	created, err := ensureDir(c.OutputDir)
	if err != nil {
		return err
	}
	if created {
		logrus.Infof("Created output directory %s", c.OutputDir)
	}

	// 2. Normal must exist and hold at least one corpus file.
	if err := c.requireNormal(); err != nil {
		return err
	}

	// 3. Input must exist and hold at least one input CSV.
	created, err = ensureDir(c.InputDir)
	if err != nil {
		return err
	}
	if created {
		logrus.Warnf("Created %s; add input CSVs to score", c.InputDir)
		return ErrInputMissing
	}
	n, err := countFiles(c.InputDir)
	if err != nil {
		return err
	}
	if n == 0 {
		logrus.Warnf("%s holds no input files; nothing to score", c.InputDir)
		return ErrInputEmpty
	}

	// 4. Bin must exist; freq.py / freq.exe live here.
	return c.requireBin()
}

// EnsureCorpusDirs checks only what bootstrap and one-off scoring need:
// Normal with corpus files, and Bin with the freq tool.
func (c *Config) EnsureCorpusDirs() error {
	if err := c.requireNormal(); err != nil {
		return err
	}
	return c.requireBin()
}

func (c *Config) requireNormal() error {
	created, err := ensureDir(c.NormalDir)
	if err != nil {
		return err
	}
	if created {
		logrus.Warnf("Created %s; add corpus files to train the frequency table", c.NormalDir)
		return ErrNormalMissing
	}
	n, err := countFiles(c.NormalDir)
	if err != nil {
		return err
	}
	if n == 0 {
		logrus.Warnf("%s holds no corpus files; the frequency table cannot be trained", c.NormalDir)
		return ErrNormalEmpty
	}
	return nil
}

func (c *Config) requireBin() error {
	created, err := ensureDir(c.BinDir)
	if err != nil {
		return err
	}
	if created {
		logrus.Warnf("Created %s; place freq.py or freq.exe in it", c.BinDir)
		return ErrBinMissing
	}
	return nil
}

// ensureDir creates dir when absent. The first return reports whether
// this call created it.
func ensureDir(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("%s exists but is not a directory", dir)
		}
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, fmt.Errorf("error checking directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("error creating directory %s: %w", dir, err)
	}
	return true, nil
}

// countFiles counts regular files directly under dir; subdirectories
// do not count toward a directory being "populated".
func countFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("error reading directory %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}
	return n, nil
}

// keyFromEnv reads the WhoIs API key from the environment, first
// loading a .env file from the base directory when one exists.
// godotenv never overrides variables already set in the process.
func keyFromEnv(baseDir string) string {
	envFile := filepath.Join(baseDir, ".env")
	if err := godotenv.Load(envFile); err == nil {
		logrus.Debugf("Loaded environment from %s", envFile)
	}
	return os.Getenv(APIKeyEnv)
}
