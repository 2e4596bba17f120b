/*
Package main implements the freqscan command line interface.

freqscan batch-scores domain names with Mark Baggett's freq tool
(https://github.com/markbaggett/freq). It walks every CSV in an input
directory, feeds the first column of each data row through a per-day
frequency table trained from a local corpus, and appends the scores to a
per-input output CSV. With a WhoIs API key configured, each candidate is
first enriched over HTTP and recently registered domains are the only
ones that reach the scorer.

Subcommands:

	run        score every input CSV, optionally WhoIs-enriched
	bootstrap  create and train today's frequency table, nothing else
	score      score a single value from the command line
	report     render recorded run history into an xlsx workbook

The heavy lifting lives in the internal packages:

	internal/config  directory layout, precondition gates, key loading
	internal/core    the scoring pipeline, table bootstrap, CSV plumbing
	internal/scorer  freq subprocess invocation (freq.exe or freq.py)
	internal/whois   the one WhoIs lookup shape this tool needs
	internal/history run bookkeeping in sqlite plus the xlsx report
	internal/metrics optional Prometheus instrumentation

A SIGINT or SIGTERM cancels the batch after the candidate in flight;
partial per-file statistics still end up in the summary and the history
database.
*/
package main

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
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/x-stp/freqscan/internal/config"
	"github.com/x-stp/freqscan/internal/core"
	"github.com/x-stp/freqscan/internal/history"
	"github.com/x-stp/freqscan/internal/metrics"
	"github.com/x-stp/freqscan/internal/scorer"
	"github.com/x-stp/freqscan/internal/whois"
)

const version = "0.3.0"

// Persistent flags, shared by every command.
var (
	baseDir     string
	debug       bool
	metricsPort int
)

// Scorer selection flags, shared by run, bootstrap and score.
var (
	useExe    bool
	usePy     bool
	pythonBin string
	normalDir string
	binDir    string
)

// Flags specific to the run command.
var (
	outputDir  string
	inputDir   string
	apiKey     string
	whoisURL   string
	whoisRPS   float64
	maxAgeDays int
	historyDB  string
	noHistory  bool
)

// Flags for the report command.
var reportOut string

var rootCmd = &cobra.Command{
	Use:     "freqscan",
	Short:   "Batch frequency scoring for domain names with the freq tool",
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			logrus.SetLevel(logrus.DebugLevel)
			logrus.Debugln("Debug logging enabled.")
		}
		if metricsPort > 0 {
			metrics.EnableMetrics()
			if err := metrics.StartMetricsServer(fmt.Sprintf(":%d", metricsPort)); err != nil {
				logrus.Warnf("Failed to start metrics server: %v", err)
			}
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score every input CSV, optionally enriched with WhoIs data",
	Long: `Run walks every CSV file in the Input directory, scores the first
column of each data row against today's frequency table and appends the
results to a per-input CSV in the Output directory.

With an API key (via --api-key, $WHOIS_API_KEY or a .env file in the
base directory) each candidate is looked up first: its WhoIs dates and
registrant details join the output row, and domains registered longer
ago than --max-age days are filtered out before they cost a scorer run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch()
	},
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create and train today's frequency table without scoring anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBootstrap()
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score <value>",
	Short: "Score a single value against today's frequency table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScore(args[0])
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render recorded run history into an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "", "Base directory holding Output/, Normal/, Input/ and Bin/ (default: the executable's directory)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().IntVar(&metricsPort, "metrics-port", 0, "Prometheus metrics port (0 disables the metrics server)")

	for _, cmd := range []*cobra.Command{runCmd, bootstrapCmd, scoreCmd} {
		cmd.Flags().BoolVar(&useExe, "exe", false, "Invoke freq.exe from the Bin directory")
		cmd.Flags().BoolVar(&usePy, "py", false, "Invoke freq.py from the Bin directory through a Python interpreter")
		cmd.Flags().StringVar(&pythonBin, "python", scorer.DefaultPython, "Python interpreter used with --py")
		cmd.Flags().StringVar(&normalDir, "normal", "", "Corpus directory (default: <base-dir>/Normal)")
		cmd.Flags().StringVar(&binDir, "bin", "", "freq tool directory (default: <base-dir>/Bin)")
		cmd.MarkFlagsMutuallyExclusive("exe", "py")
		cmd.MarkFlagsOneRequired("exe", "py")
	}

	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for scored CSVs (default: <base-dir>/Output)")
	runCmd.Flags().StringVar(&inputDir, "input", "", "Directory of input CSVs (default: <base-dir>/Input)")
	runCmd.Flags().StringVar(&apiKey, "api-key", "", "WhoIs API key; enables WhoIs enrichment (default: $WHOIS_API_KEY)")
	runCmd.Flags().StringVar(&whoisURL, "whois-url", whois.DefaultAPIURL, "WhoIs service endpoint")
	runCmd.Flags().Float64Var(&whoisRPS, "whois-rps", 0, "WhoIs request pacing in requests per second (0 disables pacing)")
	runCmd.Flags().IntVar(&maxAgeDays, "max-age", config.DefaultMaxAgeDays, "Registration age cutoff in days for WhoIs runs")
	runCmd.Flags().StringVar(&historyDB, "history-db", "", "Run history database (default: <base-dir>/freqscan.db)")
	runCmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this run in the history database")

	reportCmd.Flags().StringVar(&historyDB, "history-db", "", "Run history database (default: <base-dir>/freqscan.db)")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "freqscan_report.xlsx", "Report file to write")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(reportCmd)
}

// buildConfig assembles the configuration from flags, then resolves
// defaults and the environment-sourced API key.
func buildConfig() *config.Config {
	cfg := &config.Config{
		BaseDir:    baseDir,
		OutputDir:  outputDir,
		NormalDir:  normalDir,
		InputDir:   inputDir,
		BinDir:     binDir,
		APIKey:     apiKey,
		WhoisURL:   whoisURL,
		WhoisRPS:   whoisRPS,
		MaxAgeDays: maxAgeDays,
		HistoryDB:  historyDB,
		NoHistory:  noHistory,
	}
	cfg.Resolve()
	return cfg
}

func buildScorer(cfg *config.Config) *scorer.Scorer {
	mode := scorer.ModeExe
	if usePy {
		mode = scorer.ModePy
	}
	return scorer.New(mode, cfg.BinDir, pythonBin)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM. The
// pipeline finishes the candidate in flight before it stops.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logrus.Warnf("Received signal %v, finishing the current candidate before stopping...", sig)
		cancel()
	}()
	return ctx, cancel
}

// runBatch is the handler for the 'run' command.
func runBatch() error {
	cfg := buildConfig()
	sc := buildScorer(cfg)
	logrus.Infof("Starting batch run: base='%s', mode=%s, whois=%t, max-age=%dd",
		cfg.BaseDir, sc.Mode(), cfg.WhoisEnabled(), cfg.MaxAgeDays)

	var who core.WhoisLookup
	if cfg.WhoisEnabled() {
		who = whois.New(cfg.WhoisURL, cfg.APIKey, cfg.WhoisRPS)
	} else {
		logrus.Infoln("No WhoIs API key configured; running the plain scoring pipeline.")
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner := core.NewRunner(cfg, sc, who, sc.Mode().String())
	sum, runErr := runner.Run(ctx)

	displayRunSummary(sum)
	if cfg.HistoryDB != "" {
		saveHistory(cfg.HistoryDB, sum, runErr)
	}
	shutdownMetrics()

	return runErr
}

// runBootstrap is the handler for the 'bootstrap' command.
func runBootstrap() error {
	cfg := buildConfig()
	if err := cfg.EnsureCorpusDirs(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sc := buildScorer(cfg)
	info, err := core.EnsureTable(ctx, sc, cfg.BaseDir, cfg.NormalDir, time.Now())
	if err != nil {
		return err
	}
	if info.Created {
		fmt.Printf("Trained %s from %d corpus file(s) (corpus %s)\n", info.Path, info.CorpusFiles, info.CorpusFingerprint)
	} else {
		fmt.Printf("Table %s already exists (corpus %s)\n", info.Path, info.CorpusFingerprint)
	}
	return nil
}

// runScore is the handler for the 'score' command.
func runScore(value string) error {
	cfg := buildConfig()
	if err := cfg.EnsureCorpusDirs(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sc := buildScorer(cfg)
	info, err := core.EnsureTable(ctx, sc, cfg.BaseDir, cfg.NormalDir, time.Now())
	if err != nil {
		return err
	}
	score, err := sc.Measure(ctx, value, info.Path)
	if err != nil {
		return err
	}
	fmt.Printf("%s,%s\n", value, score)
	return nil
}

// runReport is the handler for the 'report' command.
func runReport() error {
	cfg := buildConfig()
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.WriteReport(reportOut); err != nil {
		return err
	}
	logrus.Infof("Wrote report to %s", reportOut)
	return nil
}

// saveHistory records the finished run. History is warn-only; it must
// never fail a batch that already wrote its output.
func saveHistory(dbPath string, sum *core.RunSummary, runErr error) {
	store, err := history.Open(dbPath)
	if err != nil {
		logrus.Warnf("Could not open history database %s: %v", dbPath, err)
		return
	}
	defer store.Close()
	if err := store.SaveRun(sum, runErr); err != nil {
		logrus.Warnf("Could not record run history: %v", err)
	}
}

func shutdownMetrics() {
	if !metrics.IsMetricsEnabled() {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := metrics.ShutdownMetricsServer(shutdownCtx); err != nil {
		logrus.Warnf("Error shutting down metrics server: %v", err)
	}
}

// displayRunSummary prints the end-of-run statistics block.
func displayRunSummary(sum *core.RunSummary) {
	fmt.Printf("\n--- Final Scoring Statistics ---\n")
	fmt.Printf(" Processing Time: %v\n", sum.Duration().Round(time.Millisecond))
	fmt.Printf("          Run ID: %s\n", sum.RunID)
	fmt.Printf("            Mode: %s (whois=%t)\n", sum.Mode, sum.Whois)
	fmt.Printf("           Table: %s (created=%t)\n", sum.TablePath, sum.TableCreated)
	fmt.Printf("     Input Files: %d\n", sum.FilesProcessed)
	fmt.Printf("      Candidates: %d\n", sum.Candidates)
	fmt.Printf("          Scored: %d\n", sum.Scored)
	fmt.Printf("         Skipped: %d\n", sum.Skipped)
	fmt.Printf("        Filtered: %d\n", sum.Filtered)
	if sum.Whois {
		fmt.Printf("WhoIs Cache Hits: %d\n", sum.WhoisCacheHits)
	}
	for _, reason := range sortedSkipReasons(sum.SkippedBy) {
		fmt.Printf("    %12s: %d\n", reason, sum.SkippedBy[reason])
	}
	fmt.Printf("--------------------------------\n")
}

func sortedSkipReasons(m map[core.SkipReason]int64) []core.SkipReason {
	reasons := make([]core.SkipReason, 0, len(m))
	for r := range m {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	return reasons
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
