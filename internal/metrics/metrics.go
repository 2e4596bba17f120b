package metrics

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
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry          = prometheus.NewRegistry()
	defaultRegisterer = promauto.With(registry)
	serverOnce        sync.Once
	metricsEnabled    bool
	metricsServer     *http.Server
)

// Metrics contains all the Prometheus metrics for the application.
// Recording goes through the helper methods below; every helper is a no-op
// until EnableMetrics is called, so a batch run with the listener disabled
// pays nothing.
type Metrics struct {
	// Scorer subprocess metrics
	ScorerInvocations *prometheus.CounterVec
	ScorerDuration    *prometheus.HistogramVec

	// WhoIs lookup metrics
	WhoisRequests  *prometheus.CounterVec
	WhoisDuration  *prometheus.HistogramVec
	WhoisCacheHits prometheus.Counter

	// Candidate outcome metrics
	CandidatesScored   *prometheus.CounterVec
	CandidatesSkipped  *prometheus.CounterVec
	CandidatesFiltered *prometheus.CounterVec
	OutputRowsWritten  *prometheus.CounterVec
}

// Global instance of metrics
var globalMetrics *Metrics
var metricsOnce sync.Once

// Get returns the global metrics instance
func Get() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// EnableMetrics enables metrics collection
func EnableMetrics() {
	metricsEnabled = true
}

// IsMetricsEnabled returns whether metrics collection is enabled
func IsMetricsEnabled() bool {
	return metricsEnabled
}

// newMetrics creates and registers all metrics
func newMetrics() *Metrics {
	// Subprocess and lookup latencies live in the tens of milliseconds to
	// whole seconds range; no sub-millisecond buckets needed.
	buckets := []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

	m := &Metrics{
		ScorerInvocations: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freqscan_scorer_invocations_total",
				Help: "Total number of freq subprocess invocations",
			},
			[]string{"op", "status"},
		),
		ScorerDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "freqscan_scorer_duration_seconds",
				Help:    "Time spent waiting on freq subprocess invocations",
				Buckets: buckets,
			},
			[]string{"op"},
		),

		WhoisRequests: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freqscan_whois_requests_total",
				Help: "Total number of WhoIs lookup requests",
			},
			[]string{"status"},
		),
		WhoisDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "freqscan_whois_request_duration_seconds",
				Help:    "Time spent on WhoIs lookup requests",
				Buckets: buckets,
			},
			[]string{"status"},
		),
		WhoisCacheHits: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "freqscan_whois_cache_hits_total",
				Help: "Lookups answered from the in-run cache instead of the API",
			},
		),

		CandidatesScored: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freqscan_candidates_scored_total",
				Help: "Candidates that produced an output row",
			},
			[]string{"input_file"},
		),
		CandidatesSkipped: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freqscan_candidates_skipped_total",
				Help: "Candidates dropped by a per-candidate failure",
			},
			[]string{"input_file", "reason"},
		),
		CandidatesFiltered: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freqscan_candidates_age_filtered_total",
				Help: "Candidates dropped by the registration age gate",
			},
			[]string{"input_file"},
		),
		OutputRowsWritten: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freqscan_output_rows_written_total",
				Help: "Rows appended to output CSV files",
			},
			[]string{"output_file"},
		),
	}

	return m
}

// ObserveScorer records one freq subprocess invocation.
func (m *Metrics) ObserveScorer(op, status string, d time.Duration) {
	if !metricsEnabled {
		return
	}
	m.ScorerInvocations.WithLabelValues(op, status).Inc()
	m.ScorerDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveWhois records one WhoIs lookup request.
func (m *Metrics) ObserveWhois(status string, d time.Duration) {
	if !metricsEnabled {
		return
	}
	m.WhoisRequests.WithLabelValues(status).Inc()
	m.WhoisDuration.WithLabelValues(status).Observe(d.Seconds())
}

// WhoisCacheHit records a lookup served without touching the API.
func (m *Metrics) WhoisCacheHit() {
	if !metricsEnabled {
		return
	}
	m.WhoisCacheHits.Inc()
}

// CandidateScored records a candidate that made it into an output row.
func (m *Metrics) CandidateScored(inputFile string) {
	if !metricsEnabled {
		return
	}
	m.CandidatesScored.WithLabelValues(inputFile).Inc()
}

// CandidateSkipped records a per-candidate failure by reason.
func (m *Metrics) CandidateSkipped(inputFile, reason string) {
	if !metricsEnabled {
		return
	}
	m.CandidatesSkipped.WithLabelValues(inputFile, reason).Inc()
}

// CandidateFiltered records a candidate dropped by the age gate.
func (m *Metrics) CandidateFiltered(inputFile string) {
	if !metricsEnabled {
		return
	}
	m.CandidatesFiltered.WithLabelValues(inputFile).Inc()
}

// RowWritten records one appended output row.
func (m *Metrics) RowWritten(outputFile string) {
	if !metricsEnabled {
		return
	}
	m.OutputRowsWritten.WithLabelValues(outputFile).Inc()
}

// StartMetricsServer starts an HTTP server to expose Prometheus metrics
func StartMetricsServer(addr string) error {
	if !metricsEnabled {
		return nil
	}

	// Only start once
	var startErr error
	serverOnce.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		metricsServer = &http.Server{
			Addr:    addr,
			Handler: mux,
		}

		go func() {
			logrus.Infof("Starting metrics server on %s", addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.Warnf("Metrics server error: %v", err)
			}
		}()
	})

	return startErr
}

// ShutdownMetricsServer gracefully shuts down the metrics server
func ShutdownMetricsServer(ctx context.Context) error {
	if metricsServer != nil {
		logrus.Debug("Shutting down metrics server...")
		return metricsServer.Shutdown(ctx)
	}
	return nil
}
