// Package metrics provides Prometheus metrics for the ranking pipeline.
//
// A batch run has no scrape endpoint; metrics accumulate in a package
// registry and can be dumped in text exposition format at the end of a
// successful run for collection by a textfile-style collector.
package metrics

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const (
	namespace = "podium"

	snapshotFileMode = 0o644
)

var registry = prometheus.NewRegistry()

var (
	// Pipeline throughput.
	participantsScored = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "participants_scored_total",
		Help:      "Scoring entries extracted from brackets.",
	})
	pointsAwarded = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "points_awarded_total",
		Help:      "Points merged into ledgers.",
	})
	newEntrants = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "new_entrants_total",
		Help:      "Identities that entered a ledger for the first time.",
	})
	duplicateRuns = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicate_runs_total",
		Help:      "Runs skipped by the already-processed guard.",
	})

	// Identity resolution.
	mappingHits = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "identity",
		Name:      "mapping_hits_total",
		Help:      "Handles resolved from the persisted mapping.",
	})
	probes = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "identity",
		Name:      "probes_total",
		Help:      "Existence probes issued for unknown handles.",
	})
	probeFailures = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "identity",
		Name:      "probe_failures_total",
		Help:      "Probes that failed or reported non-existence.",
	})

	// Provider calls.
	providerRequestDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "request_duration_seconds",
		Help:      "Bracket provider request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"call"})

	// Ledger state after merge.
	ledgerSize = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_size",
		Help:      "Identities tracked in the ledger after the merge.",
	})
)

// Recording hooks used by the pipeline.
func RecordParticipantScored()       { participantsScored.Inc() }
func RecordPointsAwarded(points int) { pointsAwarded.Add(float64(points)) }
func RecordNewEntrant()              { newEntrants.Inc() }
func RecordDuplicateRun()            { duplicateRuns.Inc() }
func RecordMappingHit()              { mappingHits.Inc() }
func RecordProbe()                   { probes.Inc() }
func RecordProbeFailure()            { probeFailures.Inc() }
func UpdateLedgerSize(n int)         { ledgerSize.Set(float64(n)) }

// ObserveProviderRequest records the latency of one provider call.
func ObserveProviderRequest(call string, seconds float64) {
	providerRequestDuration.WithLabelValues(call).Observe(seconds)
}

// WriteTo dumps all registered metrics to w in text exposition format.
func WriteTo(w io.Writer) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}

// WriteSnapshot dumps all registered metrics to path.
func WriteSnapshot(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, snapshotFileMode)
	if err != nil {
		return fmt.Errorf("open metrics snapshot: %w", err)
	}
	defer f.Close()
	return WriteTo(f)
}
