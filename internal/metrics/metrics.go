package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels scans that produced a full result payload.
	OutcomeSuccess = "success"
	// OutcomeError labels scans that failed before producing a payload.
	OutcomeError = "error"
	// OutcomeCached labels scans served from the portal result cache.
	OutcomeCached = "cached"
)

var (
	scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crmscan",
			Name:      "scans_total",
			Help:      "Total number of scans handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	scanDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "crmscan",
			Name:      "scan_seconds",
			Help:      "Full scan latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 10, 15, 20, 30},
		},
	)

	visibilityErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crmscan",
			Name:      "visibility_errors_total",
			Help:      "Analyzer runs degraded by auth/permission/rate-limit failures, by domain.",
		},
		[]string{"domain"},
	)

	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crmscan",
			Name:      "exports_total",
			Help:      "Unlocked report exports generated, by format.",
		},
		[]string{"format"},
	)
)

// Register attaches the scan-engine collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		scansTotal,
		scanDurationSeconds,
		visibilityErrorsTotal,
		exportsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveScan records a scan duration and outcome label.
func ObserveScan(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeError, OutcomeCached:
	default:
		outcome = OutcomeSuccess
	}
	scansTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCached {
		return
	}
	if duration < 0 {
		duration = 0
	}
	scanDurationSeconds.Observe(duration.Seconds())
}

// ObserveVisibilityError counts a degraded analyzer run for a domain.
func ObserveVisibilityError(domain string) {
	visibilityErrorsTotal.WithLabelValues(domain).Inc()
}

// ObserveExport counts a generated export by format (csv, xlsx).
func ObserveExport(format string) {
	exportsTotal.WithLabelValues(format).Inc()
}
