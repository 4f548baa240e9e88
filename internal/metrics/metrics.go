package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// File outcomes recorded by the batch ingestor and the upload handler.
const (
	OutcomeExtracted   = "extracted"
	OutcomeEmpty       = "empty"
	OutcomeDecodeError = "decode_error"
	OutcomeIOError     = "io_error"
)

// Metrics holds the engine's Prometheus collectors.
//
// Metrics:
//   - referrals_files_processed_total{source,outcome}
//   - referrals_extracted_total
//   - referrals_search_requests_total
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	FilesProcessed *prometheus.CounterVec
	Extracted      prometheus.Counter
	Searches       prometheus.Counter

	registry *prometheus.Registry
}

// New registers collectors on a private registry so tests can build as many
// instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		FilesProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referrals_files_processed_total",
				Help: "Transcripts processed, by source (batch or upload) and outcome",
			},
			[]string{"source", "outcome"},
		),
		Extracted: f.NewCounter(prometheus.CounterOpts{
			Name: "referrals_extracted_total",
			Help: "Referral records extracted from all transcripts",
		}),
		Searches: f.NewCounter(prometheus.CounterOpts{
			Name: "referrals_search_requests_total",
			Help: "Search requests served",
		}),
		registry: reg,
	}
}

func (m *Metrics) ObserveFile(source, outcome string, extracted int) {
	if m == nil {
		return
	}
	m.FilesProcessed.WithLabelValues(source, outcome).Inc()
	if extracted > 0 {
		m.Extracted.Add(float64(extracted))
	}
}

func (m *Metrics) ObserveSearch() {
	if m == nil {
		return
	}
	m.Searches.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
