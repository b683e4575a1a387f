package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the medline ingest service.
// Metrics are organized by subsystem: fetching, parsing, dumping and
// attachments. All counters and histograms are registered via promauto for
// automatic registration with the default Prometheus registry.
type Metrics struct {
	// FetchRequestsTotal counts eUtils efetch requests issued.
	FetchRequestsTotal prometheus.Counter

	// FetchRequestsFailed counts eUtils efetch requests that failed.
	FetchRequestsFailed prometheus.Counter

	// FetchRequestDuration observes eUtils request duration in seconds.
	FetchRequestDuration prometheus.Histogram

	// RecordsParsed counts citation records assembled from XML.
	RecordsParsed prometheus.Counter

	// RecordsFailed counts citation subtrees that could not be assembled,
	// labeled by error kind (malformed, unrecognized, missing_id).
	RecordsFailed *prometheus.CounterVec

	// RecordsDumped counts records persisted to the document store, labeled
	// by outcome (created, updated, skipped, failed).
	RecordsDumped *prometheus.CounterVec

	// DumpDuration observes the duration of one dump batch in seconds.
	DumpDuration prometheus.Histogram

	// AttachmentsStored counts attachment files written, labeled by outcome
	// (created, linked, skipped).
	AttachmentsStored *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		FetchRequestsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Total number of eUtils efetch requests issued",
		}),
		FetchRequestsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_failed_total",
			Help:      "Total number of eUtils efetch requests that failed",
		}),
		FetchRequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_request_duration_seconds",
			Help:      "Duration of eUtils efetch requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		RecordsParsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "Total number of citation records assembled from XML",
		}),
		RecordsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_failed_total",
			Help:      "Total number of citation subtrees that failed to assemble",
		}, []string{"kind"}),
		RecordsDumped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dumped_total",
			Help:      "Total number of records persisted to the document store",
		}, []string{"outcome"}),
		DumpDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dump_duration_seconds",
			Help:      "Duration of one dump batch in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		AttachmentsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_stored_total",
			Help:      "Total number of attachment files processed",
		}, []string{"outcome"}),
	}
}
