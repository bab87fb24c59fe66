// Package metrics provides Prometheus metrics for ingestion and querying.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	// Ingestion metrics
	DocumentsProcessed prometheus.Counter
	PagesExtracted     prometheus.Counter
	ChunksCreated      prometheus.Counter
	IngestionDuration  prometheus.Histogram
	IngestionErrors    *prometheus.CounterVec

	// Query metrics
	QueryRequests     prometheus.Counter
	QueryDuration     prometheus.Histogram
	QueryErrors       *prometheus.CounterVec
	RetrievedPassages prometheus.Histogram
	MalformedAnswers  prometheus.Counter
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DocumentsProcessed: f.NewCounter(prometheus.CounterOpts{
			Name: "rag_documents_processed_total",
			Help: "Total number of documents ingested",
		}),
		PagesExtracted: f.NewCounter(prometheus.CounterOpts{
			Name: "rag_pages_extracted_total",
			Help: "Total number of pages extracted from documents",
		}),
		ChunksCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "rag_chunks_created_total",
			Help: "Total number of chunks stored",
		}),
		IngestionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rag_ingestion_duration_seconds",
			Help:    "Duration of ingestion runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		IngestionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rag_ingestion_errors_total",
			Help: "Total number of failed ingestion runs by stage",
		}, []string{"stage"}),

		QueryRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "rag_query_requests_total",
			Help: "Total number of queries",
		}),
		QueryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rag_query_duration_seconds",
			Help:    "Duration of queries in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		QueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rag_query_errors_total",
			Help: "Total number of failed queries by stage",
		}, []string{"stage"}),
		RetrievedPassages: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rag_retrieved_passages",
			Help:    "Number of passages retrieved per query",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
		MalformedAnswers: f.NewCounter(prometheus.CounterOpts{
			Name: "rag_malformed_answers_total",
			Help: "Total number of model replies that were not valid JSON",
		}),
	}
}

func (m *Metrics) ObserveIngestion(pages, chunks int, took time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsProcessed.Inc()
	m.PagesExtracted.Add(float64(pages))
	m.ChunksCreated.Add(float64(chunks))
	m.IngestionDuration.Observe(took.Seconds())
}

func (m *Metrics) IngestionFailed(stage string) {
	if m == nil {
		return
	}
	m.IngestionErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveQuery(passages int, malformed bool, took time.Duration) {
	if m == nil {
		return
	}
	m.QueryRequests.Inc()
	m.RetrievedPassages.Observe(float64(passages))
	m.QueryDuration.Observe(took.Seconds())
	if malformed {
		m.MalformedAnswers.Inc()
	}
}

func (m *Metrics) QueryFailed(stage string) {
	if m == nil {
		return
	}
	m.QueryRequests.Inc()
	m.QueryErrors.WithLabelValues(stage).Inc()
}
