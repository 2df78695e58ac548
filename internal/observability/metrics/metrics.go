// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nexus_support"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// gRPC admin metrics
	GRPCRequests        *prometheus.CounterVec
	GRPCRequestDuration *prometheus.HistogramVec

	// Transcription job metrics
	JobsSubmitted     *prometheus.CounterVec
	JobsActive        prometheus.Gauge
	JobsFinished      *prometheus.CounterVec
	JobDuration       *prometheus.HistogramVec
	UploadBytes       prometheus.Counter
	TransitionsDenied *prometheus.CounterVec

	// Grouping metrics
	WordsGrouped     prometheus.Counter
	UtterancesBuilt  prometheus.Counter
	GroupingDuration prometheus.Histogram

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// STT metrics
	STTLatency *prometheus.HistogramVec
	STTErrors  *prometheus.CounterVec

	// Document and meeting metrics
	DocumentOps     *prometheus.CounterVec
	MeetingsCreated *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		GRPCRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total number of gRPC calls handled",
		}, []string{"method", "code"}),
		GRPCRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// HTTP metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),

		// Transcription job metrics
		JobsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_jobs_submitted_total",
			Help:      "Total number of transcription jobs submitted",
		}, []string{"provider"}),
		JobsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcription_jobs_active",
			Help:      "Number of transcription jobs not yet in a terminal state",
		}),
		JobsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_jobs_finished_total",
			Help:      "Total number of transcription jobs reaching a terminal state",
		}, []string{"provider", "state"}),
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_job_duration_seconds",
			Help:      "Time from submission to terminal state in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}, []string{"provider"}),
		UploadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total bytes of recordings uploaded for transcription",
		}),
		TransitionsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_transitions_denied_total",
			Help:      "Total number of rejected job state transitions",
		}, []string{"from", "to"}),

		// Grouping metrics
		WordsGrouped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grouper_words_total",
			Help:      "Total number of word tokens grouped",
		}),
		UtterancesBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grouper_utterances_total",
			Help:      "Total number of utterances produced",
		}),
		GroupingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grouper_duration_seconds",
			Help:      "Time spent grouping one transcript",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),

		// Kafka publish metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		// STT metrics
		STTLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_latency_seconds",
			Help:      "Speech-to-text provider call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"provider", "operation"}),
		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),

		// Document and meeting metrics
		DocumentOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_operations_total",
			Help:      "Total number of document operations",
		}, []string{"operation"}),
		MeetingsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_created_total",
			Help:      "Total number of meetings created",
		}, []string{"provider", "result"}),
	}
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordGRPCRequest records a completed gRPC call.
func (m *Metrics) RecordGRPCRequest(method, code string, durationSeconds float64) {
	m.GRPCRequests.WithLabelValues(method, code).Inc()
	m.GRPCRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordJobSubmitted records a new transcription job and its upload size.
func (m *Metrics) RecordJobSubmitted(provider string, bytes int64) {
	m.JobsSubmitted.WithLabelValues(provider).Inc()
	m.JobsActive.Inc()
	m.UploadBytes.Add(float64(bytes))
}

// RecordJobFinished records a job reaching a terminal state.
func (m *Metrics) RecordJobFinished(provider, state string, durationSeconds float64) {
	m.JobsActive.Dec()
	m.JobsFinished.WithLabelValues(provider, state).Inc()
	m.JobDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// RecordTransitionDenied records a rejected state transition.
func (m *Metrics) RecordTransitionDenied(from, to string) {
	m.TransitionsDenied.WithLabelValues(from, to).Inc()
}

// RecordGrouping records one grouper run.
func (m *Metrics) RecordGrouping(words, utterances int, durationSeconds float64) {
	m.WordsGrouped.Add(float64(words))
	m.UtterancesBuilt.Add(float64(utterances))
	m.GroupingDuration.Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordSTTCall records the latency of one provider call.
func (m *Metrics) RecordSTTCall(provider, operation string, latencySeconds float64) {
	m.STTLatency.WithLabelValues(provider, operation).Observe(latencySeconds)
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordDocumentOp records a document operation.
func (m *Metrics) RecordDocumentOp(operation string) {
	m.DocumentOps.WithLabelValues(operation).Inc()
}

// RecordMeetingCreated records a meeting creation attempt.
func (m *Metrics) RecordMeetingCreated(provider string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.MeetingsCreated.WithLabelValues(provider, result).Inc()
}
