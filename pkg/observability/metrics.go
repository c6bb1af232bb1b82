// Package observability provides Prometheus metrics for stream consumption
// and API traffic.
package observability

import "github.com/prometheus/client_golang/prometheus"

// StreamBuckets defines histogram buckets suited for generation streams,
// ranging from 100ms to 5 minutes.
var StreamBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300}

// Stream outcome label values.
const (
	OutcomeCompleted  = "completed"
	OutcomeErrored    = "errored"
	OutcomeRejected   = "rejected"
	OutcomeDuplicate  = "duplicate"
	OutcomeSuperseded = "superseded"
)

// Frame kind label values.
const (
	FrameAck       = "ack"
	FrameDone      = "done"
	FrameChatData  = "chat_data"
	FrameDelta     = "delta"
	FrameIgnored   = "ignored"
	FrameMalformed = "malformed"
)

var (
	// StreamsTotal counts ProcessStream calls by outcome.
	StreamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vzero_streams_total",
			Help: "Processed message streams",
		},
		[]string{"outcome"},
	)

	// StreamsActive tracks streams currently being read.
	StreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vzero_streams_active",
			Help: "Streams currently being consumed",
		},
	)

	// StreamDuration records how long a stream was read, in seconds.
	StreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vzero_stream_duration_seconds",
			Help:    "Stream consumption duration",
			Buckets: StreamBuckets,
		},
		[]string{"outcome"},
	)

	// FramesTotal counts decoded frames by kind.
	FramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vzero_frames_total",
			Help: "Decoded stream frames",
		},
		[]string{"kind"},
	)

	// PatchFragmentsSkipped counts delta fragments that could not be applied.
	PatchFragmentsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vzero_patch_fragments_skipped_total",
			Help: "Delta fragments skipped as inapplicable",
		},
	)

	// APIRequestsTotal counts outgoing API requests by method and status class.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vzero_api_requests_total",
			Help: "API requests",
		},
		[]string{"method", "status"},
	)

	// APIRequestDuration records time to response headers, in seconds.
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vzero_api_request_duration_seconds",
			Help:    "API request latency until response headers",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		StreamsTotal,
		StreamsActive,
		StreamDuration,
		FramesTotal,
		PatchFragmentsSkipped,
		APIRequestsTotal,
		APIRequestDuration,
	)
}
