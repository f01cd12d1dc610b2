package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements application.Metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	// Capture
	ClipsReceived prometheus.Counter
	ClipBytes     prometheus.Histogram

	// Transcription
	Transcriptions        *prometheus.CounterVec
	TranscriptionDuration *prometheus.HistogramVec

	// Replies
	Replies        *prometheus.CounterVec
	ReplyFragments prometheus.Histogram
	ReplyDuration  *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ClipsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatmate_clips_received_total",
			Help: "Total number of audio clips received",
		}),
		ClipBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatmate_clip_bytes",
			Help:    "Size of received audio clips in bytes",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
		}),

		Transcriptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatmate_transcriptions_total",
			Help: "Transcription attempts by outcome",
		}, []string{"outcome"}),
		TranscriptionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chatmate_transcription_duration_seconds",
			Help:    "Time spent decoding and recognizing a clip",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),

		Replies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatmate_replies_total",
			Help: "Chat replies by outcome",
		}, []string{"outcome"}),
		ReplyFragments: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatmate_reply_fragments",
			Help:    "Fragments streamed per reply",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		}),
		ReplyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chatmate_reply_duration_seconds",
			Help:    "Time from request to the end of the reply stream",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32},
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ClipReceived(bytes int) {
	m.ClipsReceived.Inc()
	m.ClipBytes.Observe(float64(bytes))
}

func (m *Metrics) TranscriptionFinished(outcome string, d time.Duration) {
	m.Transcriptions.WithLabelValues(outcome).Inc()
	m.TranscriptionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ReplyFinished(outcome string, fragments int, d time.Duration) {
	m.Replies.WithLabelValues(outcome).Inc()
	m.ReplyFragments.Observe(float64(fragments))
	m.ReplyDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
