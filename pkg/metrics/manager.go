// Package metrics exposes the coach's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame outcomes.
const (
	OutcomeAnalyzed        = "analyzed"
	OutcomeNoBody          = "no_body"
	OutcomeUnknownExercise = "unknown_exercise"
	OutcomeBadFrame        = "bad_frame"
	OutcomeDetectorError   = "detector_error"
)

type Manager struct {
	// counters
	CounterFrames   *prometheus.CounterVec
	CounterReps     *prometheus.CounterVec
	CounterCues     *prometheus.CounterVec
	CounterRequests *prometheus.CounterVec
	CounterTTSFails *prometheus.CounterVec

	// gauges
	GaugeSessions    prometheus.Gauge
	GaugeFeedClients prometheus.Gauge

	// histograms
	HistDetectDuration     prometheus.Histogram
	HistSynthesizeDuration prometheus.Histogram
	HistRequestDuration    *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("formcoach", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("formcoach", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	latency := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	return &Manager{
		CounterFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames",
			Help:      "The total number of processed frames",
		}, []string{"exercise", "outcome"}),
		CounterReps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reps",
			Help:      "The total number of counted reps (or held seconds)",
		}, []string{"exercise"}),
		CounterCues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cues_spoken",
			Help:      "The total number of audio cues emitted",
		}, []string{"exercise"}),
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request",
			Help:      "The total number of incoming requests",
		}, []string{"method", "route", "status"}),
		CounterTTSFails: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tts_failures",
			Help:      "The total number of failed speech syntheses",
		}, []string{"provider"}),

		GaugeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_sessions",
			Help:      "Current number of analyzer sessions",
		}),
		GaugeFeedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "feed_clients",
			Help:      "Current number of connected feed websocket clients",
		}),

		HistDetectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   latency,
			Name:      "detect_duration_seconds",
			Help:      "Duration of pose detection per frame in seconds",
		}),
		HistSynthesizeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   latency,
			Name:      "synthesize_duration_seconds",
			Help:      "Duration of speech synthesis in seconds",
		}),
		HistRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   latency,
			Name:      "request_duration_seconds",
			Help:      "Total duration of requests in seconds",
		}, []string{"route"}),
	}
}
