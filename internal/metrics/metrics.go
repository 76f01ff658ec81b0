// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts classified capture frames by outcome
	// (rtp, sip, non_ipv4, non_udp, malformed, unrecognized).
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sip_vision_frames_total",
			Help: "Total number of capture frames by classification outcome",
		},
		[]string{"outcome"},
	)

	// FilesTotal counts capture files by parse status
	FilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sip_vision_files_total",
			Help: "Total number of capture files processed",
		},
		[]string{"status"},
	)

	// CallsTotal counts correlated calls by type (signaled, media_only)
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sip_vision_calls_total",
			Help: "Total number of correlated calls",
		},
		[]string{"type"},
	)

	// AudioOutcomesTotal counts audio reconstruction outcomes
	AudioOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sip_vision_audio_outcomes_total",
			Help: "Total number of audio reconstruction outcomes by status",
		},
		[]string{"status"},
	)

	// CallMOS tracks the distribution of call quality scores
	CallMOS = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sip_vision_call_mos",
			Help:    "Mean opinion score of calls with media",
			Buckets: prometheus.LinearBuckets(1, 0.5, 8), // 1.0, 1.5, ..., 4.5
		},
	)

	// JobDurationSeconds measures analysis job wall time
	JobDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sip_vision_job_duration_seconds",
			Help:    "Duration of analysis jobs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~33s
		},
	)

	// JobsInFlight tracks jobs currently running
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sip_vision_jobs_in_flight",
			Help: "Number of analysis jobs currently running",
		},
	)
)
