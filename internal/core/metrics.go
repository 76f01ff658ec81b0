package core

import "net/netip"

// CallMetrics are the quality figures of one packet set. Times are capture
// microseconds since epoch.
type CallMetrics struct {
	Start      int64   `json:"start" yaml:"start"`
	End        int64   `json:"end" yaml:"end"`
	DurationMs float64 `json:"duration_ms" yaml:"duration_ms"`

	PacketsExpected int     `json:"packets_expected" yaml:"packets_expected"`
	PacketsObserved int     `json:"packets_observed" yaml:"packets_observed"`
	PacketsLost     int     `json:"packets_lost" yaml:"packets_lost"`
	LossPercent     float64 `json:"loss_percent" yaml:"loss_percent"`

	AvgJitterMs      float64 `json:"avg_jitter_ms" yaml:"avg_jitter_ms"`
	MaxJitterMs      float64 `json:"max_jitter_ms" yaml:"max_jitter_ms"`
	SmoothedJitterMs float64 `json:"smoothed_jitter_ms" yaml:"smoothed_jitter_ms"`

	// Latency is estimated from jitter; captures carry no round-trip data.
	AvgLatencyMs float64 `json:"avg_latency_ms" yaml:"avg_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms" yaml:"max_latency_ms"`

	RFactor  float64  `json:"r_factor" yaml:"r_factor"`
	MOS      float64  `json:"mos" yaml:"mos"`
	Encoding Encoding `json:"encoding" yaml:"encoding"`
}

// DirectionMetrics are the metrics of a single SSRC stream of a call.
type DirectionMetrics struct {
	SSRC    uint32      `json:"ssrc" yaml:"ssrc"`
	SrcIP   netip.Addr  `json:"src_ip" yaml:"src_ip"`
	DstIP   netip.Addr  `json:"dst_ip" yaml:"dst_ip"`
	SrcPort uint16      `json:"src_port" yaml:"src_port"`
	DstPort uint16      `json:"dst_port" yaml:"dst_port"`
	Metrics CallMetrics `json:"metrics" yaml:"metrics"`

	Intervals []IntervalMetric `json:"intervals,omitempty" yaml:"intervals,omitempty"`
}

// IntervalMetric is CallMetrics narrowed to the window [Start, End).
type IntervalMetric struct {
	Index   int         `json:"index" yaml:"index"`
	Start   int64       `json:"start" yaml:"start"`
	End     int64       `json:"end" yaml:"end"`
	Metrics CallMetrics `json:"metrics" yaml:"metrics"`
}
