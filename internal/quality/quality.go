// Package quality computes loss, jitter, latency and an E-model MOS for a
// set of RTP packets.
package quality

import (
	"fmt"
	"math"
	"sort"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

// E-model constants (ITU-T G.107, simplified).
const (
	baseR          = 94.2
	advantageR     = 1.5
	delayKnee      = 177.3
	equipmentIe    = 0.0
	robustnessBpl  = 10.0
	latencyFactor  = 4.0
	smoothingRatio = 16.0
)

// Options tunes the computation.
type Options struct {
	// ClockRate converts RTP timestamps to time. Zero means 8000 Hz.
	ClockRate uint32
	// Encoding is copied into the result.
	Encoding core.Encoding
}

// Compute measures packets, which must be in capture-time order. The input
// slice is not modified. Compute returns core.ErrEmptyStream for no packets.
func Compute(packets []core.MediaPacket, opts Options) (core.CallMetrics, error) {
	if len(packets) == 0 {
		return core.CallMetrics{}, fmt.Errorf("compute metrics: %w", core.ErrEmptyStream)
	}

	clock := opts.ClockRate
	if clock == 0 {
		clock = core.DefaultClockRate
	}

	m := core.CallMetrics{
		Start:    packets[0].Timestamp,
		End:      packets[0].Timestamp,
		Encoding: opts.Encoding,
	}
	for i := range packets {
		m.Start = min(m.Start, packets[i].Timestamp)
		m.End = max(m.End, packets[i].Timestamp)
	}
	m.DurationMs = float64(m.End-m.Start) / 1000

	m.PacketsObserved = len(packets)
	m.PacketsLost = Lost(packets)
	m.PacketsExpected = m.PacketsObserved + m.PacketsLost
	m.LossPercent = float64(m.PacketsLost) / float64(m.PacketsExpected) * 100

	j := Jitter(packets, clock)
	m.AvgJitterMs = j.Avg
	m.MaxJitterMs = j.Max
	m.SmoothedJitterMs = j.Smoothed

	m.AvgLatencyMs = latencyFactor * m.AvgJitterMs
	m.MaxLatencyMs = latencyFactor * m.MaxJitterMs

	m.RFactor = RFactor(m.AvgLatencyMs, m.AvgJitterMs, m.LossPercent)
	m.MOS = MOS(m.RFactor)
	return m, nil
}

// seqDelta is b-a on the 16-bit circular sequence space, in [-32768, 32767].
func seqDelta(a, b uint16) int {
	return int(int16(b - a))
}

// Lost counts missing sequence numbers. A copy of packets is ordered on the
// circular sequence space and every gap larger than one adds its size minus
// one. Duplicates add nothing.
func Lost(packets []core.MediaPacket) int {
	seqs := make([]uint16, len(packets))
	for i := range packets {
		seqs[i] = packets[i].SequenceNumber
	}
	sort.SliceStable(seqs, func(i, j int) bool {
		return seqDelta(seqs[i], seqs[j]) > 0
	})

	lost := 0
	for i := 1; i < len(seqs); i++ {
		if gap := seqDelta(seqs[i-1], seqs[i]); gap > 1 {
			lost += gap - 1
		}
	}
	return lost
}

// JitterStats summarizes inter-arrival jitter in milliseconds.
type JitterStats struct {
	Avg      float64
	Max      float64
	Smoothed float64 // RFC 3550 §6.4.1 estimator
}

// Jitter walks packets in the given order. Each sample is the absolute
// change in transit time (capture time minus RTP timestamp) between
// consecutive packets. RTP timestamp differences are taken modulo 2^32.
func Jitter(packets []core.MediaPacket, clockRate uint32) JitterStats {
	var stats JitterStats
	if len(packets) < 2 {
		return stats
	}

	usPerTick := 1e6 / float64(clockRate)
	var sum float64
	for i := 1; i < len(packets); i++ {
		prev, cur := &packets[i-1], &packets[i]
		arrival := float64(cur.Timestamp - prev.Timestamp)
		media := float64(int32(cur.StreamTimestamp-prev.StreamTimestamp)) * usPerTick
		d := math.Abs(arrival-media) / 1000

		sum += d
		stats.Max = math.Max(stats.Max, d)
		stats.Smoothed += (d - stats.Smoothed) / smoothingRatio
	}
	stats.Avg = sum / float64(len(packets)-1)
	return stats
}

// RFactor applies the delay and loss impairments to the base R value and
// clamps the result to [0, 100].
func RFactor(avgLatencyMs, avgJitterMs, lossPercent float64) float64 {
	d := avgLatencyMs + 2*avgJitterMs
	id := 0.024 * d
	if d > delayKnee {
		id += 0.11 * (d - delayKnee)
	}

	ieEff := equipmentIe
	if lossPercent > 0 {
		ieEff += (95 - equipmentIe) * lossPercent / (lossPercent + robustnessBpl)
	}

	r := baseR - id - ieEff - advantageR
	return math.Min(math.Max(r, 0), 100)
}

// MOS maps an R-factor to a mean opinion score in [1, 4.5].
func MOS(r float64) float64 {
	if r >= 100 {
		return 4.5
	}
	mos := 1 + 0.035*r + 7e-6*r*(r-60)*(100-r)
	return math.Min(math.Max(mos, 1), 4.5)
}
