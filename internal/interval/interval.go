// Package interval re-applies the quality metrics over fixed time windows.
package interval

import (
	"slices"
	"time"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
	"github.com/joseaugustine1/pcap-sip-vision/internal/quality"
)

// Defaults for Options.
const (
	DefaultWindow     = 5 * time.Second
	DefaultMinPackets = 5
	edgeTrimMinimum   = 3
)

// Options tunes segmentation.
type Options struct {
	Window time.Duration
	// Windows need strictly more than MinPackets packets to be measured.
	MinPackets int
	// TrimEdges drops the first and last window when the call spans more
	// than three windows.
	TrimEdges bool
	Quality   quality.Options
}

// DefaultOptions returns the standard segmentation policy.
func DefaultOptions() Options {
	return Options{
		Window:     DefaultWindow,
		MinPackets: DefaultMinPackets,
		TrimEdges:  true,
	}
}

// Segment splits packets (capture-time ordered) into windows
// [start+k*w, start+(k+1)*w) anchored at the first packet and measures each
// window holding enough packets. Sparse windows are omitted, not zeroed.
func Segment(packets []core.MediaPacket, opts Options) []core.IntervalMetric {
	if len(packets) == 0 {
		return nil
	}

	window := opts.Window.Microseconds()
	if window <= 0 {
		window = DefaultWindow.Microseconds()
	}
	minPackets := opts.MinPackets
	if minPackets < 0 {
		minPackets = DefaultMinPackets
	}

	start, end := packets[0].Timestamp, packets[0].Timestamp
	for i := range packets {
		start = min(start, packets[i].Timestamp)
		end = max(end, packets[i].Timestamp)
	}
	total := (end-start)/window + 1

	// Only occupied windows are materialized; a clock jump in the capture
	// can put years between two packets.
	buckets := make(map[int64][]core.MediaPacket)
	for _, pkt := range packets {
		k := (pkt.Timestamp - start) / window
		buckets[k] = append(buckets[k], pkt)
	}
	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	trim := opts.TrimEdges && total > edgeTrimMinimum

	var out []core.IntervalMetric
	for _, k := range keys {
		if trim && (k == 0 || k == total-1) {
			continue
		}
		if len(buckets[k]) <= minPackets {
			continue
		}
		m, err := quality.Compute(buckets[k], opts.Quality)
		if err != nil {
			continue
		}
		ws := start + k*window
		out = append(out, core.IntervalMetric{
			Index:   int(k),
			Start:   ws,
			End:     ws + window,
			Metrics: m,
		})
	}
	return out
}
