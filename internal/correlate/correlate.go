package correlate

import (
	"fmt"
	"net/netip"
	"time"
)

// DefaultWindow is the maximum distance between an INVITE and the first
// packet of a stream attached to it.
const DefaultWindow = 10 * time.Second

// Options tunes correlation.
type Options struct {
	Window time.Duration
}

// MediaOnlyID is the identifier of the synthesized call holding an
// unmatched stream.
func MediaOnlyID(ssrc uint32) string {
	return fmt.Sprintf("rtp-%08x", ssrc)
}

// Correlate attaches every stream to a call and freezes the result.
//
// Streams are visited in first-seen order. Each goes to the call whose INVITE
// has the same address pair (either direction) and the smallest capture time
// distance under Window; ties go to the call seen first. An assignment is
// never revisited. Streams without a candidate become media-only calls.
//
// Calls are returned in dialog first-seen order followed by media-only calls
// in stream order. The collector is not modified.
func (c *Collector) Correlate(opts Options) []*Call {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	limit := window.Microseconds()

	builders := make([]*Builder, 0, len(c.dialogOrder))
	candidates := make([]candidate, 0, len(c.dialogOrder))
	for _, id := range c.dialogOrder {
		b := NewBuilder(id)
		for _, msg := range c.dialogs[id] {
			b.AddSignaling(msg)
		}
		builders = append(builders, b)

		if invite, ok := b.Invite(); ok {
			candidates = append(candidates, candidate{
				builder: b,
				at:      invite.Timestamp,
				src:     invite.SrcIP,
				dst:     invite.DstIP,
			})
		}
	}

	var mediaOnly []*Builder
	for _, ssrc := range c.streamOrder {
		stream := Stream{SSRC: ssrc, Packets: c.streams[ssrc]}
		first := stream.Packets[0]

		var best *Builder
		var bestDelta int64
		for _, cand := range candidates {
			if !cand.matches(first.SrcIP, first.DstIP) {
				continue
			}
			delta := abs(first.Timestamp - cand.at)
			if delta >= limit {
				continue
			}
			if best == nil || delta < bestDelta {
				best, bestDelta = cand.builder, delta
			}
		}

		if best == nil {
			best = NewMediaOnlyBuilder(MediaOnlyID(ssrc))
			mediaOnly = append(mediaOnly, best)
		}
		best.AddStream(stream)
	}

	calls := make([]*Call, 0, len(builders)+len(mediaOnly))
	for _, b := range builders {
		calls = append(calls, b.Freeze())
	}
	for _, b := range mediaOnly {
		calls = append(calls, b.Freeze())
	}
	return calls
}

type candidate struct {
	builder *Builder
	at      int64
	src     netip.Addr
	dst     netip.Addr
}

func (c candidate) matches(src, dst netip.Addr) bool {
	return (src == c.src && dst == c.dst) || (src == c.dst && dst == c.src)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
