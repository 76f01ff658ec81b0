package correlate

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

var (
	alice = netip.MustParseAddr("10.0.0.1")
	bob   = netip.MustParseAddr("10.0.0.2")
	carol = netip.MustParseAddr("10.0.0.3")
)

const t0 = int64(1_700_000_000_000_000)

func ms(n int64) int64 { return n * 1000 }

func invite(callID string, at int64, src, dst netip.Addr) core.SignalingMessage {
	return core.SignalingMessage{Timestamp: at, SrcIP: src, DstIP: dst, CallID: callID, Method: "INVITE"}
}

func response(callID string, at int64, src, dst netip.Addr, code int) core.SignalingMessage {
	return core.SignalingMessage{Timestamp: at, SrcIP: src, DstIP: dst, CallID: callID, StatusCode: code}
}

func stream(ssrc uint32, start int64, n int, src, dst netip.Addr) []core.MediaPacket {
	pkts := make([]core.MediaPacket, n)
	for i := range pkts {
		pkts[i] = core.MediaPacket{
			SSRC:           ssrc,
			SequenceNumber: uint16(i),
			Timestamp:      start + ms(int64(i)*20),
			SrcIP:          src,
			DstIP:          dst,
			Payload:        make([]byte, 160),
		}
	}
	return pkts
}

func collect(sig []core.SignalingMessage, media ...[]core.MediaPacket) *Collector {
	c := NewCollector()
	for _, m := range sig {
		c.AddSignaling(m)
	}
	for _, s := range media {
		for _, p := range s {
			c.AddMedia(p)
		}
	}
	return c
}

func callIDs(calls []*Call) []string {
	ids := make([]string, len(calls))
	for i, c := range calls {
		ids[i] = c.ID
	}
	return ids
}

func TestCorrelateAttachesBothDirections(t *testing.T) {
	c := collect(
		[]core.SignalingMessage{
			invite("call-1", t0, alice, bob),
			response("call-1", t0+ms(100), bob, alice, 200),
		},
		stream(0xA, t0+ms(200), 50, alice, bob),
		stream(0xB, t0+ms(210), 50, bob, alice),
	)

	calls := c.Correlate(Options{})
	require.Len(t, calls, 1)

	call := calls[0]
	assert.Equal(t, "call-1", call.ID)
	assert.False(t, call.MediaOnly)
	assert.Len(t, call.Signaling, 2)
	require.Len(t, call.Streams, 2)
	assert.Equal(t, uint32(0xA), call.Streams[0].SSRC)
	assert.Equal(t, uint32(0xB), call.Streams[1].SSRC)

	pkts := call.Packets()
	require.Len(t, pkts, 100)
	for i := 1; i < len(pkts); i++ {
		assert.LessOrEqual(t, pkts[i-1].Timestamp, pkts[i].Timestamp)
	}
}

func TestCorrelateMediaOnly(t *testing.T) {
	tests := []struct {
		name  string
		start int64
		src   netip.Addr
	}{
		{"outside window", t0 + ms(10_000), alice},
		{"before invite outside window", t0 - ms(10_000), alice},
		{"address mismatch", t0 + ms(200), carol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := collect(
				[]core.SignalingMessage{invite("call-1", t0, alice, bob)},
				stream(0xCAFE, tt.start, 10, tt.src, bob),
			)

			calls := c.Correlate(Options{})
			assert.Equal(t, []string{"call-1", "rtp-0000cafe"}, callIDs(calls))
			assert.Empty(t, calls[0].Streams, "signaling-only call is still emitted")
			assert.True(t, calls[1].MediaOnly)
			assert.Empty(t, calls[1].Signaling)
			assert.Len(t, calls[1].Packets(), 10)
		})
	}
}

func TestCorrelateWindowOption(t *testing.T) {
	c := collect(
		[]core.SignalingMessage{invite("call-1", t0, alice, bob)},
		stream(1, t0+ms(3000), 10, alice, bob),
	)

	assert.Len(t, c.Correlate(Options{Window: 2 * time.Second})[0].Streams, 0)
	assert.Len(t, c.Correlate(Options{Window: 5 * time.Second})[0].Streams, 1)
}

func TestCorrelateSmallestDeltaWins(t *testing.T) {
	c := collect(
		[]core.SignalingMessage{
			invite("far", t0, alice, bob),
			invite("near", t0+ms(4000), bob, alice),
		},
		stream(7, t0+ms(5000), 10, alice, bob),
	)

	calls := c.Correlate(Options{})
	require.Len(t, calls, 2)
	assert.Empty(t, calls[0].Streams)
	assert.Len(t, calls[1].Streams, 1)
}

func TestCorrelateTieGoesToFirstSeenCall(t *testing.T) {
	c := collect(
		[]core.SignalingMessage{
			invite("first", t0-ms(1000), alice, bob),
			invite("second", t0+ms(1000), alice, bob),
		},
		stream(7, t0, 10, alice, bob),
	)

	calls := c.Correlate(Options{})
	require.Len(t, calls, 2)
	assert.Len(t, calls[0].Streams, 1)
	assert.Empty(t, calls[1].Streams)
}

func TestCorrelateIgnoresCallsWithoutInvite(t *testing.T) {
	bye := core.SignalingMessage{Timestamp: t0, SrcIP: alice, DstIP: bob, CallID: "bye-only", Method: "BYE"}
	c := collect([]core.SignalingMessage{bye}, stream(9, t0+ms(100), 10, alice, bob))

	calls := c.Correlate(Options{})
	assert.Equal(t, []string{"bye-only", "rtp-00000009"}, callIDs(calls))
}

func TestCorrelateIdempotent(t *testing.T) {
	c := collect(
		[]core.SignalingMessage{
			invite("a", t0, alice, bob),
			invite("b", t0+ms(500), carol, bob),
			response("a", t0+ms(50), bob, alice, 200),
		},
		stream(1, t0+ms(200), 30, alice, bob),
		stream(2, t0+ms(700), 30, carol, bob),
		stream(3, t0+ms(900), 30, bob, carol),
		stream(4, t0+ms(60_000), 30, alice, carol),
	)

	first := c.Correlate(Options{})
	second := c.Correlate(Options{})
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a", "b", "rtp-00000004"}, callIDs(first))
}

func TestCollectorFirstSeenOrder(t *testing.T) {
	c := NewCollector()
	c.Add(core.Classified{Kind: core.KindSignaling, Signaling: invite("z", t0, alice, bob)})
	c.Add(core.Classified{Kind: core.KindSignaling, Signaling: invite("a", t0, alice, bob)})
	c.Add(core.Classified{Kind: core.KindSignaling, Signaling: response("z", t0, bob, alice, 180)})
	c.Add(core.Classified{Kind: core.KindNone})

	assert.Equal(t, 2, c.DialogCount())
	assert.Equal(t, 0, c.StreamCount())
	assert.Len(t, c.Signaling(), 3)
	assert.Equal(t, []string{"z", "a"}, callIDs(c.Correlate(Options{})))
}

func TestBuilderFreeze(t *testing.T) {
	b := NewBuilder("call")
	b.AddSignaling(invite("call", t0, alice, bob))
	late := stream(1, t0+ms(100), 2, alice, bob)
	early := stream(2, t0, 2, bob, alice)
	// Out-of-order arrival inside a stream, as when files are not chronological.
	b.AddStream(Stream{SSRC: 1, Packets: []core.MediaPacket{late[1], late[0]}})
	b.AddStream(Stream{SSRC: 2, Packets: early})

	call := b.Freeze()
	assert.Equal(t, uint16(0), call.Streams[0].Packets[0].SequenceNumber)

	pkts := call.Packets()
	require.Len(t, pkts, 4)
	assert.Equal(t, []uint32{2, 2, 1, 1}, []uint32{pkts[0].SSRC, pkts[1].SSRC, pkts[2].SSRC, pkts[3].SSRC})

	inv, ok := call.Invite()
	assert.True(t, ok)
	assert.Equal(t, "INVITE", inv.Method)

	assert.Panics(t, func() { b.AddStream(Stream{SSRC: 3}) })
}

func TestStreamHelpers(t *testing.T) {
	s := Stream{SSRC: 1, Packets: stream(1, t0, 3, alice, bob)}
	assert.Equal(t, t0, s.FirstSeen())
	assert.Equal(t, 480, s.PayloadBytes())
	assert.Equal(t, int64(0), Stream{}.FirstSeen())
}
