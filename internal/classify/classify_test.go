package classify

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseaugustine1/pcap-sip-vision/internal/capture"
	"github.com/joseaugustine1/pcap-sip-vision/internal/capture/captest"
	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

var (
	caller = netip.MustParseAddrPort("10.0.0.1:40000")
	callee = netip.MustParseAddrPort("10.0.0.2:50000")
	base   = time.Unix(1_700_000_000, 0)
)

func readFrames(t *testing.T, b *captest.Builder) []core.RawFrame {
	t.Helper()
	data, err := b.Bytes()
	require.NoError(t, err)
	r, err := capture.NewReader(data)
	require.NoError(t, err)
	frames, err := capture.ReadAll(r)
	require.NoError(t, err)
	return frames
}

func TestClassifyMediaAndSignaling(t *testing.T) {
	b := captest.NewBuilder()
	b.AddSIP(base, caller, callee, captest.Invite("call-1", caller.Addr(), callee.Addr(), ""))
	b.AddRTP(base.Add(time.Second), caller, callee,
		rtp.Header{PayloadType: 0, SequenceNumber: 7, Timestamp: 160, SSRC: 0xCAFE}, captest.Tone(160, 0))
	b.AddUDP(base.Add(2*time.Second), caller, callee, []byte("hello, not voip"))

	c := New(nil)
	frames := readFrames(t, b)
	require.Len(t, frames, 3)

	sig := c.Classify(frames[0])
	require.Equal(t, core.KindSignaling, sig.Kind)
	assert.Equal(t, "call-1", sig.Signaling.CallID)
	assert.Equal(t, "INVITE", sig.Signaling.Method)
	assert.Equal(t, caller.Addr(), sig.Signaling.SrcIP)
	assert.Equal(t, base.UnixMicro(), sig.Signaling.Timestamp)

	media := c.Classify(frames[1])
	require.Equal(t, core.KindMedia, media.Kind)
	assert.Equal(t, uint32(0xCAFE), media.Media.SSRC)
	assert.Equal(t, uint16(7), media.Media.SequenceNumber)
	assert.Equal(t, uint16(50000), media.Media.DstPort)
	assert.Len(t, media.Media.Payload, 160)

	none := c.Classify(frames[2])
	assert.Equal(t, core.KindNone, none.Kind)

	assert.Equal(t, Stats{Frames: 3, Media: 1, Signaling: 1, Unrecognized: 1}, c.Stats())
}

func TestClassifySkipsNonVoIP(t *testing.T) {
	udp, err := captest.UDPFrame(caller, callee, []byte{1, 2, 3})
	require.NoError(t, err)

	tcp := append([]byte(nil), udp...)
	tcp[14+9] = 6 // IPv4 protocol field

	ipv6 := append([]byte(nil), udp...)
	ipv6[14] = 0x65 // version 6 under an IPv4 EtherType

	arp := append([]byte(nil), udp[:14]...)
	arp[12], arp[13] = 0x08, 0x06
	arp = append(arp, make([]byte, 28)...)

	tests := []struct {
		name  string
		frame []byte
		want  Stats
	}{
		{"arp", arp, Stats{Frames: 1, NonIPv4: 1}},
		{"tcp", tcp, Stats{Frames: 1, NonUDP: 1}},
		{"runt", udp[:10], Stats{Frames: 1, Malformed: 1}},
		{"wrong ip version", ipv6, Stats{Frames: 1, Malformed: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(nil)
			got := c.Classify(core.RawFrame{Data: tt.frame})
			assert.Equal(t, core.KindNone, got.Kind)
			assert.Equal(t, tt.want, c.Stats())
		})
	}
}

func TestStatsAdd(t *testing.T) {
	s := Stats{Frames: 2, Media: 1}
	s.Add(Stats{Frames: 3, Signaling: 2, Malformed: 1})
	assert.Equal(t, Stats{Frames: 5, Media: 1, Signaling: 2, Malformed: 1}, s)
}

func TestNewFromRegistry(t *testing.T) {
	t.Run("unknown parser", func(t *testing.T) {
		_, err := NewFromRegistry([]string{"rtp", "h323"}, nil)
		assert.True(t, errors.Is(err, core.ErrPluginNotFound), "got %v", err)
	})

	t.Run("sip only", func(t *testing.T) {
		b := captest.NewBuilder()
		b.AddRTP(base, caller, callee, rtp.Header{SequenceNumber: 1, SSRC: 1}, captest.Tone(160, 0))
		b.AddSIP(base.Add(time.Second), caller, callee, captest.Bye("call-2", caller.Addr(), callee.Addr()))

		c, err := NewFromRegistry([]string{"sip"}, nil)
		require.NoError(t, err)
		frames := readFrames(t, b)
		require.Len(t, frames, 2)

		assert.Equal(t, core.KindNone, c.Classify(frames[0]).Kind)
		assert.Equal(t, core.KindSignaling, c.Classify(frames[1]).Kind)
		assert.Equal(t, Stats{Frames: 2, Signaling: 1, Unrecognized: 1}, c.Stats())
	})
}
