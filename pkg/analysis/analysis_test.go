package analysis

import (
	"fmt"
	"io"
	"net/netip"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseaugustine1/pcap-sip-vision/internal/capture/captest"
	"github.com/joseaugustine1/pcap-sip-vision/internal/config"
	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
	"github.com/joseaugustine1/pcap-sip-vision/internal/log"
)

var (
	caller = netip.MustParseAddr("192.168.1.10")
	callee = netip.MustParseAddr("192.168.1.20")
	start  = time.Unix(1_700_000_000, 0)
)

func newAnalyzer(t *testing.T, cfg *config.Config) *Analyzer {
	t.Helper()
	return New(cfg, log.NewWithWriter(log.Config{Level: "error"}, io.Discard))
}

func callCapture(t *testing.T, spec captest.CallSpec) []byte {
	t.Helper()
	data, err := captest.NewBuilder().AddCall(spec).Bytes()
	require.NoError(t, err)
	return data
}

func baseSpec() captest.CallSpec {
	return captest.CallSpec{
		CallID:  "clean-call@test",
		Caller:  caller,
		Callee:  callee,
		Start:   start,
		Packets: 100,
		SSRC:    0x1234abcd,
	}
}

func TestAnalyzeCleanCall(t *testing.T) {
	data := callCapture(t, baseSpec())

	res := newAnalyzer(t, nil).Analyze("job-1", []Capture{{Name: "clean.pcap", Data: data}})

	require.Len(t, res.Files, 1)
	assert.False(t, res.Files[0].Failed())
	assert.Equal(t, "job-1", res.JobID)
	assert.Equal(t, uint64(100), res.Stats.Media)
	assert.Equal(t, uint64(3), res.Stats.Signaling)
	assert.Len(t, res.Signaling, 3)

	require.Len(t, res.Calls, 1)
	call := res.Calls[0]
	assert.Equal(t, "clean-call@test", call.Call.ID)
	assert.False(t, call.Call.MediaOnly)
	assert.Equal(t, core.EncodingPCMU, call.Encoding.Name)

	require.NotNil(t, call.Metrics)
	assert.Equal(t, 0, call.Metrics.PacketsLost)
	assert.Equal(t, 100, call.Metrics.PacketsObserved)
	assert.Equal(t, 100, call.Metrics.PacketsExpected)
	assert.InDelta(t, 0, call.Metrics.AvgJitterMs, 1e-9)
	assert.Greater(t, call.Metrics.MOS, 4.0)

	require.Len(t, call.Directions, 1)
	assert.Equal(t, uint32(0x1234abcd), call.Directions[0].SSRC)
	assert.Equal(t, caller, call.Directions[0].SrcIP)

	// 2 s of media fits in one window.
	assert.Len(t, call.Intervals, 1)

	assert.Equal(t, core.AudioCompleted, call.Audio.Status)
	require.NotNil(t, call.Audio.Outbound)
	assert.Len(t, call.Audio.Outbound.Samples, 100*160)
	assert.Len(t, call.Audio.Outbound.WAV, 44+100*160*2)
	assert.Nil(t, call.Audio.Inbound)
}

func TestAnalyzeLossyCall(t *testing.T) {
	clean := newAnalyzer(t, nil).Analyze("clean", []Capture{{Name: "a.pcap", Data: callCapture(t, baseSpec())}})

	spec := baseSpec()
	spec.Skip = map[int]bool{}
	for i := 10; i < 20; i++ {
		spec.Skip[i] = true
	}
	lossy := newAnalyzer(t, nil).Analyze("lossy", []Capture{{Name: "b.pcap", Data: callCapture(t, spec)}})

	require.Len(t, lossy.Calls, 1)
	m := lossy.Calls[0].Metrics
	require.NotNil(t, m)
	assert.Equal(t, 10, m.PacketsLost)
	assert.Equal(t, 110, m.PacketsExpected)
	assert.Equal(t, 100, m.PacketsObserved)
	assert.Less(t, m.MOS, clean.Calls[0].Metrics.MOS)
}

func TestAnalyzeMalformedFileContinues(t *testing.T) {
	res := newAnalyzer(t, nil).Analyze("job-2", []Capture{
		{Name: "broken.pcap", Data: []byte("definitely not a capture")},
		{Name: "good.pcap", Data: callCapture(t, baseSpec())},
	})

	require.Len(t, res.Files, 2)
	assert.True(t, res.Files[0].Failed())
	assert.Contains(t, res.Files[0].Err, "malformed capture")
	assert.False(t, res.Files[1].Failed())
	assert.Equal(t, 1, res.FailedFiles())
	require.Len(t, res.Calls, 1)
	assert.NotNil(t, res.Calls[0].Metrics)
}

func TestAnalyzeTruncatedFile(t *testing.T) {
	data := callCapture(t, baseSpec())

	res := newAnalyzer(t, nil).Analyze("job-3", []Capture{{Name: "cut.pcap", Data: data[:len(data)-5]}})

	require.Len(t, res.Files, 1)
	assert.True(t, res.Files[0].Truncated)
	assert.False(t, res.Files[0].Failed())
	require.Len(t, res.Calls, 1)
}

func TestAnalyzeCallsAcrossFiles(t *testing.T) {
	// Signaling and media of one call split over two captures.
	b1 := captest.NewBuilder()
	b1.AddSIP(start, netip.AddrPortFrom(caller, 5060), netip.AddrPortFrom(callee, 5060),
		captest.Invite("split@test", caller, callee, captest.SDP(caller, 40000, 0, "PCMU")))
	sigData, err := b1.Bytes()
	require.NoError(t, err)

	b2 := captest.NewBuilder()
	for i := 0; i < 20; i++ {
		b2.AddRTP(start.Add(time.Second+time.Duration(i)*20*time.Millisecond),
			netip.AddrPortFrom(caller, 40000), netip.AddrPortFrom(callee, 50000),
			rtp.Header{SequenceNumber: uint16(i), Timestamp: uint32(i * 160), SSRC: 0xbeef}, captest.Tone(160, i))
	}
	mediaData, err := b2.Bytes()
	require.NoError(t, err)

	res := newAnalyzer(t, nil).Analyze("job-4", []Capture{
		{Name: "sip.pcap", Data: sigData},
		{Name: "rtp.pcap", Data: mediaData},
	})

	require.Len(t, res.Calls, 1)
	assert.Equal(t, "split@test", res.Calls[0].Call.ID)
	assert.Equal(t, 20, res.Calls[0].Metrics.PacketsObserved)
}

func TestAnalyzeBidirectional(t *testing.T) {
	spec := baseSpec()
	spec.ReverseSSRC = 0x55aa55aa
	spec.Packets = 50

	res := newAnalyzer(t, nil).Analyze("job-5", []Capture{{Name: "both.pcap", Data: callCapture(t, spec)}})

	require.Len(t, res.Calls, 1)
	call := res.Calls[0]
	assert.Len(t, call.Directions, 2)
	assert.Equal(t, 100, call.Metrics.PacketsObserved)
	assert.Equal(t, core.AudioCompleted, call.Audio.Status)
	require.NotNil(t, call.Audio.Outbound)
	require.NotNil(t, call.Audio.Inbound)
	assert.NotEqual(t, call.Audio.Outbound.SSRC, call.Audio.Inbound.SSRC)
}

func TestAnalyzeBidirectionalIndependentBases(t *testing.T) {
	spec := baseSpec()
	spec.Packets = 50
	spec.StartSeq, spec.StartTS = 1000, 5000
	spec.ReverseSSRC = 0x55aa55aa
	spec.ReverseStartSeq, spec.ReverseStartTS = 30000, 900000

	res := newAnalyzer(t, nil).Analyze("job-9", []Capture{{Name: "both.pcap", Data: callCapture(t, spec)}})

	require.Len(t, res.Calls, 1)
	call := res.Calls[0]

	// Each direction on its own is clean.
	require.Len(t, call.Directions, 2)
	for _, d := range call.Directions {
		assert.Equal(t, 0, d.Metrics.PacketsLost, "ssrc %08x", d.SSRC)
		assert.Equal(t, 50, d.Metrics.PacketsObserved)
		assert.InDelta(t, 0, d.Metrics.AvgJitterMs, 1e-9)
		assert.Greater(t, d.Metrics.MOS, 4.0)
		require.Len(t, d.Intervals, 1)
		assert.Equal(t, 0, d.Intervals[0].Metrics.PacketsLost)
	}

	// The merged call metrics read the gap between the two sequence bases
	// (1049 to 30000) as loss and the timestamp offset as jitter.
	require.NotNil(t, call.Metrics)
	assert.Equal(t, 100, call.Metrics.PacketsObserved)
	assert.Equal(t, 30000-1049-1, call.Metrics.PacketsLost)
	assert.Greater(t, call.Metrics.AvgJitterMs, 1000.0)
	assert.Equal(t, 1.0, call.Metrics.MOS)
	require.Len(t, call.Intervals, 1)
	assert.Equal(t, 1.0, call.Intervals[0].Metrics.MOS)
}

func TestAnalyzeMediaOnlyAndUnsupported(t *testing.T) {
	b := captest.NewBuilder()
	for i := 0; i < 10; i++ {
		b.AddRTP(start.Add(time.Duration(i)*20*time.Millisecond),
			netip.AddrPortFrom(caller, 40000), netip.AddrPortFrom(callee, 50000),
			rtp.Header{PayloadType: 8, SequenceNumber: uint16(i), Timestamp: uint32(i * 160), SSRC: 0xcafe}, captest.Tone(160, i))
	}
	data, err := b.Bytes()
	require.NoError(t, err)

	res := newAnalyzer(t, nil).Analyze("job-6", []Capture{{Name: "pcma.pcap", Data: data}})

	require.Len(t, res.Calls, 1)
	call := res.Calls[0]
	assert.True(t, call.Call.MediaOnly)
	assert.Equal(t, fmt.Sprintf("rtp-%08x", 0xcafe), call.Call.ID)
	assert.Equal(t, core.EncodingPCMA, call.Encoding.Name)
	assert.Equal(t, core.AudioUnsupported, call.Audio.Status)
	assert.NotEmpty(t, call.Audio.Reason)
}

func TestAnalyzeAudioDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Enabled = false

	res := newAnalyzer(t, cfg).Analyze("job-7", []Capture{{Name: "a.pcap", Data: callCapture(t, baseSpec())}})

	require.Len(t, res.Calls, 1)
	assert.Equal(t, core.AudioPending, res.Calls[0].Audio.Status)
	assert.NotNil(t, res.Calls[0].Metrics)
}

func TestAnalyzeSignalingOnlyCall(t *testing.T) {
	b := captest.NewBuilder()
	b.AddSIP(start, netip.AddrPortFrom(caller, 5060), netip.AddrPortFrom(callee, 5060),
		captest.Invite("no-media@test", caller, callee, ""))
	data, err := b.Bytes()
	require.NoError(t, err)

	res := newAnalyzer(t, nil).Analyze("job-8", []Capture{{Name: "sig.pcap", Data: data}})

	require.Len(t, res.Calls, 1)
	assert.Nil(t, res.Calls[0].Metrics)
	assert.Empty(t, res.Calls[0].Directions)
	assert.Equal(t, core.AudioNoMediaData, res.Calls[0].Audio.Status)
}
