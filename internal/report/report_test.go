package report

import (
	"bytes"
	"encoding/json"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/joseaugustine1/pcap-sip-vision/internal/capture/captest"
	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
	"github.com/joseaugustine1/pcap-sip-vision/internal/log"
	"github.com/joseaugustine1/pcap-sip-vision/pkg/analysis"
)

func analyzeCall(t *testing.T, callID string) *analysis.Result {
	t.Helper()
	data, err := captest.NewBuilder().AddCall(captest.CallSpec{
		CallID:      callID,
		Caller:      netip.MustParseAddr("10.1.1.1"),
		Callee:      netip.MustParseAddr("10.1.1.2"),
		Start:       time.Unix(1_700_000_000, 0),
		Packets:     50,
		SSRC:        0x11111111,
		ReverseSSRC: 0x22222222,
	}).Bytes()
	require.NoError(t, err)

	a := analysis.New(nil, log.NewWithWriter(log.Config{Level: "error"}, io.Discard))
	return a.Analyze("job/1", []analysis.Capture{{Name: "call.pcap", Data: data}})
}

func TestBuild(t *testing.T) {
	res := analyzeCall(t, "abc@host")

	doc := Build(res, false)
	assert.Equal(t, "job/1", doc.JobID)
	assert.Empty(t, doc.Signaling)
	require.Len(t, doc.Calls, 1)

	c := doc.Calls[0]
	assert.Equal(t, "abc@host", c.ID)
	assert.Equal(t, 3, c.Messages)
	assert.Equal(t, []string{"0x11111111", "0x22222222"}, c.SSRCs)
	assert.Equal(t, core.AudioCompleted, c.Audio.Status)
	require.NotNil(t, c.Audio.Outbound)
	assert.Equal(t, 50*160, c.Audio.Outbound.Samples)
	assert.InDelta(t, 1.0, c.Audio.Outbound.DurationS, 1e-9)

	assert.Len(t, Build(res, true).Signaling, 3)
}

func TestEncodeFormats(t *testing.T) {
	doc := Build(analyzeCall(t, "fmt@host"), true)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, doc, FormatJSON))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "job/1", decoded["job_id"])
		calls := decoded["calls"].([]any)
		require.Len(t, calls, 1)
		assert.Equal(t, "fmt@host", calls[0].(map[string]any)["id"])
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, doc, "YAML"))

		var decoded map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "job/1", decoded["job_id"])
		assert.Contains(t, buf.String(), "src_ip: 10.1.1.1")
	})

	t.Run("invalid", func(t *testing.T) {
		assert.Error(t, Encode(io.Discard, doc, "xml"))
	})
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	res := analyzeCall(t, "w r@host")

	written, err := Write(dir, res, FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "job_1.json"), written.Report)
	require.Len(t, written.Audio, 2)
	assert.Equal(t, filepath.Join(dir, "job_1", "1-w_r_host-outbound.wav"), written.Audio[0])
	assert.Equal(t, filepath.Join(dir, "job_1", "1-w_r_host-inbound.wav"), written.Audio[1])

	wav, err := os.ReadFile(written.Audio[0])
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(wav[:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))

	raw, err := os.ReadFile(written.Report)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Calls, 1)
	assert.Equal(t, filepath.Join("job_1", "1-w_r_host-outbound.wav"), doc.Calls[0].Audio.Outbound.File)
}

func TestWriteCallIDsSharingSafeName(t *testing.T) {
	b := captest.NewBuilder()
	for i, id := range []string{"a@b", "a:b"} {
		b.AddCall(captest.CallSpec{
			CallID:      id,
			Caller:      netip.AddrFrom4([4]byte{10, 2, byte(i), 1}),
			Callee:      netip.AddrFrom4([4]byte{10, 2, byte(i), 2}),
			Start:       time.Unix(1_700_000_000+int64(i)*60, 0),
			Packets:     10,
			SSRC:        0x11111111 + uint32(i),
			ReverseSSRC: 0x22222222 + uint32(i),
		})
	}
	data, err := b.Bytes()
	require.NoError(t, err)
	res := analysis.New(nil, log.NewWithWriter(log.Config{Level: "error"}, io.Discard)).
		Analyze("job-2", []analysis.Capture{{Name: "two.pcap", Data: data}})
	require.Len(t, res.Calls, 2)
	require.Equal(t, SafeName(res.Calls[0].Call.ID), SafeName(res.Calls[1].Call.ID))

	written, err := Write(t.TempDir(), res, FormatJSON)
	require.NoError(t, err)

	require.Len(t, written.Audio, 4)
	seen := make(map[string]bool)
	for _, path := range written.Audio {
		assert.False(t, seen[path], "%s written twice", path)
		seen[path] = true
		assert.FileExists(t, path)
	}
	assert.Equal(t, "1-a_b-outbound.wav", filepath.Base(written.Audio[0]))
	assert.Equal(t, "2-a_b-outbound.wav", filepath.Base(written.Audio[2]))
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc-123.x_y", "abc-123.x_y"},
		{"a@b/c d", "a_b_c_d"},
		{"", "_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeName(tt.in))
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	Summary(&buf, Build(analyzeCall(t, "sum@host"), false))

	out := buf.String()
	assert.Contains(t, out, "job job/1: 1 file(s)")
	assert.Contains(t, out, "sum@host: PCMU/8000 (pt 0) loss=0/100")
	assert.Contains(t, out, "audio=completed")
}
