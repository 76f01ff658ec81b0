package audio

import (
	"fmt"
	"sort"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
	"github.com/joseaugustine1/pcap-sip-vision/internal/correlate"
)

// Reconstruct decodes up to two directions of a call. Streams are ranked by
// the volume of payload carrying the negotiated payload type; the largest is
// outbound, the next inbound. Samples follow packet arrival order.
//
// The outcome is terminal: unsupported encodings and encode errors are
// reported in the result, never returned.
func Reconstruct(streams []correlate.Stream, enc core.Encoding) core.AudioResult {
	if countPackets(streams) == 0 {
		return core.AudioResult{Status: core.AudioNoMediaData, Reason: "call has no media packets"}
	}
	if enc.IsZero() {
		return unsupported("no audio encoding negotiated")
	}
	if enc.Name != core.EncodingPCMU {
		return unsupported(fmt.Sprintf("encoding %s is not supported, only %s can be decoded", enc, core.EncodingPCMU))
	}

	ranked := rankDirections(streams, enc.PayloadType)
	if len(ranked) == 0 {
		return core.AudioResult{
			Status: core.AudioNoMediaData,
			Reason: fmt.Sprintf("no packets carry negotiated payload type %d", enc.PayloadType),
		}
	}

	clock := enc.ClockRate
	if clock == 0 {
		clock = core.DefaultClockRate
	}

	result := core.AudioResult{Status: core.AudioCompleted}
	for i, dir := range ranked {
		if i == 2 {
			break
		}
		decoded, err := decodeDirection(dir, clock)
		if err != nil {
			return core.AudioResult{Status: core.AudioFailed, Reason: err.Error()}
		}
		if i == 0 {
			result.Outbound = decoded
		} else {
			result.Inbound = decoded
		}
	}
	return result
}

func unsupported(reason string) core.AudioResult {
	return core.AudioResult{
		Status: core.AudioUnsupported,
		Reason: fmt.Sprintf("%s: %v", reason, core.ErrUnsupportedEncoding),
	}
}

type direction struct {
	ssrc     uint32
	payloads [][]byte
	size     int
}

// rankDirections keeps the payloads matching pt per stream, drops streams
// without any, and orders the rest by size (largest first, stable).
func rankDirections(streams []correlate.Stream, pt uint8) []direction {
	var dirs []direction
	for _, s := range streams {
		d := direction{ssrc: s.SSRC}
		for i := range s.Packets {
			if s.Packets[i].PayloadType != pt {
				continue
			}
			d.payloads = append(d.payloads, s.Packets[i].Payload)
			d.size += len(s.Packets[i].Payload)
		}
		if d.size > 0 {
			dirs = append(dirs, d)
		}
	}
	sort.SliceStable(dirs, func(i, j int) bool {
		return dirs[i].size > dirs[j].size
	})
	return dirs
}

func decodeDirection(d direction, sampleRate uint32) (*core.DecodedAudio, error) {
	samples := make([]int16, 0, d.size)
	for _, p := range d.payloads {
		samples = DecodeMuLaw(samples, p)
	}

	wav, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("ssrc %08x: %w", d.ssrc, err)
	}
	return &core.DecodedAudio{
		SSRC:       d.ssrc,
		SampleRate: sampleRate,
		Channels:   1,
		Samples:    samples,
		WAV:        wav,
	}, nil
}

func countPackets(streams []correlate.Stream) int {
	n := 0
	for _, s := range streams {
		n += len(s.Packets)
	}
	return n
}
