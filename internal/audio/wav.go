package audio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

const (
	wavHeaderLen  = 44
	bitsPerSample = 16
	pcmFormat     = 1
)

// EncodeWAV packages mono 16-bit samples into a RIFF/WAVE PCM container.
func EncodeWAV(samples []int16, sampleRate uint32) ([]byte, error) {
	dataLen := uint64(len(samples)) * 2
	if dataLen > math.MaxUint32-36 {
		return nil, fmt.Errorf("wav data of %d bytes exceeds RIFF limit: %w", dataLen, core.ErrDecodeFailure)
	}
	if sampleRate == 0 {
		return nil, fmt.Errorf("wav sample rate is zero: %w", core.ErrDecodeFailure)
	}

	const channels = 1
	out := make([]byte, wavHeaderLen+int(dataLen))
	header := out[:wavHeaderLen]

	// ChunkID "RIFF"
	copy(header[0:], "RIFF")
	// ChunkSize = 36 + data
	binary.LittleEndian.PutUint32(header[4:], uint32(36+dataLen))
	// Format "WAVE"
	copy(header[8:], "WAVE")
	// Subchunk1ID "fmt "
	copy(header[12:], "fmt ")
	// Subchunk1Size (16 for PCM)
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], pcmFormat)
	binary.LittleEndian.PutUint16(header[22:], channels)
	binary.LittleEndian.PutUint32(header[24:], sampleRate)
	// ByteRate = SampleRate * NumChannels * BitsPerSample/8
	binary.LittleEndian.PutUint32(header[28:], sampleRate*channels*bitsPerSample/8)
	// BlockAlign = NumChannels * BitsPerSample/8
	binary.LittleEndian.PutUint16(header[32:], channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(header[34:], bitsPerSample)
	// Subchunk2ID "data"
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(dataLen))

	data := out[wavHeaderLen:]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(s))
	}
	return out, nil
}
