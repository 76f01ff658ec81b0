// Package audio reconstructs playable audio from G.711 µ-law RTP streams.
package audio

const muLawBias = 0x84

var muLawDecodeTable [256]int16

func init() {
	for i := range muLawDecodeTable {
		muLawDecodeTable[i] = decodeMuLawSample(byte(i))
	}
}

// decodeMuLawSample expands one µ-law byte (ITU-T G.711) to 16-bit PCM.
func decodeMuLawSample(uval byte) int16 {
	uval = ^uval
	sign := uval & 0x80
	exponent := (uval >> 4) & 0x07
	mantissa := uval & 0x0F
	magnitude := ((int16(mantissa) << 3) + muLawBias) << exponent
	magnitude -= muLawBias
	if sign != 0 {
		return -magnitude
	}
	return magnitude
}

// DecodeMuLaw appends the PCM expansion of payload to dst.
func DecodeMuLaw(dst []int16, payload []byte) []int16 {
	for _, b := range payload {
		dst = append(dst, muLawDecodeTable[b])
	}
	return dst
}
