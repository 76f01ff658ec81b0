package core

import "fmt"

// Encoding is the audio encoding negotiated for a call.
type Encoding struct {
	PayloadType uint8  `json:"payload_type" yaml:"payload_type"`
	Name        string `json:"name" yaml:"name"` // rtpmap encoding name, upper-case (e.g. "PCMU")
	ClockRate   uint32 `json:"clock_rate" yaml:"clock_rate"`
}

// Known encoding names.
const (
	EncodingPCMU = "PCMU"
	EncodingPCMA = "PCMA"
)

// DefaultClockRate is the RTP clock of narrowband telephony codecs.
const DefaultClockRate = 8000

// staticEncodings are the static payload types assumed when the session
// description has no rtpmap entry for them.
var staticEncodings = map[uint8]Encoding{
	0: {PayloadType: 0, Name: EncodingPCMU, ClockRate: DefaultClockRate},
	8: {PayloadType: 8, Name: EncodingPCMA, ClockRate: DefaultClockRate},
}

// StaticEncoding returns the default encoding for a static payload type.
func StaticEncoding(pt uint8) (Encoding, bool) {
	enc, ok := staticEncodings[pt]
	return enc, ok
}

// IsZero reports whether no encoding was negotiated.
func (e Encoding) IsZero() bool {
	return e.Name == ""
}

// String renders the encoding as "NAME/rate (pt N)".
func (e Encoding) String() string {
	if e.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%s/%d (pt %d)", e.Name, e.ClockRate, e.PayloadType)
}
