// Package core defines core data structures with zero external dependencies.
package core

import (
	"net/netip"
	"time"
)

// RawFrame is one captured link-layer frame as stored in the capture file.
type RawFrame struct {
	Timestamp  int64  // Capture time, microseconds since epoch
	Data       []byte // Link-layer bytes, slice of the capture buffer
	CaptureLen uint32
	OrigLen    uint32
}

// Time returns the capture timestamp as time.Time (UTC).
func (f RawFrame) Time() time.Time {
	return time.UnixMicro(f.Timestamp).UTC()
}

// DecodedPacket is the result of L2-L4 protocol stack decoding.
type DecodedPacket struct {
	Timestamp int64
	Ethernet  EthernetHeader
	IP        IPHeader
	Transport TransportHeader
	Payload   []byte // UDP payload, zero-copy slice
}

// MediaPacket is one decoded RTP packet.
type MediaPacket struct {
	SequenceNumber  uint16
	StreamTimestamp uint32
	SSRC            uint32
	PayloadType     uint8
	Marker          bool
	Padding         bool
	Extension       bool
	CSRCCount       uint8
	Payload         []byte

	Timestamp int64 // Capture time, microseconds since epoch
	SrcIP     netip.Addr
	DstIP     netip.Addr
	SrcPort   uint16
	DstPort   uint16
}

// SignalingMessage is one decoded SIP request or response.
// Exactly one of Method and StatusCode is set.
type SignalingMessage struct {
	Timestamp int64      `json:"timestamp" yaml:"timestamp"`
	SrcIP     netip.Addr `json:"src_ip" yaml:"src_ip"`
	DstIP     netip.Addr `json:"dst_ip" yaml:"dst_ip"`
	SrcPort   uint16     `json:"src_port" yaml:"src_port"`
	DstPort   uint16     `json:"dst_port" yaml:"dst_port"`

	CallID     string `json:"call_id" yaml:"call_id"`
	Method     string `json:"method,omitempty" yaml:"method,omitempty"`           // Request method (INVITE, BYE, ...) or empty for responses
	StatusCode int    `json:"status_code,omitempty" yaml:"status_code,omitempty"` // Response status code or 0 for requests
	CSeq       string `json:"cseq,omitempty" yaml:"cseq,omitempty"`
	FromURI    string `json:"from,omitempty" yaml:"from,omitempty"`
	ToURI      string `json:"to,omitempty" yaml:"to,omitempty"`
	Raw        string `json:"raw" yaml:"raw"`
	SDP        string `json:"sdp,omitempty" yaml:"sdp,omitempty"` // Body, only when it starts with "v=0"
}

// IsRequest reports whether the message is a SIP request.
func (m *SignalingMessage) IsRequest() bool {
	return m.Method != ""
}

// Kind tags the result of classifying one frame.
type Kind uint8

const (
	KindNone Kind = iota // Not IPv4/UDP, or neither RTP nor SIP
	KindMedia
	KindSignaling
)

// String returns the kind name used in logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindMedia:
		return "rtp"
	case KindSignaling:
		return "sip"
	default:
		return "none"
	}
}

// Classified is the tagged classification result. Only the field matching
// Kind is meaningful.
type Classified struct {
	Kind      Kind
	Media     MediaPacket
	Signaling SignalingMessage
}
