// Package rtp implements the RTP header parser.
//
// A UDP payload is RTP when it carries version 2 and at least the 12-byte
// fixed header (RFC 3550 §5.1). The header is extended by 4 bytes per CSRC
// entry; everything after it is the media payload. Padding and extension
// flags are recorded but do not move the payload boundary.
package rtp

import (
	"encoding/binary"
	"fmt"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
	"github.com/joseaugustine1/pcap-sip-vision/pkg/plugin"
)

const (
	rtpVersion    = 2
	rtpMinLength  = 12 // Fixed RTP header size (RFC 3550 §5.1)
	csrcEntrySize = 4
)

// RTPParser parses RTP datagrams.
//
// It implements plugin.Parser.
type RTPParser struct {
	name string
}

// NewRTPParser creates a new RTPParser instance.
func NewRTPParser() plugin.Parser {
	return &RTPParser{name: "rtp"}
}

// Name returns the parser identifier used in logs and metrics labels.
func (p *RTPParser) Name() string { return p.name }

// CanHandle applies the cheap header check: UDP, minimum length, V=2.
func (p *RTPParser) CanHandle(pkt *core.DecodedPacket) bool {
	if pkt.Transport.Protocol != 17 {
		return false
	}
	return looksLikeRTP(pkt.Payload)
}

// Handle decodes the RTP header and stores the media packet in out.
func (p *RTPParser) Handle(pkt *core.DecodedPacket, out *core.Classified) error {
	media, err := Decode(pkt.Payload)
	if err != nil {
		return err
	}

	media.Timestamp = pkt.Timestamp
	media.SrcIP = pkt.IP.SrcIP
	media.DstIP = pkt.IP.DstIP
	media.SrcPort = pkt.Transport.SrcPort
	media.DstPort = pkt.Transport.DstPort

	out.Kind = core.KindMedia
	out.Media = media
	return nil
}

// Decode parses an RTP header from b. The returned packet's Payload aliases b.
// Capture metadata (time, addresses) is left zero.
func Decode(b []byte) (core.MediaPacket, error) {
	if len(b) < rtpMinLength {
		return core.MediaPacket{}, fmt.Errorf("rtp: %d bytes: %w", len(b), core.ErrNotRTP)
	}

	// Byte 0: V(7:6) P(5) X(4) CC(3:0)
	version := b[0] >> 6
	if version != rtpVersion {
		return core.MediaPacket{}, fmt.Errorf("rtp: version %d: %w", version, core.ErrNotRTP)
	}
	cc := b[0] & 0x0F

	headerLen := rtpMinLength + int(cc)*csrcEntrySize
	if headerLen > len(b) {
		return core.MediaPacket{}, fmt.Errorf("rtp: header %d bytes exceeds packet %d: %w",
			headerLen, len(b), core.ErrNotRTP)
	}

	return core.MediaPacket{
		Padding:   b[0]&0x20 != 0,
		Extension: b[0]&0x10 != 0,
		CSRCCount: cc,
		// Byte 1: M(7) PT(6:0)
		Marker:          b[1]&0x80 != 0,
		PayloadType:     b[1] & 0x7F,
		SequenceNumber:  binary.BigEndian.Uint16(b[2:4]),
		StreamTimestamp: binary.BigEndian.Uint32(b[4:8]),
		SSRC:            binary.BigEndian.Uint32(b[8:12]),
		Payload:         b[headerLen:],
	}, nil
}

// looksLikeRTP is the lightweight pre-check shared by CanHandle.
func looksLikeRTP(b []byte) bool {
	return len(b) >= rtpMinLength && b[0]>>6 == rtpVersion
}
