// Package decoder implements L2-L4 protocol stack decoding.
package decoder

import (
	"fmt"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

// Decoder decodes raw frames into structured format.
type Decoder interface {
	Decode(frame core.RawFrame) (core.DecodedPacket, error)
}

// StandardDecoder decodes Ethernet (with VLAN tags) / IPv4 / UDP frames.
//
// Frames carrying anything else return an error wrapping
// core.ErrUnsupportedProto; truncated headers wrap core.ErrPacketTooShort.
// Neither is fatal to a job: callers skip the frame.
type StandardDecoder struct{}

// NewStandardDecoder creates a decoder.
func NewStandardDecoder() *StandardDecoder {
	return &StandardDecoder{}
}

// Decode strips link, network and transport headers and returns the UDP payload.
func (d *StandardDecoder) Decode(frame core.RawFrame) (core.DecodedPacket, error) {
	pkt := core.DecodedPacket{Timestamp: frame.Timestamp}

	eth, l3, err := decodeEthernet(frame.Data)
	if err != nil {
		return pkt, err
	}
	pkt.Ethernet = eth

	if eth.EtherType != etherTypeIPv4 {
		return pkt, fmt.Errorf("ethertype 0x%04x: %w", eth.EtherType, core.ErrUnsupportedProto)
	}

	ip, l4, err := decodeIPv4(l3)
	if err != nil {
		return pkt, err
	}
	pkt.IP = ip

	if ip.Protocol != protocolUDP {
		return pkt, fmt.Errorf("ip protocol %d: %w", ip.Protocol, core.ErrUnsupportedProto)
	}

	transport, payload, err := decodeUDP(l4)
	if err != nil {
		return pkt, err
	}
	pkt.Transport = transport
	pkt.Payload = payload

	return pkt, nil
}
