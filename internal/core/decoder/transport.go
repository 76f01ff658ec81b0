// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

const (
	udpHeaderLen = 8

	protocolUDP = 17
)

// decodeUDP decodes UDP header.
func decodeUDP(data []byte) (core.TransportHeader, []byte, error) {
	if len(data) < udpHeaderLen {
		return core.TransportHeader{}, nil, core.ErrPacketTooShort
	}

	transport := core.TransportHeader{
		Protocol: protocolUDP,
		SrcPort:  binary.BigEndian.Uint16(data[0:2]),
		DstPort:  binary.BigEndian.Uint16(data[2:4]),
		Length:   binary.BigEndian.Uint16(data[4:6]),
	}

	// Checksum (2 bytes at offset 6) - not needed for decoding
	return transport, data[udpHeaderLen:], nil
}
