// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

const ipv4HeaderMinLen = 20

// decodeIPv4 decodes IPv4 header.
// Returns IPHeader and the payload following the (variable length) header.
func decodeIPv4(data []byte) (core.IPHeader, []byte, error) {
	if len(data) < ipv4HeaderMinLen {
		return core.IPHeader{}, nil, core.ErrPacketTooShort
	}

	if version := data[0] >> 4; version != 4 {
		// The EtherType already said IPv4.
		return core.IPHeader{Version: version}, nil,
			fmt.Errorf("ip version %d: %w: %w", version, core.ErrBadHeader, core.ErrUnsupportedProto)
	}

	// IHL is in 32-bit words
	headerLen := int(data[0]&0x0F) * 4
	if headerLen < ipv4HeaderMinLen || len(data) < headerLen {
		return core.IPHeader{}, nil, core.ErrPacketTooShort
	}

	ip := core.IPHeader{
		Version:  4,
		TotalLen: binary.BigEndian.Uint16(data[2:4]),
		TTL:      data[8],
		Protocol: data[9],
		SrcIP:    netip.AddrFrom4([4]byte(data[12:16])),
		DstIP:    netip.AddrFrom4([4]byte(data[16:20])),
	}

	payload := data[headerLen:]
	// Trim Ethernet padding when the IP total length says the datagram is shorter.
	if total := int(ip.TotalLen); total >= headerLen && total < len(data) {
		payload = data[headerLen:total]
	}
	return ip, payload, nil
}
