// Package plugin defines parser interfaces.
package plugin

import (
	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

// Parser decodes one application protocol carried in UDP payloads.
//
// CanHandle is a cheap pre-check. Handle fills the matching field of out and
// sets out.Kind; a payload that turns out not to belong to the protocol
// returns the parser's "not this protocol" sentinel (core.ErrNotRTP,
// core.ErrNotSIP) and leaves out untouched.
type Parser interface {
	Name() string
	CanHandle(pkt *core.DecodedPacket) bool
	Handle(pkt *core.DecodedPacket, out *core.Classified) error
}
