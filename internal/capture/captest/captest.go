// Package captest builds synthetic pcap captures of SIP/RTP calls.
//
// Frames are serialized with gopacket (Ethernet/IPv4/UDP), RTP payloads with
// pion/rtp, and the container with pcapgo, so fixtures exercise the same
// byte layout real capture tools produce.
package captest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pion/rtp"
)

const snapLen = 65535

var (
	callerMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	calleeMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// Builder accumulates frames into an in-memory little-endian pcap.
// The first error is sticky and reported by Bytes.
type Builder struct {
	buf bytes.Buffer
	w   *pcapgo.Writer
	err error
}

// NewBuilder writes the global header for an Ethernet capture.
func NewBuilder() *Builder {
	b := &Builder{}
	b.w = pcapgo.NewWriter(&b.buf)
	b.err = b.w.WriteFileHeader(snapLen, layers.LinkTypeEthernet)
	return b
}

// Bytes returns the capture built so far.
func (b *Builder) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return append([]byte(nil), b.buf.Bytes()...), nil
}

// AddFrame appends an arbitrary link-layer frame.
func (b *Builder) AddFrame(ts time.Time, frame []byte) *Builder {
	if b.err != nil {
		return b
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	b.err = b.w.WritePacket(ci, frame)
	return b
}

// AddUDP appends an Ethernet/IPv4/UDP frame carrying payload.
func (b *Builder) AddUDP(ts time.Time, src, dst netip.AddrPort, payload []byte) *Builder {
	if b.err != nil {
		return b
	}
	frame, err := UDPFrame(src, dst, payload)
	if err != nil {
		b.err = err
		return b
	}
	return b.AddFrame(ts, frame)
}

// AddRTP appends one RTP packet.
func (b *Builder) AddRTP(ts time.Time, src, dst netip.AddrPort, hdr rtp.Header, payload []byte) *Builder {
	if b.err != nil {
		return b
	}
	hdr.Version = 2
	raw, err := (&rtp.Packet{Header: hdr, Payload: payload}).Marshal()
	if err != nil {
		b.err = fmt.Errorf("marshal rtp: %w", err)
		return b
	}
	return b.AddUDP(ts, src, dst, raw)
}

// AddSIP appends one SIP message.
func (b *Builder) AddSIP(ts time.Time, src, dst netip.AddrPort, msg string) *Builder {
	return b.AddUDP(ts, src, dst, []byte(msg))
}

// UDPFrame serializes an Ethernet/IPv4/UDP frame with valid lengths and checksums.
func UDPFrame(src, dst netip.AddrPort, payload []byte) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       callerMAC,
		DstMAC:       calleeMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP(src.Addr().AsSlice()),
		DstIP:    net.IP(dst.Addr().AsSlice()),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(src.Port()),
		DstPort: layers.UDPPort(dst.Port()),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return nil, fmt.Errorf("serialize udp frame: %w", err)
	}
	return buf.Bytes(), nil
}

// CallSpec describes one synthetic call: INVITE, 200 OK, a paced RTP flow
// from caller to callee (optionally also callee to caller) and a BYE.
type CallSpec struct {
	CallID      string
	Caller      netip.Addr
	Callee      netip.Addr
	CallerRTP   uint16
	CalleeRTP   uint16
	Start       time.Time
	Packets     int          // RTP packets actually emitted per direction
	Skip        map[int]bool // sequence offsets omitted from the flow
	SSRC        uint32
	ReverseSSRC uint32 // non-zero adds a callee-to-caller flow
	StartSeq    uint16
	StartTS     uint32
	PayloadType uint8
	Codec       string        // rtpmap encoding name, e.g. "PCMU"
	Interval    time.Duration // packetization interval, default 20ms
	SkipSDP     bool          // send the INVITE without a body

	// Bases of the callee-to-caller flow. Real endpoints pick them
	// independently; zero values reuse StartSeq and StartTS.
	ReverseStartSeq uint16
	ReverseStartTS  uint32
}

const sipPort = 5060

func (s *CallSpec) defaults() {
	if s.Interval == 0 {
		s.Interval = 20 * time.Millisecond
	}
	if s.Codec == "" {
		s.Codec = "PCMU"
	}
	if s.CallerRTP == 0 {
		s.CallerRTP = 40000
	}
	if s.CalleeRTP == 0 {
		s.CalleeRTP = 50000
	}
}

// MediaStart is the capture time of the first RTP packet of spec.
func (s CallSpec) MediaStart() time.Time {
	return s.Start.Add(200 * time.Millisecond)
}

// AddCall appends the complete call described by spec.
func (b *Builder) AddCall(spec CallSpec) *Builder {
	spec.defaults()

	callerSIP := netip.AddrPortFrom(spec.Caller, sipPort)
	calleeSIP := netip.AddrPortFrom(spec.Callee, sipPort)
	callerRTP := netip.AddrPortFrom(spec.Caller, spec.CallerRTP)
	calleeRTP := netip.AddrPortFrom(spec.Callee, spec.CalleeRTP)

	sdp := ""
	if !spec.SkipSDP {
		sdp = SDP(spec.Caller, spec.CallerRTP, spec.PayloadType, spec.Codec)
	}
	b.AddSIP(spec.Start, callerSIP, calleeSIP, Invite(spec.CallID, spec.Caller, spec.Callee, sdp))
	b.AddSIP(spec.Start.Add(100*time.Millisecond), calleeSIP, callerSIP,
		Response(spec.CallID, 200, "OK", "1 INVITE", SDP(spec.Callee, spec.CalleeRTP, spec.PayloadType, spec.Codec)))

	end := b.addFlow(spec, flow{src: callerRTP, dst: calleeRTP, ssrc: spec.SSRC, seq: spec.StartSeq, ts: spec.StartTS})
	if spec.ReverseSSRC != 0 {
		rev := flow{src: calleeRTP, dst: callerRTP, ssrc: spec.ReverseSSRC, seq: spec.StartSeq, ts: spec.StartTS,
			// Offset by half an interval so the two directions interleave.
			offset: spec.Interval / 2}
		if spec.ReverseStartSeq != 0 {
			rev.seq = spec.ReverseStartSeq
		}
		if spec.ReverseStartTS != 0 {
			rev.ts = spec.ReverseStartTS
		}
		if e := b.addFlow(spec, rev); e.After(end) {
			end = e
		}
	}

	b.AddSIP(end.Add(500*time.Millisecond), callerSIP, calleeSIP, Bye(spec.CallID, spec.Caller, spec.Callee))
	return b
}

type flow struct {
	src, dst netip.AddrPort
	ssrc     uint32
	seq      uint16
	ts       uint32
	offset   time.Duration
}

func (b *Builder) addFlow(spec CallSpec, f flow) time.Time {
	samplesPerPacket := uint32(spec.Interval / (time.Second / 8000))
	last := spec.MediaStart()
	for i, emitted := 0, 0; emitted < spec.Packets; i++ {
		if spec.Skip[i] {
			continue
		}
		ts := spec.MediaStart().Add(f.offset + time.Duration(i)*spec.Interval)
		hdr := rtp.Header{
			Marker:         i == 0,
			PayloadType:    spec.PayloadType,
			SequenceNumber: f.seq + uint16(i),
			Timestamp:      f.ts + uint32(i)*samplesPerPacket,
			SSRC:           f.ssrc,
		}
		b.AddRTP(ts, f.src, f.dst, hdr, Tone(int(samplesPerPacket), i))
		last = ts
		emitted++
	}
	return last
}

// Tone returns n µ-law bytes of a deterministic, non-silent pattern.
func Tone(n, seed int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(0x10 + (i+seed)%0x60)
	}
	return out
}

// SDP returns a single-audio-stream session description.
func SDP(addr netip.Addr, port uint16, pt uint8, codec string) string {
	lines := []string{
		"v=0",
		fmt.Sprintf("o=- 2890844526 2890844526 IN IP4 %s", addr),
		"s=-",
		fmt.Sprintf("c=IN IP4 %s", addr),
		"t=0 0",
		fmt.Sprintf("m=audio %d RTP/AVP %d 101", port, pt),
		fmt.Sprintf("a=rtpmap:%d %s/8000", pt, codec),
		"a=rtpmap:101 telephone-event/8000",
		"a=sendrecv",
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

// Invite returns an INVITE request carrying body (may be empty).
func Invite(callID string, from, to netip.Addr, body string) string {
	return request("INVITE", callID, from, to, "1 INVITE", body)
}

// Bye returns a BYE request.
func Bye(callID string, from, to netip.Addr) string {
	return request("BYE", callID, from, to, "2 BYE", "")
}

func request(method, callID string, from, to netip.Addr, cseq, body string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s sip:bob@%s SIP/2.0\r\n", method, to)
	fmt.Fprintf(&sb, "Via: SIP/2.0/UDP %s:%d;branch=z9hG4bK-%s\r\n", from, sipPort, callID)
	fmt.Fprintf(&sb, "From: \"Alice\" <sip:alice@%s>;tag=1928301774\r\n", from)
	fmt.Fprintf(&sb, "To: <sip:bob@%s>\r\n", to)
	fmt.Fprintf(&sb, "Call-ID: %s\r\n", callID)
	fmt.Fprintf(&sb, "CSeq: %s\r\n", cseq)
	fmt.Fprintf(&sb, "Contact: <sip:alice@%s:%d>\r\n", from, sipPort)
	writeBody(&sb, body)
	return sb.String()
}

// Response returns a SIP response carrying body (may be empty).
func Response(callID string, code int, reason, cseq, body string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SIP/2.0 %d %s\r\n", code, reason)
	sb.WriteString("Via: SIP/2.0/UDP 10.0.0.1:5060;branch=z9hG4bK-1\r\n")
	sb.WriteString("From: \"Alice\" <sip:alice@example.com>;tag=1928301774\r\n")
	sb.WriteString("To: <sip:bob@example.com>;tag=a6c85cf\r\n")
	fmt.Fprintf(&sb, "Call-ID: %s\r\n", callID)
	fmt.Fprintf(&sb, "CSeq: %s\r\n", cseq)
	writeBody(&sb, body)
	return sb.String()
}

func writeBody(sb *strings.Builder, body string) {
	if body != "" {
		sb.WriteString("Content-Type: application/sdp\r\n")
	}
	fmt.Fprintf(sb, "Content-Length: %d\r\n\r\n", len(body))
	sb.WriteString(body)
}

// SwapByteOrder rewrites a little-endian microsecond pcap (as produced by
// Builder) into the big-endian layout.
func SwapByteOrder(le []byte) ([]byte, error) {
	if len(le) < 24 {
		return nil, fmt.Errorf("capture too short: %d bytes", len(le))
	}
	out := append([]byte(nil), le...)
	swap16 := func(b []byte) { binary.BigEndian.PutUint16(b, binary.LittleEndian.Uint16(b)) }
	swap32 := func(b []byte) { binary.BigEndian.PutUint32(b, binary.LittleEndian.Uint32(b)) }

	swap32(out[0:4])
	swap16(out[4:6])
	swap16(out[6:8])
	for off := 8; off < 24; off += 4 {
		swap32(out[off : off+4])
	}

	for off := 24; off+16 <= len(out); {
		inclLen := binary.LittleEndian.Uint32(le[off+8 : off+12])
		for f := off; f < off+16; f += 4 {
			swap32(out[f : f+4])
		}
		off += 16 + int(inclLen)
	}
	return out, nil
}
