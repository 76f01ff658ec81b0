// Package correlate groups signaling and media into calls.
package correlate

import (
	"sort"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

// Stream is the ordered packet list of one SSRC.
type Stream struct {
	SSRC    uint32
	Packets []core.MediaPacket
}

// FirstSeen returns the capture time of the stream's first packet.
func (s Stream) FirstSeen() int64 {
	if len(s.Packets) == 0 {
		return 0
	}
	return s.Packets[0].Timestamp
}

// PayloadBytes sums the media payload length of every packet.
func (s Stream) PayloadBytes() int {
	n := 0
	for i := range s.Packets {
		n += len(s.Packets[i].Payload)
	}
	return n
}

// Call is a frozen call aggregate. Use a Builder to create one.
type Call struct {
	ID        string
	MediaOnly bool
	Signaling []core.SignalingMessage
	Streams   []Stream

	packets []core.MediaPacket
}

// Packets returns every media packet of the call merged across streams and
// ordered by capture time. Packets with equal capture time keep stream order.
// The slice is shared; callers must not modify it.
func (c *Call) Packets() []core.MediaPacket {
	return c.packets
}

// Invite returns the first INVITE request of the call.
func (c *Call) Invite() (core.SignalingMessage, bool) {
	return firstInvite(c.Signaling)
}

func firstInvite(msgs []core.SignalingMessage) (core.SignalingMessage, bool) {
	for i := range msgs {
		if msgs[i].Method == "INVITE" {
			return msgs[i], true
		}
	}
	return core.SignalingMessage{}, false
}

// Builder accumulates signaling and streams for one call. It only appends;
// Freeze produces the immutable Call and ends the builder's life.
type Builder struct {
	id        string
	mediaOnly bool
	signaling []core.SignalingMessage
	streams   []Stream
	frozen    bool
}

// NewBuilder starts a call keyed by a SIP Call-ID.
func NewBuilder(id string) *Builder {
	return &Builder{id: id}
}

// NewMediaOnlyBuilder starts a call that has no signaling.
func NewMediaOnlyBuilder(id string) *Builder {
	return &Builder{id: id, mediaOnly: true}
}

// ID returns the call identifier.
func (b *Builder) ID() string { return b.id }

// AddSignaling appends a signaling message.
func (b *Builder) AddSignaling(msg core.SignalingMessage) {
	b.mustBeOpen()
	b.signaling = append(b.signaling, msg)
}

// AddStream attaches a media stream.
func (b *Builder) AddStream(s Stream) {
	b.mustBeOpen()
	b.streams = append(b.streams, s)
}

// Invite returns the first INVITE request added so far.
func (b *Builder) Invite() (core.SignalingMessage, bool) {
	return firstInvite(b.signaling)
}

// Freeze finalizes the call. Stream packets are ordered by capture time and
// merged into the call-wide packet list.
func (b *Builder) Freeze() *Call {
	b.mustBeOpen()
	b.frozen = true

	call := &Call{
		ID:        b.id,
		MediaOnly: b.mediaOnly,
		Signaling: b.signaling,
		Streams:   make([]Stream, len(b.streams)),
	}

	total := 0
	for i, s := range b.streams {
		pkts := append([]core.MediaPacket(nil), s.Packets...)
		sortByCaptureTime(pkts)
		call.Streams[i] = Stream{SSRC: s.SSRC, Packets: pkts}
		total += len(pkts)
	}

	merged := make([]core.MediaPacket, 0, total)
	for _, s := range call.Streams {
		merged = append(merged, s.Packets...)
	}
	sortByCaptureTime(merged)
	call.packets = merged

	return call
}

func (b *Builder) mustBeOpen() {
	if b.frozen {
		panic("correlate: call " + b.id + " already frozen")
	}
}

func sortByCaptureTime(pkts []core.MediaPacket) {
	sort.SliceStable(pkts, func(i, j int) bool {
		return pkts[i].Timestamp < pkts[j].Timestamp
	})
}
