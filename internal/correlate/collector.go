package correlate

import (
	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

// Collector accumulates classified records for one job: signaling keyed by
// Call-ID and media keyed by SSRC, both in first-seen order.
//
// It is built once per job and never shared between jobs.
type Collector struct {
	dialogs     map[string][]core.SignalingMessage
	dialogOrder []string
	streams     map[uint32][]core.MediaPacket
	streamOrder []uint32
	signaling   []core.SignalingMessage
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		dialogs: make(map[string][]core.SignalingMessage),
		streams: make(map[uint32][]core.MediaPacket),
	}
}

// Add stores a classification result. KindNone results are ignored.
func (c *Collector) Add(r core.Classified) {
	switch r.Kind {
	case core.KindMedia:
		c.AddMedia(r.Media)
	case core.KindSignaling:
		c.AddSignaling(r.Signaling)
	}
}

// AddSignaling appends msg to its dialog.
func (c *Collector) AddSignaling(msg core.SignalingMessage) {
	if _, ok := c.dialogs[msg.CallID]; !ok {
		c.dialogOrder = append(c.dialogOrder, msg.CallID)
	}
	c.dialogs[msg.CallID] = append(c.dialogs[msg.CallID], msg)
	c.signaling = append(c.signaling, msg)
}

// AddMedia appends pkt to its SSRC stream.
func (c *Collector) AddMedia(pkt core.MediaPacket) {
	if _, ok := c.streams[pkt.SSRC]; !ok {
		c.streamOrder = append(c.streamOrder, pkt.SSRC)
	}
	c.streams[pkt.SSRC] = append(c.streams[pkt.SSRC], pkt)
}

// Signaling returns every signaling message in arrival order.
func (c *Collector) Signaling() []core.SignalingMessage {
	return c.signaling
}

// DialogCount returns the number of distinct Call-IDs.
func (c *Collector) DialogCount() int { return len(c.dialogOrder) }

// StreamCount returns the number of distinct SSRCs.
func (c *Collector) StreamCount() int { return len(c.streamOrder) }
