// Package classify turns raw capture frames into media or signaling records.
package classify

import (
	"errors"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
	"github.com/joseaugustine1/pcap-sip-vision/internal/core/decoder"
	"github.com/joseaugustine1/pcap-sip-vision/internal/log"
	"github.com/joseaugustine1/pcap-sip-vision/pkg/plugin"
	"github.com/joseaugustine1/pcap-sip-vision/plugins"
)

const etherTypeIPv4 = 0x0800

// Classifier runs the L2-L4 decoder and then the application parsers in
// order. The first parser that accepts a payload wins.
//
// A Classifier is not safe for concurrent use; each job owns one.
type Classifier struct {
	decoder decoder.Decoder
	parsers []plugin.Parser
	stats   Stats
	logger  log.Logger
}

// Stats counts classification outcomes.
type Stats struct {
	Frames       uint64 `json:"frames" yaml:"frames"`
	NonIPv4      uint64 `json:"non_ipv4" yaml:"non_ipv4"`
	NonUDP       uint64 `json:"non_udp" yaml:"non_udp"`
	Malformed    uint64 `json:"malformed" yaml:"malformed"`
	Media        uint64 `json:"rtp" yaml:"rtp"`
	Signaling    uint64 `json:"sip" yaml:"sip"`
	Unrecognized uint64 `json:"unrecognized" yaml:"unrecognized"`
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Frames += other.Frames
	s.NonIPv4 += other.NonIPv4
	s.NonUDP += other.NonUDP
	s.Malformed += other.Malformed
	s.Media += other.Media
	s.Signaling += other.Signaling
	s.Unrecognized += other.Unrecognized
}

// DefaultParsers is the standard parser chain. RTP is tried first.
var DefaultParsers = []string{plugins.ParserRTP, plugins.ParserSIP}

// New creates a classifier with the standard decoder and DefaultParsers.
func New(logger log.Logger) *Classifier {
	c, err := NewFromRegistry(DefaultParsers, logger)
	if err != nil {
		panic(err) // built-in parsers are registered by package plugins
	}
	return c
}

// NewFromRegistry creates a classifier with the standard decoder and the
// named registered parsers, in order.
func NewFromRegistry(names []string, logger log.Logger) (*Classifier, error) {
	parsers, err := plugin.NewParsers(names...)
	if err != nil {
		return nil, err
	}
	return NewWith(decoder.NewStandardDecoder(), parsers, logger), nil
}

// NewWith creates a classifier with an explicit decoder and parser chain.
func NewWith(dec decoder.Decoder, parsers []plugin.Parser, logger log.Logger) *Classifier {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Classifier{
		decoder: dec,
		parsers: parsers,
		logger:  logger,
	}
}

// Classify decodes one frame. Frames that are not IPv4/UDP, or whose payload
// no parser accepts, yield a result with Kind == core.KindNone.
func (c *Classifier) Classify(frame core.RawFrame) core.Classified {
	c.stats.Frames++

	decoded, err := c.decoder.Decode(frame)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrPacketTooShort), errors.Is(err, core.ErrBadHeader):
			c.stats.Malformed++
		case decoded.Ethernet.EtherType != etherTypeIPv4:
			c.stats.NonIPv4++
		default:
			c.stats.NonUDP++
		}
		return core.Classified{}
	}

	var out core.Classified
	for _, parser := range c.parsers {
		if !parser.CanHandle(&decoded) {
			continue
		}
		if err := parser.Handle(&decoded, &out); err != nil {
			if c.logger.IsTraceEnabled() {
				c.logger.WithField("parser", parser.Name()).WithError(err).Trace("payload rejected")
			}
			continue
		}
		break
	}

	switch out.Kind {
	case core.KindMedia:
		c.stats.Media++
	case core.KindSignaling:
		c.stats.Signaling++
	default:
		c.stats.Unrecognized++
	}
	return out
}

// Stats returns the counters accumulated so far.
func (c *Classifier) Stats() Stats {
	return c.stats
}
