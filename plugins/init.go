// Package plugins registers all built-in plugins.
package plugins

import (
	"github.com/joseaugustine1/pcap-sip-vision/pkg/plugin"
	"github.com/joseaugustine1/pcap-sip-vision/plugins/parser/rtp"
	"github.com/joseaugustine1/pcap-sip-vision/plugins/parser/sip"
)

// Parser names
const (
	ParserRTP = "rtp"
	ParserSIP = "sip"
)

func init() {
	// Register parser plugins
	plugin.RegisterParser(ParserRTP, rtp.NewRTPParser)
	plugin.RegisterParser(ParserSIP, sip.NewSIPParser)
}
