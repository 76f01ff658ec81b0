// Package sip implements the SIP signaling parser.
// Parses SIP requests and responses, extracts the dialog key headers and
// keeps the SDP body for codec negotiation.
package sip

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
	"github.com/joseaugustine1/pcap-sip-vision/pkg/plugin"
)

const (
	versionToken  = "SIP/2.0"
	sdpMarker     = "v=0"
	unknownCallID = "unknown"
)

// SIPParser parses SIP signaling messages.
type SIPParser struct {
	name string
}

// NewSIPParser creates a new SIP parser.
func NewSIPParser() plugin.Parser {
	return &SIPParser{name: "sip"}
}

// Name returns the parser name.
func (p *SIPParser) Name() string {
	return p.name
}

// CanHandle checks if this packet is likely SIP: a UDP payload that
// contains the SIP version token anywhere.
func (p *SIPParser) CanHandle(pkt *core.DecodedPacket) bool {
	if pkt.Transport.Protocol != 17 {
		return false
	}
	return bytes.Contains(pkt.Payload, []byte(versionToken))
}

// Handle parses the SIP message and stores it in out.
func (p *SIPParser) Handle(pkt *core.DecodedPacket, out *core.Classified) error {
	msg, err := Parse(pkt.Payload)
	if err != nil {
		return err
	}

	msg.Timestamp = pkt.Timestamp
	msg.SrcIP = pkt.IP.SrcIP
	msg.DstIP = pkt.IP.DstIP
	msg.SrcPort = pkt.Transport.SrcPort
	msg.DstPort = pkt.Transport.DstPort

	out.Kind = core.KindSignaling
	out.Signaling = msg
	return nil
}

// Parse decodes a SIP message from payload. Invalid UTF-8 is replaced, never
// rejected. Capture metadata (time, addresses) is left zero.
func Parse(payload []byte) (core.SignalingMessage, error) {
	text := strings.ToValidUTF8(string(payload), "�")
	if !strings.Contains(text, versionToken) {
		return core.SignalingMessage{}, fmt.Errorf("sip: no %s token: %w", versionToken, core.ErrNotSIP)
	}

	msg := core.SignalingMessage{
		CallID: unknownCallID,
		Raw:    text,
	}

	// Split headers and body by \r\n\r\n or \n\n
	headers, body, _ := splitBody(text)
	lines := strings.Split(headers, "\n")

	// Parse first line (Request-Line or Status-Line)
	firstLine := strings.TrimSpace(lines[0])
	if strings.HasPrefix(firstLine, versionToken) {
		// Status-Line: SIP/2.0 200 OK
		code, ok := parseStatusCode(firstLine[len(versionToken):])
		if !ok {
			return core.SignalingMessage{}, fmt.Errorf("sip: bad status line %q: %w", firstLine, core.ErrNotSIP)
		}
		msg.StatusCode = code
	} else {
		// Request-Line: INVITE sip:bob@example.com SIP/2.0
		method := leadingUpper(firstLine)
		if method == "" {
			return core.SignalingMessage{}, fmt.Errorf("sip: no method in %q: %w", firstLine, core.ErrNotSIP)
		}
		msg.Method = method
	}

	// Parse headers
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		// Header folding: lines starting with space/tab are continuations
		for i+1 < len(lines) && len(lines[i+1]) > 0 && (lines[i+1][0] == ' ' || lines[i+1][0] == '\t') {
			i++
			line += " " + strings.TrimSpace(lines[i])
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		// Parse key headers (case-insensitive)
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "call-id", "i":
			if value != "" {
				msg.CallID = value
			}
		case "from", "f":
			msg.FromURI = extractURI(value)
		case "to", "t":
			msg.ToURI = extractURI(value)
		case "cseq":
			msg.CSeq = value
		}
	}

	if strings.HasPrefix(body, sdpMarker) {
		msg.SDP = body
	}

	return msg, nil
}

// splitBody separates the header block from the body at the first blank
// line, accepting both CRLF and bare LF line endings.
func splitBody(text string) (headers, body string, found bool) {
	crlf := strings.Index(text, "\r\n\r\n")
	lf := strings.Index(text, "\n\n")
	switch {
	case crlf >= 0 && (lf < 0 || crlf <= lf):
		return text[:crlf], text[crlf+4:], true
	case lf >= 0:
		return text[:lf], text[lf+2:], true
	default:
		return text, "", false
	}
}

// parseStatusCode reads the 3-digit code after the version token.
func parseStatusCode(rest string) (int, bool) {
	rest = strings.TrimLeft(rest, " ")
	if len(rest) < 3 {
		return 0, false
	}
	if len(rest) > 3 && rest[3] != ' ' && rest[3] != '\r' {
		return 0, false
	}
	code, err := strconv.Atoi(rest[:3])
	if err != nil || code < 100 {
		return 0, false
	}
	return code, true
}

// leadingUpper returns the run of ASCII upper-case letters at the start of s.
func leadingUpper(s string) string {
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	return s[:i]
}

// extractURI extracts URI from From/To header value.
// Example: "Alice" <sip:alice@example.com>;tag=1234 → sip:alice@example.com
func extractURI(value string) string {
	// Find <...> brackets
	start := strings.IndexByte(value, '<')
	if start == -1 {
		// No brackets, URI is the first token
		parts := strings.Fields(value)
		if len(parts) > 0 {
			// Remove trailing parameters (;xxx)
			uri := parts[0]
			if semiIdx := strings.IndexByte(uri, ';'); semiIdx != -1 {
				uri = uri[:semiIdx]
			}
			return uri
		}
		return ""
	}

	end := strings.IndexByte(value[start:], '>')
	if end == -1 {
		return ""
	}

	return value[start+1 : start+end]
}
