package sip

import (
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

// audioMedia is the part of an m=audio section needed for codec selection.
type audioMedia struct {
	formats []string
	rtpmap  []string // raw a=rtpmap values, "0 PCMU/8000"
}

// NegotiatedEncoding returns the encoding of the first format of the first
// audio media section in body. rtpmap entries name the format; payload
// types 0 and 8 fall back to PCMU and PCMA when unmapped.
//
// Bodies that pion/sdp rejects (loose field order, missing t= line) are
// scanned line by line instead.
func NegotiatedEncoding(body string) (core.Encoding, bool) {
	media, ok := audioFromSessionDescription(body)
	if !ok {
		media, ok = audioFromLines(body)
	}
	if !ok {
		return core.Encoding{}, false
	}

	for _, format := range media.formats {
		pt, err := strconv.ParseUint(strings.TrimSpace(format), 10, 7)
		if err != nil {
			continue
		}
		return resolveEncoding(uint8(pt), format, media.rtpmap)
	}
	return core.Encoding{}, false
}

func audioFromSessionDescription(body string) (audioMedia, bool) {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(body)); err != nil {
		return audioMedia{}, false
	}

	for _, md := range desc.MediaDescriptions {
		if md.MediaName.Media != "audio" {
			continue
		}
		media := audioMedia{formats: md.MediaName.Formats}
		for _, attr := range md.Attributes {
			if attr.Key == "rtpmap" {
				media.rtpmap = append(media.rtpmap, attr.Value)
			}
		}
		return media, true
	}
	return audioMedia{}, false
}

// audioFromLines scans m= and a= lines without validating the rest.
func audioFromLines(body string) (audioMedia, bool) {
	var media audioMedia
	inAudio, found := false, false

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 2 || line[1] != '=' {
			continue
		}

		value := line[2:]
		switch line[0] {
		case 'm':
			if found {
				return media, true
			}
			// m=audio 49170 RTP/AVP 0 8
			parts := strings.Fields(value)
			inAudio = len(parts) >= 4 && parts[0] == "audio"
			if inAudio {
				found = true
				media.formats = parts[3:]
			}
		case 'a':
			if inAudio && strings.HasPrefix(value, "rtpmap:") {
				media.rtpmap = append(media.rtpmap, value[len("rtpmap:"):])
			}
		}
	}
	return media, found
}

func resolveEncoding(pt uint8, format string, rtpmap []string) (core.Encoding, bool) {
	name, rate := codecFromRtpmap(rtpmap, format)
	if name == "" {
		static, ok := core.StaticEncoding(pt)
		if !ok {
			return core.Encoding{}, false
		}
		return static, true
	}
	if rate == 0 {
		rate = core.DefaultClockRate
		if static, ok := core.StaticEncoding(pt); ok {
			rate = static.ClockRate
		}
	}
	return core.Encoding{PayloadType: pt, Name: name, ClockRate: rate}, true
}

// codecFromRtpmap finds "<format> NAME/rate[/channels]" among the values.
func codecFromRtpmap(values []string, format string) (string, uint32) {
	for _, value := range values {
		parts := strings.Fields(value)
		if len(parts) != 2 || parts[0] != format {
			continue
		}

		fields := strings.Split(parts[1], "/")
		name := strings.ToUpper(fields[0])
		var rate uint32
		if len(fields) > 1 {
			if r, err := strconv.ParseUint(fields[1], 10, 32); err == nil {
				rate = uint32(r)
			}
		}
		return name, rate
	}
	return "", 0
}
