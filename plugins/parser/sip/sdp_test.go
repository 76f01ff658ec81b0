package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

func TestNegotiatedEncoding(t *testing.T) {
	tests := []struct {
		name string
		body string
		want core.Encoding
		ok   bool
	}{
		{
			name: "rtpmap names the first format",
			body: inviteSDP,
			want: core.Encoding{PayloadType: 0, Name: "PCMU", ClockRate: 8000},
			ok:   true,
		},
		{
			name: "static default for unmapped 8",
			body: "v=0\r\no=- 1 1 IN IP4 10.0.0.1\r\ns=-\r\nc=IN IP4 10.0.0.1\r\nt=0 0\r\nm=audio 4000 RTP/AVP 8 0\r\n",
			want: core.Encoding{PayloadType: 8, Name: "PCMA", ClockRate: 8000},
			ok:   true,
		},
		{
			name: "dynamic payload type mapped",
			body: "v=0\r\no=- 1 1 IN IP4 10.0.0.1\r\ns=-\r\nt=0 0\r\nm=audio 4000 RTP/AVP 96\r\na=rtpmap:96 opus/48000/2\r\n",
			want: core.Encoding{PayloadType: 96, Name: "OPUS", ClockRate: 48000},
			ok:   true,
		},
		{
			name: "audio after video",
			body: "v=0\r\no=- 1 1 IN IP4 10.0.0.1\r\ns=-\r\nt=0 0\r\nm=video 5000 RTP/AVP 31\r\nm=audio 4000 RTP/AVP 0\r\n",
			want: core.Encoding{PayloadType: 0, Name: "PCMU", ClockRate: 8000},
			ok:   true,
		},
		{
			name: "loose body falls back to line scan",
			body: "v=0\nm=audio 4000 RTP/AVP 18\na=rtpmap:18 G729/8000\n",
			want: core.Encoding{PayloadType: 18, Name: "G729", ClockRate: 8000},
			ok:   true,
		},
		{
			name: "unmapped dynamic type",
			body: "v=0\nm=audio 4000 RTP/AVP 97\n",
			ok:   false,
		},
		{
			name: "no audio",
			body: "v=0\nm=video 5000 RTP/AVP 31\n",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NegotiatedEncoding(tt.body)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
