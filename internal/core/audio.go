package core

// AudioStatus is the outcome of audio reconstruction for one call.
type AudioStatus string

const (
	AudioPending     AudioStatus = "pending"
	AudioCompleted   AudioStatus = "completed"
	AudioFailed      AudioStatus = "failed"
	AudioUnsupported AudioStatus = "unsupported"
	AudioNoMediaData AudioStatus = "no_media_data"
)

// DecodedAudio is linear PCM reconstructed from one direction of a call.
type DecodedAudio struct {
	SSRC       uint32  `json:"ssrc" yaml:"ssrc"`
	SampleRate uint32  `json:"sample_rate" yaml:"sample_rate"`
	Channels   uint16  `json:"channels" yaml:"channels"`
	Samples    []int16 `json:"-" yaml:"-"`
	WAV        []byte  `json:"-" yaml:"-"`
}

// AudioResult is the terminal audio outcome of a call. Outbound and Inbound
// are set only when Status is AudioCompleted; Inbound may be nil for one-way
// calls.
type AudioResult struct {
	Status   AudioStatus   `json:"status" yaml:"status"`
	Reason   string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Outbound *DecodedAudio `json:"outbound,omitempty" yaml:"outbound,omitempty"`
	Inbound  *DecodedAudio `json:"inbound,omitempty" yaml:"inbound,omitempty"`
}
