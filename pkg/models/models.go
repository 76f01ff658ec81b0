// Package models re-exports core types for external use.
package models

import "github.com/joseaugustine1/pcap-sip-vision/internal/core"

// Re-export core packet types
type (
	RawFrame         = core.RawFrame
	MediaPacket      = core.MediaPacket
	SignalingMessage = core.SignalingMessage
	Classified       = core.Classified
	Kind             = core.Kind
)

// Re-export measurement types
type (
	Encoding         = core.Encoding
	CallMetrics      = core.CallMetrics
	DirectionMetrics = core.DirectionMetrics
	IntervalMetric   = core.IntervalMetric
)

// Re-export audio types
type (
	AudioStatus  = core.AudioStatus
	AudioResult  = core.AudioResult
	DecodedAudio = core.DecodedAudio
)

// Audio outcomes
const (
	AudioPending     = core.AudioPending
	AudioCompleted   = core.AudioCompleted
	AudioFailed      = core.AudioFailed
	AudioUnsupported = core.AudioUnsupported
	AudioNoMediaData = core.AudioNoMediaData
)

// Classification kinds
const (
	KindNone      = core.KindNone
	KindMedia     = core.KindMedia
	KindSignaling = core.KindSignaling
)

// Sentinel errors
var (
	ErrMalformedCapture    = core.ErrMalformedCapture
	ErrTruncatedFrame      = core.ErrTruncatedFrame
	ErrEmptyStream         = core.ErrEmptyStream
	ErrUnsupportedEncoding = core.ErrUnsupportedEncoding
	ErrDecodeFailure       = core.ErrDecodeFailure
)
