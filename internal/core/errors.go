// Package core defines sentinel errors.
package core

import "errors"

var (
	// Capture container errors
	ErrMalformedCapture = errors.New("sipvision: malformed capture")
	ErrTruncatedFrame   = errors.New("sipvision: truncated frame")

	// Packet decoding errors
	ErrPacketTooShort   = errors.New("sipvision: packet too short")
	ErrBadHeader        = errors.New("sipvision: bad header")
	ErrUnsupportedProto = errors.New("sipvision: unsupported protocol")
	ErrNotRTP           = errors.New("sipvision: not RTP")
	ErrNotSIP           = errors.New("sipvision: not SIP")

	// Metrics errors
	ErrEmptyStream = errors.New("sipvision: empty stream")

	// Audio reconstruction outcomes
	ErrUnsupportedEncoding = errors.New("sipvision: unsupported encoding")
	ErrDecodeFailure       = errors.New("sipvision: decode failure")

	// Configuration errors
	ErrConfigInvalid  = errors.New("sipvision: invalid configuration")
	ErrPluginNotFound = errors.New("sipvision: plugin not found")
)
