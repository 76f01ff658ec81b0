// Package capture reads classic pcap capture containers.
package capture

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/gopacket/layers"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

const (
	globalHeaderLen = 24
	recordHeaderLen = 16
)

// Magic numbers as they appear on disk in the file's own byte order.
var (
	magicMicros = [4]byte{0xa1, 0xb2, 0xc3, 0xd4}
	magicNanos  = [4]byte{0xa1, 0xb2, 0x3c, 0x4d}
)

// Header is the decoded pcap global header.
type Header struct {
	ByteOrder    binary.ByteOrder
	VersionMajor uint16
	VersionMinor uint16
	SnapLen      uint32
	LinkType     layers.LinkType
	Nanosecond   bool
}

// Reader yields frames from an in-memory pcap buffer.
//
// It is lazy and non-restartable: every call to Next advances the cursor.
type Reader struct {
	data      []byte
	offset    int
	header    Header
	truncated bool
}

// NewReader validates the global header of data and positions the reader on
// the first record. It fails with core.ErrMalformedCapture when the magic
// number is unknown or the global header is incomplete.
func NewReader(data []byte) (*Reader, error) {
	if len(data) < globalHeaderLen {
		return nil, fmt.Errorf("global header needs %d bytes, have %d: %w",
			globalHeaderLen, len(data), core.ErrMalformedCapture)
	}

	hdr, err := parseGlobalHeader(data[:globalHeaderLen])
	if err != nil {
		return nil, err
	}

	return &Reader{
		data:   data,
		offset: globalHeaderLen,
		header: hdr,
	}, nil
}

func parseGlobalHeader(b []byte) (Header, error) {
	var magic [4]byte
	copy(magic[:], b[:4])

	hdr := Header{}
	switch magic {
	case magicMicros:
		hdr.ByteOrder = binary.BigEndian
	case magicNanos:
		hdr.ByteOrder, hdr.Nanosecond = binary.BigEndian, true
	case reverse(magicMicros):
		hdr.ByteOrder = binary.LittleEndian
	case reverse(magicNanos):
		hdr.ByteOrder, hdr.Nanosecond = binary.LittleEndian, true
	default:
		return Header{}, fmt.Errorf("unknown magic number %x: %w", magic, core.ErrMalformedCapture)
	}

	order := hdr.ByteOrder
	hdr.VersionMajor = order.Uint16(b[4:6])
	hdr.VersionMinor = order.Uint16(b[6:8])
	// thiszone (8:12) and sigfigs (12:16) are always zero in practice
	hdr.SnapLen = order.Uint32(b[16:20])
	hdr.LinkType = layers.LinkType(order.Uint32(b[20:24]))
	return hdr, nil
}

func reverse(m [4]byte) [4]byte {
	return [4]byte{m[3], m[2], m[1], m[0]}
}

// Header returns the decoded global header.
func (r *Reader) Header() Header { return r.header }

// LinkType returns the link-layer type declared by the capture.
func (r *Reader) LinkType() layers.LinkType { return r.header.LinkType }

// Truncated reports whether reading stopped on an incomplete trailing record.
func (r *Reader) Truncated() bool { return r.truncated }

// Err returns core.ErrTruncatedFrame (wrapped) when reading stopped on an
// incomplete record, nil otherwise. It is diagnostic only: truncation is a
// normal end of input.
func (r *Reader) Err() error {
	if !r.truncated {
		return nil
	}
	return fmt.Errorf("trailing record incomplete: %w", core.ErrTruncatedFrame)
}

// Next returns the next frame, or io.EOF once the buffer is exhausted.
// A trailing record that is shorter than its header or declared length ends
// the sequence the same way; Truncated reports that case.
func (r *Reader) Next() (core.RawFrame, error) {
	remaining := len(r.data) - r.offset
	if remaining == 0 {
		return core.RawFrame{}, io.EOF
	}
	if remaining < recordHeaderLen {
		return r.stop()
	}

	order := r.header.ByteOrder
	rec := r.data[r.offset : r.offset+recordHeaderLen]
	sec := order.Uint32(rec[0:4])
	frac := order.Uint32(rec[4:8])
	inclLen := order.Uint32(rec[8:12])
	origLen := order.Uint32(rec[12:16])

	start := r.offset + recordHeaderLen
	if uint64(inclLen) > uint64(len(r.data)-start) {
		return r.stop()
	}
	end := start + int(inclLen)

	if r.header.Nanosecond {
		frac /= 1000
	}

	r.offset = end
	return core.RawFrame{
		Timestamp:  int64(sec)*1_000_000 + int64(frac),
		Data:       r.data[start:end:end],
		CaptureLen: inclLen,
		OrigLen:    origLen,
	}, nil
}

func (r *Reader) stop() (core.RawFrame, error) {
	r.truncated = true
	r.offset = len(r.data)
	return core.RawFrame{}, io.EOF
}

// ReadAll drains r and returns every remaining frame.
func ReadAll(r *Reader) ([]core.RawFrame, error) {
	var frames []core.RawFrame
	for {
		frame, err := r.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}
