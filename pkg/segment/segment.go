// Package segment implements the wire codec for saferudp data segments.
//
// A segment is the single wire unit of the protocol: a 12-byte little-endian
// header (seq, ack, ack_flag, fin_flag, length) followed by up to MaxData
// bytes of payload. There is no type hierarchy, just one struct with two
// boolean flags.
package segment

import (
	"encoding/binary"
	"errors"
)

const (
	// HeaderLength is the fixed wire size of a segment header.
	HeaderLength = 12

	// MaxPacket is the maximum size of a serialized segment, header included.
	MaxPacket = 1024

	// MaxData is the maximum payload a single segment can carry.
	MaxData = MaxPacket - HeaderLength
)

// ErrMalformed is returned by Decode when the input buffer is too short to
// hold a valid header, or too short to hold the payload its header claims.
var ErrMalformed = errors.New("saferudp/segment: malformed segment")

// Segment is the protocol's single wire unit.
type Segment struct {
	Seq     uint32
	Ack     uint32
	AckFlag bool
	FinFlag bool
	Data    []byte
}

// Encode serializes s into a buffer of exactly MaxPacket bytes. Bytes past
// the header and payload are left zeroed; their content is unspecified by
// the wire format but they are still transmitted.
func Encode(s Segment) []byte {
	buf := make([]byte, MaxPacket)
	EncodeInto(s, buf)
	return buf
}

// EncodeInto serializes s into buf, which must be at least MaxPacket bytes.
// It is the reuse-friendly counterpart to Encode: callers that loop over
// many segments can keep one buffer and avoid a per-send allocation.
func EncodeInto(s Segment, buf []byte) {
	if len(buf) < MaxPacket {
		panic("saferudp/segment: EncodeInto buffer shorter than MaxPacket")
	}
	for i := range buf {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], s.Seq)
	binary.LittleEndian.PutUint32(buf[4:8], s.Ack)
	if s.AckFlag {
		buf[8] = 1
	}
	if s.FinFlag {
		buf[9] = 1
	}
	length := len(s.Data)
	binary.LittleEndian.PutUint16(buf[10:12], uint16(length))
	copy(buf[HeaderLength:HeaderLength+length], s.Data)
}

// Decode parses a segment from buf[:n]. The returned Segment's Data is a
// freshly allocated copy, safe to retain after the caller's receive buffer
// is reused; it is nil when the payload is empty.
func Decode(buf []byte, n int) (Segment, error) {
	if n < HeaderLength {
		return Segment{}, ErrMalformed
	}
	buf = buf[:n]
	length := binary.LittleEndian.Uint16(buf[10:12])
	if n < HeaderLength+int(length) {
		return Segment{}, ErrMalformed
	}
	var data []byte
	if length > 0 {
		data = make([]byte, length)
		copy(data, buf[HeaderLength:HeaderLength+int(length)])
	}
	return Segment{
		Seq:     binary.LittleEndian.Uint32(buf[0:4]),
		Ack:     binary.LittleEndian.Uint32(buf[4:8]),
		AckFlag: buf[8] != 0,
		FinFlag: buf[9] != 0,
		Data:    data,
	}, nil
}

// NotFoundMarker is the raw ASCII payload the sender replies with, in place
// of a header-framed segment, when the requested file does not exist.
const NotFoundMarker = "FILE NOT FOUND"
