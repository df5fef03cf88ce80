// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package dot11

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"sync"
)

// headerSize is the fixed portion of a frame: 2 bytes control word, 2 bytes
// destination, 2 bytes source, 4 bytes trailing CRC-32.
const headerSize = 10

// MaxPayload is the largest payload this codec will place in a frame; a
// 2048-byte frame minus the 10-byte header.
const MaxPayload = 2048 - headerSize

// ErrShortFrame is the only structural decode error: anything shorter than
// the fixed header cannot be parsed at all. A malformed but long-enough
// frame still decodes, just with CRCOk set to false.
var ErrShortFrame = errors.New("dot11mac: frame shorter than header")

// Frame is the parsed form of a wire frame.
type Frame struct {
	Type    FrameType
	Retry   bool
	Seq     uint16
	Dst     MAC
	Src     MAC
	Payload []byte
	// CRCOk reports whether the trailing CRC-32 matched the bytes that
	// preceded it. Decode never errors on a CRC mismatch; callers that care
	// (the Receiver) check this field themselves.
	CRCOk bool
}

// encodeBufPool reuses scratch buffers across Encode calls to avoid an
// allocation per marshal.
var encodeBufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 2048)
		return &b
	},
}

// Encode builds the wire bytes for a frame: control word, destination,
// source, payload, and trailing CRC-32. length is clamped to len(payload);
// retry/seq are placed verbatim into the control word.
func Encode(typ FrameType, retry bool, src, dst MAC, payload []byte, length int, seq uint16) []byte {
	if length > len(payload) {
		length = len(payload)
	}
	if length < 0 {
		length = 0
	}
	if length > MaxPayload {
		length = MaxPayload
	}
	payload = payload[:length]

	bufp := encodeBufPool.Get().(*[]byte)
	b := (*bufp)[:0]
	defer func() {
		*bufp = b[:0]
		encodeBufPool.Put(bufp)
	}()

	control := encodeControl(typ, retry, seq)
	b = append(b, byte(control>>8), byte(control))
	b = append(b, byte(dst.wire()>>8), byte(dst.wire()))
	b = append(b, byte(src.wire()>>8), byte(src.wire()))
	b = append(b, payload...)

	sum := crc32.ChecksumIEEE(b)
	b = append(b, byte(sum>>24), byte(sum>>16), byte(sum>>8), byte(sum))

	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Decode parses wire bytes into a Frame. The only structural failure is an
// input shorter than the fixed header; anything else always decodes,
// recording the CRC verdict in Frame.CRCOk rather than failing.
func Decode(b []byte) (Frame, error) {
	if len(b) < headerSize {
		return Frame{}, ErrShortFrame
	}

	control := binary.BigEndian.Uint16(b[0:2])
	typ, retry, seq := decodeControl(control)
	dst := macFromWire(binary.BigEndian.Uint16(b[2:4]))
	src := macFromWire(binary.BigEndian.Uint16(b[4:6]))

	payloadEnd := len(b) - 4
	var payload []byte
	if payloadEnd > 6 {
		payload = append([]byte(nil), b[6:payloadEnd]...)
	}

	wantSum := binary.BigEndian.Uint32(b[payloadEnd:])
	gotSum := crc32.ChecksumIEEE(b[:payloadEnd])

	return Frame{
		Type:    typ,
		Retry:   retry,
		Seq:     seq,
		Dst:     dst,
		Src:     src,
		Payload: payload,
		CRCOk:   wantSum == gotSum,
	}, nil
}

// TimestampToBytes encodes a millisecond timestamp as 8 big-endian bytes,
// most significant byte first, for use as a BEACON frame's payload.
func TimestampToBytes(ts uint64) [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], ts)
	return b
}

// BytesToTimestamp is the inverse of TimestampToBytes. It does not validate
// length; callers must supply exactly 8 bytes (a decoded BEACON payload).
func BytesToTimestamp(b []byte) uint64 {
	var buf [8]byte
	copy(buf[:], b)
	return binary.BigEndian.Uint64(buf[:])
}
