// Package wire implements byte-order primitives and the length-prefixed
// binary codecs used on the broker's datagram and stream transports.
package wire

import "errors"

// ErrBufferTooSmall is returned by every decoder when fewer bytes remain
// than the field being decoded requires.
var ErrBufferTooSmall = errors.New("wire: buffer too small")

// ErrUnknownKind is returned when a tag byte does not match any known
// payload or request/response variant.
var ErrUnknownKind = errors.New("wire: unknown kind")

// ErrSizeExceedsMaximum is returned when a declared length field exceeds
// the maximum the protocol allows for that field.
var ErrSizeExceedsMaximum = errors.New("wire: size exceeds maximum")

// PutUint8 stores v in b[0]; provided for symmetry with the wider
// PutUintN helpers so call sites do not special-case the 1-byte width.
func PutUint8(b []byte, v uint8) {
	b[0] = v
}

// GetUint8 reads a single byte.
func GetUint8(b []byte) uint8 {
	return b[0]
}

// PutUint16 writes v big-endian into b[0:2].
func PutUint16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

// GetUint16 reads a big-endian uint16 from b[0:2].
func GetUint16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// PutUint32 writes v big-endian into b[0:4].
func PutUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// GetUint32 reads a big-endian uint32 from b[0:4].
func GetUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// PutUint64 writes v big-endian into b[0:8].
func PutUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (56 - 8*i))
	}
}

// GetUint64 reads a big-endian uint64 from b[0:8].
func GetUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
