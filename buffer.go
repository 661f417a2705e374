package tuyble

import "encoding/hex"

// ByteBuffer is an owned, growable byte sequence with offset-advancing
// readers. Reads past the end never panic: they return the type's zero
// value (or a short/empty slice) and leave it to the caller to have
// validated available length beforehand, mirroring Buffer.h's contract.
type ByteBuffer struct {
	b   []byte
	off int
}

// NewByteBuffer wraps an existing slice for reading from offset 0.
// The slice is not copied.
func NewByteBuffer(b []byte) *ByteBuffer {
	return &ByteBuffer{b: b}
}

// Bytes returns the full underlying contents written so far.
func (buf *ByteBuffer) Bytes() []byte { return buf.b }

// Len returns the number of bytes remaining to be read.
func (buf *ByteBuffer) Len() int {
	if buf.off >= len(buf.b) {
		return 0
	}
	return len(buf.b) - buf.off
}

// Slice returns an independent owning copy of the next n bytes without
// advancing the read offset. If fewer than n bytes remain, it returns as
// many as are available.
func (buf *ByteBuffer) Slice(n int) []byte {
	avail := buf.Len()
	if n > avail {
		n = avail
	}
	if n <= 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, buf.b[buf.off:buf.off+n])
	return out
}

// Advance moves the read offset forward by n bytes, clamped to the end.
func (buf *ByteBuffer) Advance(n int) {
	buf.off += n
	if buf.off > len(buf.b) {
		buf.off = len(buf.b)
	}
}

// ReadBytes reads and consumes the next n bytes.
func (buf *ByteBuffer) ReadBytes(n int) []byte {
	out := buf.Slice(n)
	buf.Advance(n)
	return out
}

// ReadRemaining consumes and returns every byte left in the buffer.
func (buf *ByteBuffer) ReadRemaining() []byte {
	return buf.ReadBytes(buf.Len())
}

// AppendUint8 appends a single byte.
func (buf *ByteBuffer) AppendUint8(v uint8) { buf.b = append(buf.b, v) }

// ReadUint8 reads one byte, or returns 0 if none remain.
func (buf *ByteBuffer) ReadUint8() uint8 {
	if buf.Len() < 1 {
		return 0
	}
	v := buf.b[buf.off]
	buf.off++
	return v
}

// AppendBigEndianUint16 appends v as two big-endian bytes.
func (buf *ByteBuffer) AppendBigEndianUint16(v uint16) {
	buf.b = append(buf.b, byte(v>>8), byte(v))
}

// ReadBigEndianUint16 reads two big-endian bytes as a u16, or 0 if short.
func (buf *ByteBuffer) ReadBigEndianUint16() uint16 {
	b := buf.ReadBytes(2)
	if len(b) < 2 {
		return 0
	}
	return uint16(b[0])<<8 | uint16(b[1])
}

// AppendLittleEndianUint16 appends v as two little-endian bytes.
func (buf *ByteBuffer) AppendLittleEndianUint16(v uint16) {
	buf.b = append(buf.b, byte(v), byte(v>>8))
}

// ReadLittleEndianUint16 reads two little-endian bytes as a u16, or 0 if short.
func (buf *ByteBuffer) ReadLittleEndianUint16() uint16 {
	b := buf.ReadBytes(2)
	if len(b) < 2 {
		return 0
	}
	return uint16(b[0]) | uint16(b[1])<<8
}

// AppendBigEndianUint32 appends v as four big-endian bytes.
func (buf *ByteBuffer) AppendBigEndianUint32(v uint32) {
	buf.b = append(buf.b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// ReadBigEndianUint32 reads four big-endian bytes as a u32, or 0 if short.
//
// The original firmware source declares the equivalent reader as
// returning a u16; that is a bug in the source (see spec Open Questions).
// This reads and returns the full u32.
func (buf *ByteBuffer) ReadBigEndianUint32() uint32 {
	b := buf.ReadBytes(4)
	if len(b) < 4 {
		return 0
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// ReadBigEndianInt32 reads four big-endian bytes as a signed i32.
func (buf *ByteBuffer) ReadBigEndianInt32() int32 {
	return int32(buf.ReadBigEndianUint32())
}

// AppendBigEndianInt32 appends v as four big-endian bytes.
func (buf *ByteBuffer) AppendBigEndianInt32(v int32) {
	buf.AppendBigEndianUint32(uint32(v))
}

// ReadBigEndianInt16 reads two big-endian bytes as a signed i16.
func (buf *ByteBuffer) ReadBigEndianInt16() int16 {
	return int16(buf.ReadBigEndianUint16())
}

// AppendBigEndianInt16 appends v as two big-endian bytes.
func (buf *ByteBuffer) AppendBigEndianInt16(v int16) {
	buf.AppendBigEndianUint16(uint16(v))
}

// AppendBytes appends b verbatim.
func (buf *ByteBuffer) AppendBytes(b []byte) { buf.b = append(buf.b, b...) }

// AppendBigEndianWithNumberOfBytes appends the low n bytes of value,
// big-endian, where n is 1, 2, or 4. It is used by the data-point codec
// for its version-dependent length field.
func AppendBigEndianWithNumberOfBytes(buf *ByteBuffer, value uint32, n int) {
	switch n {
	case 1:
		buf.AppendUint8(uint8(value))
	case 2:
		buf.AppendBigEndianUint16(uint16(value))
	case 4:
		buf.AppendBigEndianUint32(value)
	}
}

// AsBigEndianUnsignedInt interprets a buffer of length 0..4 as a
// big-endian unsigned integer. A zero-length input yields 0; an input
// shorter than 4 bytes is treated as zero-padded on the high end.
func AsBigEndianUnsignedInt(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

// AsBigEndianSignedInt is AsBigEndianUnsignedInt reinterpreted as signed.
func AsBigEndianSignedInt(b []byte) int32 {
	return int32(AsBigEndianUnsignedInt(b))
}

// HexString renders b as lowercase hex, with no separator.
func HexString(b []byte) string {
	return hex.EncodeToString(b)
}
