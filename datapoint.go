package tuyble

import "fmt"

// DPType is the wire-stable type tag of a DataPoint's payload.
type DPType uint8

// Wire values for DPType are stable; do not renumber.
const (
	DPTypeRaw DPType = iota
	DPTypeBoolean
	DPTypeValue
	DPTypeString
	DPTypeEnum
	DPTypeBitmap
)

func (t DPType) String() string {
	switch t {
	case DPTypeRaw:
		return "RAW"
	case DPTypeBoolean:
		return "BOOLEAN"
	case DPTypeValue:
		return "VALUE"
	case DPTypeString:
		return "STRING"
	case DPTypeEnum:
		return "ENUM"
	case DPTypeBitmap:
		return "BITMAP"
	default:
		return fmt.Sprintf("DPType(%d)", uint8(t))
	}
}

// DataPoint is a tagged union of a device's application-level state: a
// 1-byte id and a single populated payload slot matching Type. Each
// NewXDataPoint constructor fills only that slot; the slots are unexported
// and there are no setters, so only one is ever meaningful.
type DataPoint struct {
	ID   uint8
	Type DPType

	raw     []byte
	boolean bool
	value   int32
	str     string
	enum    uint32
	bitmap  []byte
}

// NewRawDataPoint builds a RAW data point carrying opaque bytes.
func NewRawDataPoint(id uint8, raw []byte) DataPoint {
	return DataPoint{ID: id, Type: DPTypeRaw, raw: cloneBytes(raw)}
}

// NewBooleanDataPoint builds a BOOLEAN data point.
func NewBooleanDataPoint(id uint8, v bool) DataPoint {
	return DataPoint{ID: id, Type: DPTypeBoolean, boolean: v}
}

// NewValueDataPoint builds a VALUE (signed 32-bit) data point.
func NewValueDataPoint(id uint8, v int32) DataPoint {
	return DataPoint{ID: id, Type: DPTypeValue, value: v}
}

// NewStringDataPoint builds a STRING data point from UTF-8 text.
func NewStringDataPoint(id uint8, v string) DataPoint {
	return DataPoint{ID: id, Type: DPTypeString, str: v}
}

// NewEnumDataPoint builds an ENUM (unsigned 32-bit) data point.
func NewEnumDataPoint(id uint8, v uint32) DataPoint {
	return DataPoint{ID: id, Type: DPTypeEnum, enum: v}
}

// NewBitmapDataPoint builds a BITMAP data point carrying opaque bytes.
func NewBitmapDataPoint(id uint8, v []byte) DataPoint {
	return DataPoint{ID: id, Type: DPTypeBitmap, bitmap: cloneBytes(v)}
}

// Raw returns the RAW payload, or nil if Type != DPTypeRaw.
func (d DataPoint) Raw() []byte {
	if d.Type != DPTypeRaw {
		return nil
	}
	return d.raw
}

// Boolean returns the BOOLEAN payload, or false if Type != DPTypeBoolean.
func (d DataPoint) Boolean() bool {
	return d.Type == DPTypeBoolean && d.boolean
}

// Value returns the VALUE payload, or 0 if Type != DPTypeValue.
func (d DataPoint) Value() int32 {
	if d.Type != DPTypeValue {
		return 0
	}
	return d.value
}

// Str returns the STRING payload, or "" if Type != DPTypeString.
func (d DataPoint) Str() string {
	if d.Type != DPTypeString {
		return ""
	}
	return d.str
}

// Enum returns the ENUM payload, or 0 if Type != DPTypeEnum.
func (d DataPoint) Enum() uint32 {
	if d.Type != DPTypeEnum {
		return 0
	}
	return d.enum
}

// Bitmap returns the BITMAP payload, or nil if Type != DPTypeBitmap.
func (d DataPoint) Bitmap() []byte {
	if d.Type != DPTypeBitmap {
		return nil
	}
	return d.bitmap
}

// payloadBytes renders this data point's payload as it appears on the
// wire (without id, type tag, or length field).
func (d DataPoint) payloadBytes() []byte {
	switch d.Type {
	case DPTypeRaw:
		return d.raw
	case DPTypeBoolean:
		// 1 for true, 0 for false -- consistent with how decode reads it
		// back below.
		if d.boolean {
			return []byte{1}
		}
		return []byte{0}
	case DPTypeValue:
		buf := &ByteBuffer{}
		buf.AppendBigEndianInt32(d.value)
		return buf.Bytes()
	case DPTypeString:
		return []byte(d.str)
	case DPTypeEnum:
		buf := &ByteBuffer{}
		buf.AppendBigEndianUint32(d.enum)
		return buf.Bytes()
	case DPTypeBitmap:
		return d.bitmap
	default:
		return nil
	}
}

// dataPointFromPayload reconstructs the typed value from raw wire bytes,
// applying the inverse of payloadBytes.
func dataPointFromPayload(id uint8, typ DPType, payload []byte) DataPoint {
	switch typ {
	case DPTypeBoolean:
		v := len(payload) > 0 && payload[0] != 0
		return NewBooleanDataPoint(id, v)
	case DPTypeValue:
		return NewValueDataPoint(id, AsBigEndianSignedInt(payload))
	case DPTypeString:
		return NewStringDataPoint(id, string(payload))
	case DPTypeEnum:
		return NewEnumDataPoint(id, AsBigEndianUnsignedInt(payload))
	case DPTypeBitmap:
		return NewBitmapDataPoint(id, payload)
	default:
		return NewRawDataPoint(id, payload)
	}
}

// lengthFieldSize returns the number of bytes the length field occupies
// when *encoding* a data point for protocolVersion: 1 byte below v4, 2
// bytes (big-endian) at v4 and above. Decoding always uses a single byte
// regardless of version -- see DecodeDpBatch.
func lengthFieldSize(protocolVersion int) int {
	if protocolVersion >= 4 {
		return 2
	}
	return 1
}

// EncodeDpBatch serializes dps into the senderDps wire payload for the
// given protocol version.
func EncodeDpBatch(dps []DataPoint, protocolVersion int) []byte {
	buf := &ByteBuffer{}
	lenSize := lengthFieldSize(protocolVersion)
	for _, dp := range dps {
		payload := dp.payloadBytes()
		buf.AppendUint8(dp.ID)
		buf.AppendUint8(uint8(dp.Type))
		AppendBigEndianWithNumberOfBytes(buf, uint32(len(payload)), lenSize)
		buf.AppendBytes(payload)
	}
	return buf.Bytes()
}

// DecodeDpBatch parses a receiveDp payload into its constituent data
// points. The inbound length field is always a single byte, regardless of
// the negotiated protocol version -- a wire asymmetry with EncodeDpBatch
// that is intentional, not a bug (devices only ever send the 1-byte
// form). Parsing stops once fewer than 4 bytes remain, so a trailing
// 3-byte entry (id + type + 1-byte length with an empty payload) is not
// decoded.
func DecodeDpBatch(b []byte) []DataPoint {
	buf := NewByteBuffer(b)
	var out []DataPoint
	for buf.Len() >= 4 {
		id := buf.ReadUint8()
		typ := DPType(buf.ReadUint8())
		n := int(buf.ReadUint8())
		payload := buf.ReadBytes(n)
		out = append(out, dataPointFromPayload(id, typ, payload))
	}
	return out
}

// String renders a DataPoint for logging, e.g. "dp6=ENUM(3)".
func (d DataPoint) String() string {
	switch d.Type {
	case DPTypeBoolean:
		return fmt.Sprintf("dp%d=BOOLEAN(%v)", d.ID, d.boolean)
	case DPTypeValue:
		return fmt.Sprintf("dp%d=VALUE(%d)", d.ID, d.value)
	case DPTypeString:
		return fmt.Sprintf("dp%d=STRING(%q)", d.ID, d.str)
	case DPTypeEnum:
		return fmt.Sprintf("dp%d=ENUM(%d)", d.ID, d.enum)
	case DPTypeBitmap:
		return fmt.Sprintf("dp%d=BITMAP(% X)", d.ID, d.bitmap)
	default:
		return fmt.Sprintf("dp%d=RAW(% X)", d.ID, d.raw)
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
