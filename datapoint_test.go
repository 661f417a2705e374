package tuyble

import (
	"reflect"
	"testing"
)

func TestDataPointEncodeDecodeRoundTripV3(t *testing.T) {
	dps := []DataPoint{
		NewRawDataPoint(1, []byte{0xAA, 0xBB}),
		NewBooleanDataPoint(2, true),
		NewBooleanDataPoint(3, false),
		NewValueDataPoint(4, -12345),
		NewStringDataPoint(5, "hello"),
		NewEnumDataPoint(6, 3),
		NewBitmapDataPoint(7, []byte{0x0F}),
	}

	encoded := EncodeDpBatch(dps, 3)
	decoded := DecodeDpBatch(encoded)

	if len(decoded) != len(dps) {
		t.Fatalf("decoded %d data points, want %d", len(decoded), len(dps))
	}
	for i, want := range dps {
		got := decoded[i]
		if got.ID != want.ID || got.Type != want.Type {
			t.Errorf("dp[%d]: got id=%d type=%v, want id=%d type=%v", i, got.ID, got.Type, want.ID, want.Type)
		}
		if !reflect.DeepEqual(got.payloadBytes(), want.payloadBytes()) {
			t.Errorf("dp[%d]: payload mismatch: got %v want %v", i, got.payloadBytes(), want.payloadBytes())
		}
	}
}

func TestDataPointV4EncodesTwoByteLength(t *testing.T) {
	dp := NewRawDataPoint(9, []byte{1, 2, 3})
	encoded := EncodeDpBatch([]DataPoint{dp}, 4)

	// id(1) + type(1) + 2-byte length + 3 bytes of payload.
	if len(encoded) != 7 {
		t.Fatalf("len(encoded) = %d, want 7", len(encoded))
	}
	if encoded[2] != 0 || encoded[3] != 3 {
		t.Errorf("length field = [%d %d], want [0 3]", encoded[2], encoded[3])
	}
}

func TestDataPointDecodeAlwaysUsesOneByteLength(t *testing.T) {
	// Hand-build a v4-shaped payload with a 2-byte length field and
	// confirm DecodeDpBatch (which always reads 1 length byte) does not
	// reassemble it the way EncodeDpBatch at v4 would have produced it --
	// this is the documented encode/decode asymmetry.
	buf := &ByteBuffer{}
	buf.AppendUint8(9)
	buf.AppendUint8(uint8(DPTypeRaw))
	buf.AppendBigEndianUint16(3) // 2-byte length field, as EncodeDpBatch(v4) would write
	buf.AppendBytes([]byte{1, 2, 3})

	decoded := DecodeDpBatch(buf.Bytes())
	if len(decoded) == 0 {
		t.Fatalf("decoded no data points")
	}
	// The single length byte read is 0x00 (the length field's high byte),
	// so the first entry's payload decodes empty rather than {1,2,3}; the
	// remaining bytes are then misread as a second, bogus entry.
	if len(decoded[0].Raw()) != 0 {
		t.Errorf("Raw() = %v, want empty (asymmetry swallows the high length byte)", decoded[0].Raw())
	}
}

func TestDataPointBooleanWireEncoding(t *testing.T) {
	trueDP := NewBooleanDataPoint(1, true)
	if got := trueDP.payloadBytes(); len(got) != 1 || got[0] != 1 {
		t.Errorf("true payload = %v, want [1]", got)
	}
	falseDP := NewBooleanDataPoint(1, false)
	if got := falseDP.payloadBytes(); len(got) != 1 || got[0] != 0 {
		t.Errorf("false payload = %v, want [0]", got)
	}
}

func TestDataPointAccessorsReturnZeroValueForWrongType(t *testing.T) {
	dp := NewEnumDataPoint(1, 2)
	if dp.Boolean() != false {
		t.Errorf("Boolean() on an ENUM dp = true, want false")
	}
	if dp.Value() != 0 {
		t.Errorf("Value() on an ENUM dp = %d, want 0", dp.Value())
	}
	if dp.Str() != "" {
		t.Errorf("Str() on an ENUM dp = %q, want empty", dp.Str())
	}
	if dp.Raw() != nil {
		t.Errorf("Raw() on an ENUM dp = %v, want nil", dp.Raw())
	}
}

func TestDataPointString(t *testing.T) {
	if got := NewEnumDataPoint(6, 3).String(); got != "dp6=ENUM(3)" {
		t.Errorf("String() = %q, want %q", got, "dp6=ENUM(3)")
	}
}

func TestDecodeDpBatchStopsOnShortRemainder(t *testing.T) {
	// Two trailing bytes can't form a complete entry (needs >= 4).
	decoded := DecodeDpBatch([]byte{1, 2})
	if decoded != nil {
		t.Errorf("decoded = %v, want nil", decoded)
	}
}
