package tuyble

import (
	"bytes"
	"testing"
)

func TestMessageEncodeDecodeRoundTrip(t *testing.T) {
	localKeyMd5 := MD5(firstSixBytes("0123456789abcdef"))
	sessionKey := localKeyMd5 // function 0x0002 is framed under the session key; reuse localKeyMd5 as a stand-in
	iv := make([]byte, 16)

	m := Message{
		SequenceNumber:           1,
		ResponseToSequenceNumber: 0,
		FunctionCode:             0x0002,
		Data:                     []byte{0x01, 0x02, 0x03},
	}

	envelope, err := EncodeMessage(m, localKeyMd5, sessionKey, iv)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	if envelope[0] != securityFlagSession {
		t.Errorf("security flag = 0x%02X, want 0x%02X", envelope[0], securityFlagSession)
	}

	decoded, err := DecodeMessage(envelope, localKeyMd5, sessionKey)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if decoded.SequenceNumber != m.SequenceNumber ||
		decoded.ResponseToSequenceNumber != m.ResponseToSequenceNumber ||
		decoded.FunctionCode != m.FunctionCode ||
		!bytes.Equal(decoded.Data, m.Data) {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, m)
	}
}

func TestMessageEncodeSelectsSessionKeyForNonDeviceInfo(t *testing.T) {
	localKeyMd5 := MD5([]byte("012345"))
	sessionKey := MD5([]byte("sessionkeysessio"))
	iv := make([]byte, 16)

	envelope, err := EncodeMessage(Message{FunctionCode: 0x0002, SequenceNumber: 1}, localKeyMd5, sessionKey, iv)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	if envelope[0] != securityFlagSession {
		t.Errorf("security flag = 0x%02X, want securityFlagSession", envelope[0])
	}

	decoded, err := DecodeMessage(envelope, localKeyMd5, sessionKey)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if decoded.FunctionCode != 0x0002 {
		t.Errorf("FunctionCode = 0x%04X, want 0x0002", decoded.FunctionCode)
	}
}

func TestMessageEncodeSelectsBootstrapKeyForDeviceInfo(t *testing.T) {
	localKeyMd5 := MD5([]byte("012345"))
	iv := make([]byte, 16)

	envelope, err := EncodeMessage(Message{FunctionCode: funcDeviceInfo, SequenceNumber: 1}, localKeyMd5, MD5([]byte("unused-session-k")), iv)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	if envelope[0] != securityFlagBootstrap {
		t.Errorf("security flag = 0x%02X, want securityFlagBootstrap", envelope[0])
	}
}

func TestDecodeMessageRejectsCorruptedCRC(t *testing.T) {
	localKeyMd5 := MD5([]byte("012345"))
	iv := make([]byte, 16)

	envelope, err := EncodeMessage(Message{FunctionCode: funcDeviceInfo, SequenceNumber: 1, Data: []byte{1, 2, 3}}, localKeyMd5, nil, iv)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}

	// Corrupt a ciphertext byte so decryption yields a mismatched CRC.
	envelope[len(envelope)-1] ^= 0xFF

	if _, err := DecodeMessage(envelope, localKeyMd5, nil); err == nil {
		t.Fatal("expected an error decoding a corrupted envelope")
	}
}

func TestDecodeMessageRejectsUnknownSecurityFlag(t *testing.T) {
	envelope := make([]byte, 1+16+16)
	envelope[0] = 0x09 // neither bootstrap nor session
	if _, err := DecodeMessage(envelope, MD5(nil), MD5(nil)); err == nil {
		t.Fatal("expected an error for an unknown security flag")
	}
}

func TestDecodeMessageRejectsShortEnvelope(t *testing.T) {
	if _, err := DecodeMessage([]byte{securityFlagBootstrap}, MD5(nil), nil); err == nil {
		t.Fatal("expected an error for an envelope shorter than flag+iv")
	}
}

func TestPadTo16(t *testing.T) {
	cases := []struct {
		in      []byte
		wantLen int
	}{
		{make([]byte, 0), 0},
		{make([]byte, 16), 16},
		{make([]byte, 17), 32},
		{make([]byte, 5), 16},
	}
	for _, c := range cases {
		got := padTo16(c.in)
		if len(got) != c.wantLen {
			t.Errorf("padTo16(len=%d): got len %d, want %d", len(c.in), len(got), c.wantLen)
		}
	}
}
