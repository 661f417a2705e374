package tuyble

import "io"

// Security flags select which derived key protects a message.
const (
	securityFlagBootstrap byte = 0x04 // localKeyMd5
	securityFlagSession   byte = 0x05 // sessionKey
)

// Message is the decrypted representation of one request/response
// exchange's plaintext header.
type Message struct {
	SequenceNumber           uint32
	ResponseToSequenceNumber uint32
	FunctionCode             uint16
	Data                     []byte
}

// EncodeMessage builds the on-wire envelope for m: plaintext header, CRC,
// zero-pad to a multiple of 16, then AES-CBC-128 under the key selected by
// securityFlag, prefixed with the flag byte and IV.
//
// securityFlag is 0x04 only when m.FunctionCode == funcDeviceInfo;
// otherwise 0x05.
func EncodeMessage(m Message, localKeyMd5, sessionKey, iv []byte) ([]byte, error) {
	flag := securityFlagSession
	key := sessionKey
	if m.FunctionCode == funcDeviceInfo {
		flag = securityFlagBootstrap
		key = localKeyMd5
	}

	plain := &ByteBuffer{}
	plain.AppendBigEndianUint32(m.SequenceNumber)
	plain.AppendBigEndianUint32(m.ResponseToSequenceNumber)
	plain.AppendBigEndianUint16(m.FunctionCode)
	plain.AppendBigEndianUint16(uint16(len(m.Data)))
	plain.AppendBytes(m.Data)

	crc := CRC16(plain.Bytes())
	plain.AppendBigEndianUint16(crc)

	padded := padTo16(plain.Bytes())

	ciphertext, err := AESCBC128Encrypt(key, iv, padded)
	if err != nil {
		return nil, newError(KindMalformedMessage, "encrypting message envelope", err)
	}

	out := &ByteBuffer{}
	out.AppendUint8(flag)
	out.AppendBytes(iv)
	out.AppendBytes(ciphertext)
	return out.Bytes(), nil
}

// DecodeMessage parses and authenticates an on-wire envelope, selecting
// localKeyMd5 or sessionKey according to the envelope's declared security
// flag. It fails with a *Error wrapping ErrMalformedMessage on CRC
// mismatch, an unknown security flag, impossible dataLength, or a
// ciphertext whose length isn't a multiple of the AES block size.
func DecodeMessage(envelope []byte, localKeyMd5, sessionKey []byte) (Message, error) {
	buf := NewByteBuffer(envelope)
	if buf.Len() < 1+16 {
		return Message{}, newError(KindMalformedMessage, "envelope shorter than flag+iv", nil)
	}
	flag := buf.ReadUint8()
	iv := buf.ReadBytes(16)

	var key []byte
	switch flag {
	case securityFlagBootstrap:
		key = localKeyMd5
	case securityFlagSession:
		key = sessionKey
	default:
		return Message{}, newError(KindMalformedMessage, "unknown security flag", nil)
	}

	ciphertext := buf.ReadRemaining()
	plain, err := AESCBC128Decrypt(key, iv, ciphertext)
	if err != nil {
		return Message{}, newError(KindMalformedMessage, "decrypting message envelope", err)
	}

	p := NewByteBuffer(plain)
	if p.Len() < 12 {
		return Message{}, newError(KindMalformedMessage, "decrypted plaintext shorter than header", nil)
	}
	seq := p.ReadBigEndianUint32()
	respTo := p.ReadBigEndianUint32()
	functionCode := p.ReadBigEndianUint16()
	dataLen := int(p.ReadBigEndianUint16())

	if dataLen < 0 || 12+dataLen+2 > len(plain) {
		return Message{}, newError(KindMalformedMessage, "declared dataLength exceeds frame", io.ErrUnexpectedEOF)
	}
	data := p.ReadBytes(dataLen)
	gotCRC := p.ReadBigEndianUint16()

	wantCRC := CRC16(plain[:12+dataLen])
	if gotCRC != wantCRC {
		return Message{}, newError(KindMalformedMessage, "crc mismatch", nil)
	}

	return Message{
		SequenceNumber:           seq,
		ResponseToSequenceNumber: respTo,
		FunctionCode:             functionCode,
		Data:                     data,
	}, nil
}

// padTo16 appends zero bytes until len(b) is a multiple of 16.
func padTo16(b []byte) []byte {
	rem := len(b) % 16
	if rem == 0 {
		return b
	}
	out := make([]byte, len(b)+(16-rem))
	copy(out, b)
	return out
}
