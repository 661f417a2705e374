package tuyble

import (
	"testing"
)

// buildManufacturerData assembles a 24-byte Tuya manufacturer-data blob
// carrying encryptedUUID at its fixed offset.
func buildManufacturerData(bound bool, protocolVersion, encryptionMethod uint8, commCapacity uint16, encryptedUUID []byte) []byte {
	buf := &ByteBuffer{}
	buf.AppendUint8(tuyaCompanyIDLow)
	buf.AppendUint8(tuyaCompanyIDHigh)
	flags := uint8(0)
	if bound {
		flags |= 0x80
	}
	buf.AppendUint8(flags)
	buf.AppendUint8(protocolVersion)
	buf.AppendUint8(encryptionMethod)
	buf.AppendBigEndianUint16(commCapacity)
	buf.AppendUint8(0) // byte 7, unused by this spec
	buf.AppendBytes(encryptedUUID)
	return buf.Bytes()
}

func TestParseAdvertisementRoundTrip(t *testing.T) {
	serviceDataPayload := []byte{0x00, 'a', 'b', 'c', 'd', 'e', 'f'}
	digest := MD5(serviceDataPayload[1:])

	plainUUID := padTo16([]byte("UUID:1234567890A"))[:16]
	encryptedUUID, err := AESCBC128Encrypt(digest, digest, plainUUID)
	if err != nil {
		t.Fatalf("AESCBC128Encrypt: %v", err)
	}

	manufacturerData := buildManufacturerData(true, 3, 0, 0x0102, encryptedUUID)
	serviceData := []ServiceData{{UUID: tuyaServiceDataUUID, Data: serviceDataPayload}}

	info, err := ParseAdvertisement("AA:BB:CC:DD:EE:FF", manufacturerData, serviceData)
	if err != nil {
		t.Fatalf("ParseAdvertisement: %v", err)
	}

	if !info.IsBound {
		t.Error("IsBound = false, want true")
	}
	if info.ProtocolVersion != 3 {
		t.Errorf("ProtocolVersion = %d, want 3", info.ProtocolVersion)
	}
	if info.CommunicationCapacity != 0x0102 {
		t.Errorf("CommunicationCapacity = 0x%04X, want 0x0102", info.CommunicationCapacity)
	}
	if info.UUID != "UUID:1234567890A" {
		t.Errorf("UUID = %q, want %q", info.UUID, "UUID:1234567890A")
	}
	if info.Address != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("Address = %q, want %q", info.Address, "AA:BB:CC:DD:EE:FF")
	}
}

func TestParseAdvertisementRejectsShortManufacturerData(t *testing.T) {
	_, err := ParseAdvertisement("addr", []byte{0xD0, 0x07}, nil)
	if err == nil {
		t.Fatal("expected an error for short manufacturer data")
	}
}

func TestParseAdvertisementRejectsWrongCompanyID(t *testing.T) {
	data := make([]byte, minManufacturerDataLen)
	data[0], data[1] = 0x00, 0x00
	_, err := ParseAdvertisement("addr", data, nil)
	if err == nil {
		t.Fatal("expected an error for an unexpected company id")
	}
}

func TestParseAdvertisementRejectsMissingServiceData(t *testing.T) {
	data := make([]byte, minManufacturerDataLen)
	data[0], data[1] = tuyaCompanyIDLow, tuyaCompanyIDHigh
	_, err := ParseAdvertisement("addr", data, nil)
	if err == nil {
		t.Fatal("expected an error when 0xA201 service data is missing")
	}
}

func TestLookupServiceData(t *testing.T) {
	sd := []ServiceData{{UUID: 0x1234, Data: []byte{1, 2}}, {UUID: tuyaServiceDataUUID, Data: []byte{3, 4}}}
	data, ok := lookupServiceData(sd, tuyaServiceDataUUID)
	if !ok {
		t.Fatal("lookupServiceData: not found")
	}
	if len(data) != 2 || data[0] != 3 {
		t.Errorf("data = %v, want [3 4]", data)
	}

	if _, ok := lookupServiceData(sd, 0x9999); ok {
		t.Error("lookupServiceData found an entry that shouldn't exist")
	}
}
