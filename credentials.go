package tuyble

// Credentials are the vendor-cloud-supplied values needed to pair with
// and authenticate a bound device. LocalKey is used only through its
// first six ASCII bytes (see firstSixBytes in session.go).
type Credentials struct {
	UUID     string
	DeviceID string
	LocalKey string
}

// AdvertisedDeviceInfo is what can be recovered from a single BLE
// advertisement, before pairing. It is derived, not authoritative: once
// paired, the authoritative UUID lives in Credentials.
type AdvertisedDeviceInfo struct {
	Address               string
	IsBound               bool
	ProtocolVersion       uint8
	EncryptionMethod      uint8
	CommunicationCapacity uint16
	UUID                  string
}
