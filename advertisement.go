package tuyble

// Tuya's BLE advertisement shape. Unlike a generic run of (length, type,
// data) EIR records, these fields are fixed-offset within Tuya's own
// manufacturer data blob: reject if too short, then slice out named
// fields.

const (
	tuyaCompanyIDLow  = 0xD0
	tuyaCompanyIDHigh = 0x07

	tuyaServiceDataUUID = 0xA201

	minManufacturerDataLen = 24
)

// ServiceData pairs a 16-bit service UUID with its advertised data.
type ServiceData struct {
	UUID uint16
	Data []byte
}

func lookupServiceData(sd []ServiceData, uuid uint16) ([]byte, bool) {
	for _, s := range sd {
		if s.UUID == uuid {
			return s.Data, true
		}
	}
	return nil, false
}

// ParseAdvertisement recovers an AdvertisedDeviceInfo from a BLE
// advertisement's manufacturer data and service data. It returns an error
// wrapping ErrMalformedAdvertisement if the advertisement does not match
// the expected Tuya shape.
func ParseAdvertisement(address string, manufacturerData []byte, serviceData []ServiceData) (*AdvertisedDeviceInfo, error) {
	if len(manufacturerData) < minManufacturerDataLen {
		return nil, newError(KindMalformedAdvertisement, "manufacturer data too short", nil)
	}
	if manufacturerData[0] != tuyaCompanyIDLow || manufacturerData[1] != tuyaCompanyIDHigh {
		return nil, newError(KindMalformedAdvertisement, "unexpected company id", nil)
	}

	info := &AdvertisedDeviceInfo{
		Address:               address,
		IsBound:               manufacturerData[2]&0x80 != 0,
		ProtocolVersion:       manufacturerData[3],
		EncryptionMethod:      manufacturerData[4],
		CommunicationCapacity: uint16(AsBigEndianUnsignedInt(manufacturerData[5:7])),
	}

	encryptedUUID := manufacturerData[8:24]

	svcData, ok := lookupServiceData(serviceData, tuyaServiceDataUUID)
	if !ok || len(svcData) == 0 {
		return nil, newError(KindMalformedAdvertisement, "missing service data for 0xA201", nil)
	}

	digest := MD5(svcData[1:])
	uuidBytes, err := AESCBC128Decrypt(digest, digest, encryptedUUID)
	if err != nil {
		return nil, newError(KindMalformedAdvertisement, "decrypting advertised uuid", err)
	}
	info.UUID = string(uuidBytes)

	return info, nil
}
