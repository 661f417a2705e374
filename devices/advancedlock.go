package devices

import (
	"fmt"

	"github.com/tuya-ble/tuyble"
)

// AdvancedLock wraps the data points of Tuya's advanced BLE lock profile,
// which identifies itself and the peer by a central/peripheral id pair
// established out of band (via the vendor cloud).
type AdvancedLock struct {
	Engine       *tuyble.Engine
	CentralID    uint16
	PeripheralID uint16
	// RandomNumber is an 8-character ASCII string the central chose when
	// it registered this lock's centralId/peripheralId pair.
	RandomNumber string
}

const (
	advancedLockDPUnlockStatus uint8 = 47
	advancedLockDPLockUnlock   uint8 = 71
)

// IsLocked reports the last known lock state, defaulting to locked
// (true) until the device has reported its unlock status.
func (l AdvancedLock) IsLocked() bool {
	dp, ok := l.Engine.State().ReportedDataPoints()[advancedLockDPUnlockStatus]
	if !ok {
		return true
	}
	return !dp.Boolean()
}

// lockUnlock builds the 19-byte DP71 command: centralId_be16,
// peripheralId_be16, randomAscii[8], op, timestamp_be32, phoneFlag,
// memberId.
func (l AdvancedLock) lockUnlock(memberID uint8, lock bool, unixTimestamp uint32, completion func(err error)) error {
	random := l.RandomNumber
	if len(random) > 8 {
		random = random[:8]
	}
	for len(random) < 8 {
		random += "0"
	}

	buf := &tuyble.ByteBuffer{}
	buf.AppendBigEndianUint16(l.CentralID)
	buf.AppendBigEndianUint16(l.PeripheralID)
	buf.AppendBytes([]byte(random))
	op := uint8(1)
	if lock {
		op = 0
	}
	buf.AppendUint8(op)
	buf.AppendBigEndianUint32(unixTimestamp)
	buf.AppendUint8(0) // phoneFlag: mobile phone
	buf.AppendUint8(memberID)

	return l.Engine.SendDataPoints([]tuyble.DataPoint{
		tuyble.NewRawDataPoint(advancedLockDPLockUnlock, buf.Bytes()),
	}, completion)
}

// Unlock sends the advanced-lock unlock command for memberID, stamped
// with unixTimestamp (the caller's clock, since the device's is not
// authoritative).
func (l AdvancedLock) Unlock(memberID uint8, unixTimestamp uint32, completion func(err error)) error {
	return l.lockUnlock(memberID, false, unixTimestamp, completion)
}

// Lock sends the advanced-lock lock command for memberID.
func (l AdvancedLock) Lock(memberID uint8, unixTimestamp uint32, completion func(err error)) error {
	return l.lockUnlock(memberID, true, unixTimestamp, completion)
}

func (l AdvancedLock) String() string {
	return fmt.Sprintf("AdvancedLock{central=0x%04X peripheral=0x%04X}", l.CentralID, l.PeripheralID)
}
