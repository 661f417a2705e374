// Package devices provides thin, non-polymorphic wrappers over a
// *tuyble.Engine for specific Tuya BLE device classes. Each wrapper only
// builds DataPoint payloads and reads reported values back out of the
// engine's session state; none of them talk to the transport directly.
package devices

import "github.com/tuya-ble/tuyble"

// SimpleLock wraps the data points of Tuya's simple BLE lock profile.
type SimpleLock struct {
	Engine *tuyble.Engine
}

// Simple lock data point ids.
const (
	simpleLockDPShortRangeUnlock uint8 = 6
	simpleLockDPBatteryLevel     uint8 = 9
	simpleLockDPUnlockStatus     uint8 = 47
)

// IsLocked reports the last known lock state, defaulting to locked
// (true) until the device has reported its unlock status.
func (l SimpleLock) IsLocked() bool {
	dp, ok := l.Engine.State().ReportedDataPoints()[simpleLockDPUnlockStatus]
	if !ok {
		return true
	}
	return !dp.Boolean()
}

// BatteryLevel returns the last reported battery level enum
// (0=high, 1=medium, 2=low, 3=exhausted), or 0 if never reported.
func (l SimpleLock) BatteryLevel() uint32 {
	dp, ok := l.Engine.State().ReportedDataPoints()[simpleLockDPBatteryLevel]
	if !ok {
		return 0
	}
	return dp.Enum()
}

// Unlock sends the short-range unlock command for memberID.
func (l SimpleLock) Unlock(memberID uint8, completion func(err error)) error {
	return l.Engine.SendDataPoints([]tuyble.DataPoint{
		tuyble.NewRawDataPoint(simpleLockDPShortRangeUnlock, []byte{1, memberID}),
	}, completion)
}

// Lock sends the short-range lock command for memberID.
func (l SimpleLock) Lock(memberID uint8, completion func(err error)) error {
	return l.Engine.SendDataPoints([]tuyble.DataPoint{
		tuyble.NewRawDataPoint(simpleLockDPShortRangeUnlock, []byte{0, memberID}),
	}, completion)
}
