// Package mock provides an in-memory tuyble.Transport backed by a pluggable
// device simulator, used by the engine's tests and by cmd/tuyalockctl to
// exercise a full handshake and data-point round trip without real BLE
// hardware.
package mock

import (
	"context"
	"errors"
	"sync"
)

// Device is implemented by a test or demo fixture that behaves like a
// bound peripheral: it receives every packet-layer fragment the engine
// writes and answers by calling Transport.Notify with fragments of its own.
//
// Transport itself only ferries opaque packet-layer fragments; the Device
// does its own reassembly, decryption and framing. See NewPeripheral.
type Device interface {
	// HandleFragment receives one packet-layer fragment written by the
	// engine. Device is responsible for its own reassembly and framing,
	// and may call the Transport's notify function from within this call
	// or asynchronously.
	HandleFragment(fragment []byte)
}

// Transport is an in-memory tuyble.Transport. Connect always succeeds
// unless Fail is set; Write hands fragments to Device; Subscribe records
// the notify callback, which the test Device implementation is expected
// to invoke.
type Transport struct {
	Device Device

	// Fail, if set, is returned by Connect instead of succeeding.
	Fail error

	mu       sync.Mutex
	notify   func(data []byte)
	closed   bool
	writeLog [][]byte
}

// NewTransport builds a mock transport wired to a Device, e.g. a
// *Peripheral.
func NewTransport(d Device) *Transport {
	return &Transport{Device: d}
}

func (t *Transport) Connect(ctx context.Context, address string) (bool, error) {
	if t.Fail != nil {
		return false, t.Fail
	}
	return true, nil
}

func (t *Transport) Subscribe(notify func(data []byte)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("mock: subscribe on closed transport")
	}
	t.notify = notify
	return nil
}

func (t *Transport) Write(fragment []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errors.New("mock: write on closed transport")
	}
	t.writeLog = append(t.writeLog, append([]byte(nil), fragment...))
	t.mu.Unlock()

	if t.Device != nil {
		t.Device.HandleFragment(fragment)
	}
	return nil
}

func (t *Transport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Notify delivers data to whatever Subscribe callback is currently
// registered. A Device fixture calls this to simulate a BLE notification
// arriving from the peripheral.
func (t *Transport) Notify(data []byte) {
	t.mu.Lock()
	notify := t.notify
	t.mu.Unlock()
	if notify != nil {
		notify(data)
	}
}

// Writes returns every fragment written so far, for test assertions.
func (t *Transport) Writes() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.writeLog))
	copy(out, t.writeLog)
	return out
}
