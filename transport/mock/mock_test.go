package mock

import (
	"context"
	"errors"
	"testing"
)

type recordingDevice struct {
	fragments [][]byte
}

func (d *recordingDevice) HandleFragment(fragment []byte) {
	d.fragments = append(d.fragments, append([]byte(nil), fragment...))
}

func TestTransportConnectSucceedsByDefault(t *testing.T) {
	transport := NewTransport(nil)
	ok, err := transport.Connect(context.Background(), "addr")
	if err != nil || !ok {
		t.Fatalf("Connect() = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestTransportConnectHonorsFail(t *testing.T) {
	transport := NewTransport(nil)
	transport.Fail = errors.New("boom")
	ok, err := transport.Connect(context.Background(), "addr")
	if ok || err == nil {
		t.Fatalf("Connect() = (%v, %v), want (false, error)", ok, err)
	}
}

func TestTransportWriteRecordsAndForwards(t *testing.T) {
	device := &recordingDevice{}
	transport := NewTransport(device)

	if err := transport.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(device.fragments) != 1 {
		t.Fatalf("device received %d fragments, want 1", len(device.fragments))
	}
	writes := transport.Writes()
	if len(writes) != 1 || writes[0][0] != 1 {
		t.Errorf("Writes() = %v, want [[1 2 3]]", writes)
	}
}

func TestTransportWriteAfterDisconnectFails(t *testing.T) {
	transport := NewTransport(nil)
	if err := transport.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if err := transport.Write([]byte{1}); err == nil {
		t.Fatal("expected an error writing to a closed transport")
	}
	if err := transport.Subscribe(func([]byte) {}); err == nil {
		t.Fatal("expected an error subscribing to a closed transport")
	}
}

func TestTransportNotifyDeliversToSubscriber(t *testing.T) {
	transport := NewTransport(nil)
	var got []byte
	if err := transport.Subscribe(func(data []byte) { got = data }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	transport.Notify([]byte{9, 8, 7})
	if len(got) != 3 || got[0] != 9 {
		t.Errorf("notify callback received %v, want [9 8 7]", got)
	}
}

func TestTransportNotifyWithoutSubscriberIsNoop(t *testing.T) {
	transport := NewTransport(nil)
	transport.Notify([]byte{1}) // must not panic
}

func TestPeripheralIgnoresFragmentWithNoPacketNumber(t *testing.T) {
	peripheral := NewPeripheral("0123456789abcdef")
	transport := NewTransport(peripheral)
	peripheral.Transport = transport

	var notified bool
	transport.Subscribe(func([]byte) { notified = true })

	peripheral.HandleFragment(nil)
	if notified {
		t.Error("peripheral should not respond to a malformed fragment")
	}
}
