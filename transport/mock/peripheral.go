package mock

import (
	"sync"

	"github.com/tuya-ble/tuyble"
)

// Peripheral is a Device fixture that plays the device side of the Tuya
// BLE protocol well enough to drive a full handshake and data-point
// exchange in tests: it reassembles inbound fragments into messages,
// decrypts them with the same bootstrap/session key schedule the engine
// uses, and replies as a real bound lock would.
type Peripheral struct {
	Transport *Transport

	LocalKey        string
	Srand           []byte // 6 bytes
	DeviceVersion   [2]byte
	ProtocolVersion [2]byte
	HardwareVersion [2]byte
	AuthKey         []byte // 32 bytes
	PairSucceeds    bool
	ProtocolVer     int // mirrors tuyble.Options.ProtocolVersion for DP length framing

	mu          sync.Mutex
	reassembly  struct {
		expectedPacketNumber  uint32
		expectedMessageLength uint32
		buf                   []byte
	}
	localKeyMd5 []byte
	sessionKey  []byte
	lastDps     []tuyble.DataPoint
}

// NewPeripheral builds a Peripheral sharing localKey with the engine
// under test, with reasonable defaults for the other handshake fields.
func NewPeripheral(localKey string) *Peripheral {
	p := &Peripheral{
		LocalKey:        localKey,
		Srand:           []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66},
		DeviceVersion:   [2]byte{3, 0},
		ProtocolVersion: [2]byte{3, 0},
		HardwareVersion: [2]byte{1, 0},
		AuthKey:         make([]byte, 32),
		PairSucceeds:    true,
		ProtocolVer:     3,
	}
	first6 := []byte(localKey)
	if len(first6) > 6 {
		first6 = first6[:6]
	}
	for len(first6) < 6 {
		first6 = append(first6, 0)
	}
	p.localKeyMd5 = tuyble.MD5(first6)
	p.sessionKey = tuyble.MD5(append(append([]byte(nil), first6...), p.Srand...))
	return p
}

// HandleFragment implements Device.
func (p *Peripheral) HandleFragment(fragment []byte) {
	p.mu.Lock()
	packetNumber, n := tuyble.ReadPackedVarint(fragment)
	if n == 0 {
		p.mu.Unlock()
		return
	}
	rest := fragment[n:]
	if packetNumber != p.reassembly.expectedPacketNumber {
		p.mu.Unlock()
		return
	}
	if packetNumber == 0 {
		msgLen, ln := tuyble.ReadPackedVarint(rest)
		if ln == 0 {
			p.mu.Unlock()
			return
		}
		rest = rest[ln+1:]
		p.reassembly.buf = nil
		p.reassembly.expectedMessageLength = msgLen
	}
	p.reassembly.buf = append(p.reassembly.buf, rest...)
	complete := uint32(len(p.reassembly.buf)) >= p.reassembly.expectedMessageLength
	var assembled []byte
	if complete {
		assembled = p.reassembly.buf
		p.reassembly.buf = nil
		p.reassembly.expectedPacketNumber = 0
		p.reassembly.expectedMessageLength = 0
	} else {
		p.reassembly.expectedPacketNumber++
	}
	localKeyMd5, sessionKey := p.localKeyMd5, p.sessionKey
	p.mu.Unlock()

	if !complete {
		return
	}

	p.handleMessage(assembled, localKeyMd5, sessionKey)
}

func (p *Peripheral) handleMessage(envelope, localKeyMd5, sessionKey []byte) {
	msg, err := tuyble.DecodeMessage(envelope, localKeyMd5, sessionKey)
	if err != nil {
		return
	}

	switch msg.FunctionCode {
	case 0x0000: // DeviceInfo
		p.respondDeviceInfo(msg.SequenceNumber, localKeyMd5)
	case 0x0001: // Pair
		p.respondPair(msg.SequenceNumber, sessionKey)
	case 0x0002, 0x0027: // SendDps
		p.lastDps = tuyble.DecodeDpBatch(msg.Data)
		p.respondSendDpsAck(msg.SequenceNumber, sessionKey)
	case 0x0003: // RequestStatus
		p.sendReceiveDp(sessionKey)
	}
}

func (p *Peripheral) respond(functionCode uint16, responseTo uint32, data, localKeyMd5, sessionKey []byte) {
	key := sessionKey
	if functionCode == 0x0000 {
		key = localKeyMd5
	}
	envelope, err := tuyble.EncodeMessage(tuyble.Message{
		SequenceNumber:           0,
		ResponseToSequenceNumber: responseTo,
		FunctionCode:             functionCode,
		Data:                     data,
	}, localKeyMd5, key, make([]byte, 16))
	if err != nil {
		return
	}
	for _, fragment := range tuyble.FragmentMessage(envelope, p.ProtocolVer) {
		p.Transport.Notify(fragment)
	}
}

func (p *Peripheral) respondDeviceInfo(responseTo uint32, localKeyMd5 []byte) {
	buf := &tuyble.ByteBuffer{}
	buf.AppendUint8(p.DeviceVersion[0])
	buf.AppendUint8(p.DeviceVersion[1])
	buf.AppendUint8(p.ProtocolVersion[0])
	buf.AppendUint8(p.ProtocolVersion[1])
	buf.AppendUint8(0) // bytes 4..6 reserved/unused by this spec
	buf.AppendUint8(0)
	buf.AppendBytes(p.Srand)
	buf.AppendUint8(p.HardwareVersion[0])
	buf.AppendUint8(p.HardwareVersion[1])
	buf.AppendBytes(p.AuthKey)
	p.respond(0x0000, responseTo, buf.Bytes(), localKeyMd5, nil)
}

func (p *Peripheral) respondPair(responseTo uint32, sessionKey []byte) {
	status := byte(0)
	if p.PairSucceeds {
		status = 1
	}
	p.respond(0x0001, responseTo, []byte{status}, p.localKeyMd5, sessionKey)
}

func (p *Peripheral) respondSendDpsAck(responseTo uint32, sessionKey []byte) {
	p.respond(0x0002, responseTo, nil, p.localKeyMd5, sessionKey)
}

func (p *Peripheral) sendReceiveDp(sessionKey []byte) {
	payload := tuyble.EncodeDpBatch(p.lastDps, p.ProtocolVer)
	p.respond(0x8001, 0, payload, p.localKeyMd5, sessionKey)
}
