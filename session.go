package tuyble

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Function codes, wire values (u16).
const (
	funcDeviceInfo    uint16 = 0x0000
	funcPair          uint16 = 0x0001
	funcSendDpsV3     uint16 = 0x0002
	funcRequestStatus uint16 = 0x0003
	funcUnbind        uint16 = 0x0005
	funcDeviceReset   uint16 = 0x0006
	funcOTAStart      uint16 = 0x000C
	funcOTAFile       uint16 = 0x000D
	funcOTAOffset     uint16 = 0x000E
	funcOTAUpgrade    uint16 = 0x000F
	funcOTAOver       uint16 = 0x0010
	funcSendDpsV4     uint16 = 0x0027

	funcReceiveDp     uint16 = 0x8001
	funcTimeDp        uint16 = 0x8003
	funcSignDp        uint16 = 0x8004
	funcSignTimeDp    uint16 = 0x8005
	funcReceiveDpV4   uint16 = 0x8006
	funcTimeDpV4      uint16 = 0x8007
	funcTimeReq1      uint16 = 0x8011
	funcTimeReq2      uint16 = 0x8012
)

// Phase is the connection state machine's current state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseAwaitingDeviceInfo
	PhaseAwaitingPair
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseConnecting:
		return "Connecting"
	case PhaseAwaitingDeviceInfo:
		return "AwaitingDeviceInfo"
	case PhaseAwaitingPair:
		return "AwaitingPair"
	case PhaseReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

// Versions holds the "<major>.<minor>" strings reported by a device's
// DeviceInfo response.
type Versions struct {
	Device   string
	Protocol string
	Hardware string
}

// SessionState is the per-peer runtime record of one session. It is
// owned exclusively by one Engine; external code should use Engine's
// accessor methods rather than holding a reference to this type.
type SessionState struct {
	mu sync.RWMutex

	sequenceNumber uint32
	phase          Phase

	localKeyFirstSix []byte
	localKeyMd5      []byte
	sessionKey       []byte

	reassembly reassembler

	pendingDpResponses map[uint32]func(err error)
	reportedDataPoints map[uint8]DataPoint

	versions Versions
	authKey  []byte
}

// Phase returns the session's current connection phase.
func (s *SessionState) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// ReportedDataPoints returns a copy of the last known value of every data
// point reported by the device so far.
func (s *SessionState) ReportedDataPoints() map[uint8]DataPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint8]DataPoint, len(s.reportedDataPoints))
	for k, v := range s.reportedDataPoints {
		out[k] = v
	}
	return out
}

// Versions returns the device/protocol/hardware version strings reported
// during the handshake. Zero value until AwaitingPair is reached.
func (s *SessionState) Versions() Versions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions
}

// AuthKey returns the 32-byte auth key retained from the DeviceInfo
// response; not consumed elsewhere by this protocol.
func (s *SessionState) AuthKey() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBytes(s.authKey)
}

// Options configures an Engine.
type Options struct {
	// ProtocolVersion is negotiated out of band (e.g. from an
	// AdvertisedDeviceInfo) and controls the data-point encode length
	// field width. Default 3.
	ProtocolVersion int

	// Logger receives structured diagnostics. Defaults to
	// logrus.StandardLogger().
	Logger logrus.FieldLogger

	// RandReader supplies bytes for message IVs. Defaults to
	// crypto/rand.Reader; tests may substitute a deterministic reader.
	RandReader io.Reader
}

func (o Options) withDefaults() Options {
	if o.ProtocolVersion == 0 {
		o.ProtocolVersion = 3
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.RandReader == nil {
		o.RandReader = rand.Reader
	}
	return o
}

// Engine drives one Tuya BLE session over one Transport connection. One
// Engine handles exactly one peer; it does not multiplex concurrent
// sessions to multiple devices.
type Engine struct {
	transport Transport
	creds     Credentials
	opts      Options
	log       logrus.FieldLogger

	state SessionState

	events chan Event
}

// NewEngine builds an Engine for creds, communicating over transport.
func NewEngine(transport Transport, creds Credentials, opts Options) *Engine {
	opts = opts.withDefaults()
	e := &Engine{
		transport: transport,
		creds:     creds,
		opts:      opts,
		log:       opts.Logger,
		events:    make(chan Event, 32),
	}
	e.state.pendingDpResponses = make(map[uint32]func(err error))
	e.state.reportedDataPoints = make(map[uint8]DataPoint)
	e.state.localKeyFirstSix = firstSixBytes(creds.LocalKey)
	e.state.localKeyMd5 = MD5(e.state.localKeyFirstSix)
	e.state.phase = PhaseIdle
	return e
}

// Events returns the channel of lifecycle and data events. Callers should
// range over it for the engine's lifetime. The channel is never closed
// (an Engine may Connect again after a Disconnect or failed handshake);
// callers should stop reading once they are done with the engine rather
// than wait for closure.
func (e *Engine) Events() <-chan Event { return e.events }

// State returns the engine's SessionState for read-only inspection.
func (e *Engine) State() *SessionState { return &e.state }

// firstSixBytes returns the first six ASCII bytes of localKey, zero-padded
// if it is shorter; only this prefix is ever used to derive keys.
func firstSixBytes(localKey string) []byte {
	b := []byte(localKey)
	if len(b) > 6 {
		b = b[:6]
	}
	out := make([]byte, 6)
	copy(out, b)
	return out
}

// Connect transitions Idle -> Connecting -> AwaitingDeviceInfo, opening
// the transport and sending the initial DeviceInfo request.
func (e *Engine) Connect(ctx context.Context, address string) error {
	e.state.mu.Lock()
	if e.state.phase != PhaseIdle {
		e.state.mu.Unlock()
		return newError(KindNotReady, "connect called outside Idle phase", nil)
	}
	e.state.phase = PhaseConnecting
	e.state.mu.Unlock()

	ok, err := e.transport.Connect(ctx, address)
	if err != nil || !ok {
		e.resetToIdle()
		return newError(KindTransportUnavailable, "transport connect failed", err)
	}

	if err := e.transport.Subscribe(e.onNotify); err != nil {
		e.resetToIdle()
		return newError(KindTransportUnavailable, "subscribing to notifications", err)
	}

	e.state.mu.Lock()
	e.state.phase = PhaseAwaitingDeviceInfo
	e.state.mu.Unlock()

	if err := e.sendRequest(funcDeviceInfo, nil); err != nil {
		e.resetToIdle()
		return err
	}
	return nil
}

// Disconnect tears down the transport connection and resets all session
// state. Pending send completions are dropped, never invoked.
func (e *Engine) Disconnect() error {
	err := e.transport.Disconnect()
	e.resetToIdle()
	return err
}

func (e *Engine) resetToIdle() {
	e.state.mu.Lock()
	e.state.phase = PhaseIdle
	e.state.sequenceNumber = 0
	e.state.sessionKey = nil
	e.state.reassembly.reset()
	for seq := range e.state.pendingDpResponses {
		delete(e.state.pendingDpResponses, seq)
	}
	e.state.mu.Unlock()

	e.emit(Event{Kind: EventDisconnected})
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.log.WithField("kind", ev.Kind).Warn("tuyble: dropping event, subscriber too slow")
	}
}

func (e *Engine) debugf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	e.log.Debug(msg)
	e.emit(Event{Kind: EventDebugLog, Message: msg})
}

// sendRequest assigns the next sequence number, frames, encrypts, and
// fragments data for functionCode, then writes every fragment to the
// transport in order.
func (e *Engine) sendRequest(functionCode uint16, data []byte) error {
	return e.sendRequestWithCompletion(functionCode, data, nil)
}

// sendRequestWithCompletion is sendRequest, additionally registering
// completion under the sequence number about to be assigned
// (seq = e.state.sequenceNumber + 1): the pending entry is recorded
// *before* the sequence number is bumped and the envelope built, so both
// sides agree on the same number.
func (e *Engine) sendRequestWithCompletion(functionCode uint16, data []byte, completion func(err error)) error {
	e.state.mu.Lock()
	nextSeq := e.state.sequenceNumber + 1
	if completion != nil {
		e.state.pendingDpResponses[nextSeq] = completion
	}
	e.state.sequenceNumber = nextSeq
	seq := nextSeq
	localKeyMd5 := e.state.localKeyMd5
	sessionKey := e.state.sessionKey
	e.state.mu.Unlock()

	iv, err := RandomIV(e.opts.RandReader, 16)
	if err != nil {
		return err
	}

	envelope, err := EncodeMessage(Message{
		SequenceNumber: seq,
		FunctionCode:   functionCode,
		Data:           data,
	}, localKeyMd5, sessionKey, iv)
	if err != nil {
		return err
	}

	for _, fragment := range FragmentMessage(envelope, e.opts.ProtocolVersion) {
		if err := e.transport.Write(fragment); err != nil {
			return newError(KindTransportUnavailable, "writing fragment", err)
		}
	}
	return nil
}

// onNotify is the Transport's notify callback: it feeds the packet-layer
// reassembler and, once a full message is available, decrypts and
// dispatches it. It runs on whatever goroutine the transport delivers
// notifications on; all session-state access is guarded by the mutex.
func (e *Engine) onNotify(fragment []byte) {
	e.state.mu.Lock()
	assembled, complete, rerr := e.state.reassembly.feed(fragment)
	localKeyMd5 := e.state.localKeyMd5
	sessionKey := e.state.sessionKey
	e.state.mu.Unlock()

	if rerr != nil {
		e.debugf("tuyble: reassembly: %v", rerr)
		return
	}
	if !complete {
		return
	}

	msg, err := DecodeMessage(assembled, localKeyMd5, sessionKey)
	if err != nil {
		e.debugf("tuyble: decode: %v", err)
		return
	}

	e.dispatch(msg)
}

// dispatch routes a decoded message to its handler by function code.
func (e *Engine) dispatch(msg Message) {
	switch msg.FunctionCode {
	case funcDeviceInfo:
		e.handleDeviceInfoResponse(msg)
	case funcPair:
		e.handlePairResponse(msg)
	case funcSendDpsV3, funcSendDpsV4:
		e.handleSendDpsAck(msg)
	case funcReceiveDp, funcReceiveDpV4:
		e.handleReceiveDp(msg)
	case funcTimeReq1, funcTimeReq2:
		// Ignored: our clock is not authoritative.
	case funcTimeDp, funcSignDp, funcSignTimeDp, funcTimeDpV4:
		// No action: these are dropped without a reply.
	default:
		e.debugf("tuyble: unhandled function code 0x%04X", msg.FunctionCode)
	}
}

// handleDeviceInfoResponse parses the DeviceInfo payload, derives the
// session key from the device's srand nonce, and advances to
// AwaitingPair.
func (e *Engine) handleDeviceInfoResponse(msg Message) {
	if len(msg.Data) < 46 {
		e.failHandshake("DeviceInfo response too short")
		return
	}
	b := msg.Data

	versions := Versions{
		Device:   fmt.Sprintf("%d.%d", b[0], b[1]),
		Protocol: fmt.Sprintf("%d.%d", b[2], b[3]),
		Hardware: fmt.Sprintf("%d.%d", b[12], b[13]),
	}
	srand := b[6:12]
	authKey := cloneBytes(b[14:46])

	e.state.mu.Lock()
	if e.state.phase != PhaseAwaitingDeviceInfo {
		e.state.mu.Unlock()
		return
	}
	e.state.sessionKey = MD5(append(cloneBytes(e.state.localKeyFirstSix), srand...))
	e.state.versions = versions
	e.state.authKey = authKey
	e.state.phase = PhaseAwaitingPair
	e.state.mu.Unlock()

	e.debugf("tuyble: derived session key from device srand")

	pairPayload := buildPairPayload(e.creds, e.state.localKeyFirstSix)
	if err := e.sendRequest(funcPair, pairPayload); err != nil {
		e.failHandshake(err.Error())
	}
}

// buildPairPayload constructs the Pair request body: uuid ∥ first6(localKey)
// ∥ deviceId, zero-padded to 44 bytes.
func buildPairPayload(creds Credentials, localKeyFirstSix []byte) []byte {
	buf := &ByteBuffer{}
	buf.AppendBytes([]byte(creds.UUID))
	buf.AppendBytes(localKeyFirstSix)
	buf.AppendBytes([]byte(creds.DeviceID))
	out := buf.Bytes()
	if len(out) < 44 {
		padded := make([]byte, 44)
		copy(padded, out)
		return padded
	}
	return out
}

// handlePairResponse completes the handshake: the engine transitions to
// Ready and fires EventReady regardless of the response byte, carrying
// success/failure in the event's Message field ("paired=true"/"paired=false").
func (e *Engine) handlePairResponse(msg Message) {
	e.state.mu.Lock()
	if e.state.phase != PhaseAwaitingPair {
		e.state.mu.Unlock()
		return
	}
	e.state.phase = PhaseReady
	e.state.mu.Unlock()

	success := len(msg.Data) > 0 && msg.Data[0] != 0
	e.emit(Event{Kind: EventReady, Message: fmt.Sprintf("paired=%v", success)})
}

func (e *Engine) failHandshake(reason string) {
	e.debugf("tuyble: handshake failed: %s", reason)
	e.emit(Event{Kind: EventDisconnected, Err: newError(KindHandshakeFailed, reason, nil)})
	e.resetToIdle()
}

// handleSendDpsAck looks up the pending completion registered under
// ResponseToSequenceNumber and invokes it at most once; unmatched
// acknowledgements are ignored.
func (e *Engine) handleSendDpsAck(msg Message) {
	e.state.mu.Lock()
	completion, ok := e.state.pendingDpResponses[msg.ResponseToSequenceNumber]
	if ok {
		delete(e.state.pendingDpResponses, msg.ResponseToSequenceNumber)
	}
	e.state.mu.Unlock()

	if ok && completion != nil {
		completion(nil)
	}
}

// handleReceiveDp parses the inbound data-point batch, updates
// reportedDataPoints, and fires the per-point and per-batch events.
func (e *Engine) handleReceiveDp(msg Message) {
	dps := DecodeDpBatch(msg.Data)
	if len(dps) == 0 {
		return
	}

	e.state.mu.Lock()
	for _, dp := range dps {
		e.state.reportedDataPoints[dp.ID] = dp
	}
	e.state.mu.Unlock()

	for _, dp := range dps {
		e.emit(Event{Kind: EventDataPoint, DataPoint: dp})
	}
	e.emit(Event{Kind: EventReportedDataPointsUpdated})
}

// SendDataPoints submits dps to the device. completion, if non-nil, is
// invoked at most once when the corresponding acknowledgement arrives (or
// never, if the connection drops first -- timing out a send and retrying
// is left to the caller).
func (e *Engine) SendDataPoints(dps []DataPoint, completion func(err error)) error {
	if e.State().Phase() != PhaseReady {
		return newError(KindNotReady, "SendDataPoints called before Ready", nil)
	}
	functionCode := funcSendDpsV3
	if e.opts.ProtocolVersion >= 4 {
		functionCode = funcSendDpsV4
	}
	payload := EncodeDpBatch(dps, e.opts.ProtocolVersion)
	return e.sendRequestWithCompletion(functionCode, payload, completion)
}

// RequestStatus asks the device to re-emit its current data points.
func (e *Engine) RequestStatus() error {
	if e.State().Phase() != PhaseReady {
		return newError(KindNotReady, "RequestStatus called before Ready", nil)
	}
	return e.sendRequest(funcRequestStatus, nil)
}

// Unbind asks the device to remove this pairing.
func (e *Engine) Unbind() error {
	if e.State().Phase() != PhaseReady {
		return newError(KindNotReady, "Unbind called before Ready", nil)
	}
	return e.sendRequest(funcUnbind, nil)
}
