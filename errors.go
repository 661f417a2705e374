package tuyble

// ErrorKind identifies which taxonomy bucket an Error belongs to, so
// callers can switch on it or compare with errors.Is against the
// package-level sentinels below.
type ErrorKind int

const (
	// KindTransportUnavailable: cannot open service/characteristics, or a
	// BLE write failed.
	KindTransportUnavailable ErrorKind = iota
	// KindMalformedAdvertisement: advertisement does not match the Tuya shape.
	KindMalformedAdvertisement
	// KindMalformedMessage: CRC mismatch, declared length exceeds frame,
	// unknown security flag, or decryption alignment failure.
	KindMalformedMessage
	// KindReassemblyDesync: unexpected packet number, or assembled size
	// exceeds the declared message length.
	KindReassemblyDesync
	// KindHandshakeFailed: DeviceInfo response too short, or the Pair
	// request could not be sent. A Pair response byte of 0 is not reported
	// with this kind; it arrives as EventReady with "paired=false".
	KindHandshakeFailed
	// KindNotReady: a send was attempted before the session reached Ready.
	KindNotReady
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransportUnavailable:
		return "TransportUnavailable"
	case KindMalformedAdvertisement:
		return "MalformedAdvertisement"
	case KindMalformedMessage:
		return "MalformedMessage"
	case KindReassemblyDesync:
		return "ReassemblyDesync"
	case KindHandshakeFailed:
		return "HandshakeFailed"
	case KindNotReady:
		return "NotReady"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across package boundaries. Its
// Kind is comparable with errors.Is against the sentinel Err* values below;
// its Unwrap exposes any underlying cause.
type Error struct {
	Kind  ErrorKind
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.cause.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is the sentinel for e's Kind, so that
// errors.Is(err, tuyble.ErrNotReady) works without exposing *Error itself.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	return ok && sentinel.Kind == e.Kind && sentinel.Msg == ""
}

func newError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, cause: cause}
}

// Sentinel values usable with errors.Is; they carry no message so Is
// compares only on Kind.
var (
	ErrTransportUnavailable   = &Error{Kind: KindTransportUnavailable}
	ErrMalformedAdvertisement = &Error{Kind: KindMalformedAdvertisement}
	ErrMalformedMessage       = &Error{Kind: KindMalformedMessage}
	ErrReassemblyDesync       = &Error{Kind: KindReassemblyDesync}
	ErrHandshakeFailed        = &Error{Kind: KindHandshakeFailed}
	ErrNotReady               = &Error{Kind: KindNotReady}
)
