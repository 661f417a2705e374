package tuyble

// EventKind tags the variant carried by an Event: a single tagged-union
// channel in place of a separate callback per lifecycle notification.
type EventKind int

const (
	// EventReady fires once the handshake completes and the session
	// reaches Ready. Event.Message carries "paired=true" or
	// "paired=false" reporting whether pairing succeeded.
	EventReady EventKind = iota
	// EventDisconnected fires when Disconnect is called or Connect fails,
	// and when the handshake fails (first with Err set, then again without
	// it as the session resets). The Transport interface has no way to
	// report a dropped connection, so a drop by itself fires no event.
	// All pending send completions are dropped, not invoked.
	EventDisconnected
	// EventDataPoint fires once per data point parsed from a ReceiveDp
	// message. Event.DataPoint holds the value.
	EventDataPoint
	// EventReportedDataPointsUpdated fires once per inbound batch, after
	// every EventDataPoint in that batch has been delivered.
	EventReportedDataPointsUpdated
	// EventDebugLog carries a diagnostic string for callers who want it
	// in addition to (or instead of) the engine's logrus output.
	EventDebugLog
)

// Event is the tagged value delivered on Engine.Events().
type Event struct {
	Kind      EventKind
	DataPoint DataPoint
	Message   string
	Err       error
}
