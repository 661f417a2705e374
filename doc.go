// Package tuyble implements the session and framing engine for the Tuya
// BLE application protocol: packet fragmentation/reassembly, the encrypted
// message envelope, the bootstrap/session key schedule, the data-point
// codec, and the connection state machine that ties them together.
//
// The package does not open a Bluetooth connection itself. Callers provide
// a Transport (see transport.go) that performs GATT writes and delivers
// notifications; tuyble turns that byte stream into authenticated,
// encrypted request/response exchanges.
package tuyble
