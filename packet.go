package tuyble

// PacketMTU is the maximum size of a single GATT write fragment assumed
// throughout the packet layer. MTU negotiation is not implemented; every
// fragment is sized to this fixed limit.
const PacketMTU = 20

// FragmentMessage splits an encrypted message into PacketMTU-sized
// fragments: packet 0 carries varint(0), varint(total length), and a
// one-byte (protocolVersion<<4) field ahead of its slice of data; later
// packets carry only their varint packet number.
func FragmentMessage(encrypted []byte, protocolVersion int) [][]byte {
	if len(encrypted) == 0 {
		return nil
	}

	header0 := append(WritePackedVarint(0), WritePackedVarint(uint32(len(encrypted)))...)
	header0 = append(header0, byte(protocolVersion<<4))

	var packets [][]byte
	offset := 0
	n := uint32(0)
	for offset < len(encrypted) {
		var header []byte
		if n == 0 {
			header = header0
		} else {
			header = WritePackedVarint(n)
		}
		room := PacketMTU - len(header)
		if room <= 0 {
			// A single packet's own framing doesn't fit in the MTU; this
			// cannot happen with the fixed 1-5 byte varints in play here,
			// but guard against an infinite loop rather than spin.
			room = 1
		}
		chunk := room
		if chunk > len(encrypted)-offset {
			chunk = len(encrypted) - offset
		}
		packet := make([]byte, 0, len(header)+chunk)
		packet = append(packet, header...)
		packet = append(packet, encrypted[offset:offset+chunk]...)
		packets = append(packets, packet)

		offset += chunk
		n++
	}
	return packets
}

// reassembler tracks inbound packet-layer state for one session: expected
// packet number, expected total message length, and the in-progress
// reassembly buffer.
type reassembler struct {
	expectedPacketNumber  uint32
	expectedMessageLength uint32
	buf                   []byte
	protocolVersion       uint8
}

func (r *reassembler) reset() {
	r.expectedPacketNumber = 0
	r.expectedMessageLength = 0
	r.buf = nil
}

// feed processes one delivered fragment. It returns (message, true, nil)
// once a complete message has been reassembled, (nil, false, nil) if more
// fragments are needed, and a non-nil ReassemblyDesync error when the
// fragment was discarded (missing or unexpected packet number, malformed
// packet 0 header, or assembled size exceeding the declared length). An
// unexpected packet number leaves the in-progress state untouched; the
// other two conditions reset it.
func (r *reassembler) feed(fragment []byte) ([]byte, bool, error) {
	packetNumber, n := ReadPackedVarint(fragment)
	if n == 0 {
		return nil, false, newError(KindReassemblyDesync, "fragment has no valid packet number", nil)
	}
	rest := fragment[n:]

	if packetNumber != r.expectedPacketNumber {
		// Ordering or reassembly error: discard and let the request
		// layer's timeout recover.
		return nil, false, newError(KindReassemblyDesync, "unexpected packet number", nil)
	}

	if packetNumber == 0 {
		msgLen, ln := ReadPackedVarint(rest)
		if ln == 0 || len(rest) < ln+1 {
			r.reset()
			return nil, false, newError(KindReassemblyDesync, "malformed packet 0 header", nil)
		}
		r.protocolVersion = rest[ln] >> 4
		rest = rest[ln+1:]
		r.buf = nil
		r.expectedMessageLength = msgLen
	}

	r.buf = append(r.buf, rest...)

	switch {
	case uint32(len(r.buf)) < r.expectedMessageLength:
		r.expectedPacketNumber++
		return nil, false, nil
	case uint32(len(r.buf)) == r.expectedMessageLength:
		out := r.buf
		r.reset()
		return out, true, nil
	default:
		// Assembled size exceeds the declared length: no recovery path,
		// reset and drop.
		r.reset()
		return nil, false, newError(KindReassemblyDesync, "assembled size exceeds declared length", nil)
	}
}
