package ilppacket

import "unicode/utf8"

// Packet is implemented by Prepare, Fulfill and Reject.
type Packet interface {
	Type() PacketType
	Encode() []byte
}

// Decode parses the type tag of an arbitrary ILP packet and dispatches to
// the matching variant parser. An unrecognized type tag is an
// InvalidPacket error, not a panic.
func Decode(data []byte) (Packet, error) {
	if len(data) == 0 {
		return nil, shortBuffer("packet type")
	}
	switch PacketType(data[0]) {
	case TypePrepare:
		return DecodePrepare(data)
	case TypeFulfill:
		return DecodeFulfill(data)
	case TypeReject:
		return DecodeReject(data)
	default:
		return nil, invalidPacket("unknown packet type: %d", data[0])
	}
}

func isValidUTF8(b []byte) bool {
	return utf8.Valid(b)
}
