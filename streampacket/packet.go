package streampacket

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/interledger-go/ilp-stream/ilppacket"
)

// protocolVersion is the first byte of every encoded StreamPacket, kept
// distinct from the CBOR major-type bytes so a version bump can still be
// distinguished from a garbled payload.
const protocolVersion byte = 2

// StreamPacket is the plaintext structure sealed inside a Prepare's or
// Fulfill's/Reject's data field via ilpcrypto.
type StreamPacket struct {
	SequenceNumber uint64               `cbor:"0,keyasint"`
	IlpPacketType  ilppacket.PacketType `cbor:"1,keyasint"`
	PrepareAmount  uint64               `cbor:"2,keyasint"`
	Frames         []Frame              `cbor:"3,keyasint"`
}

// Encode serializes p to its wire form: a version byte followed by the
// CBOR encoding of the packet.
func (p *StreamPacket) Encode() ([]byte, error) {
	body, err := cbor.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("streampacket: encode: %w", err)
	}
	out := make([]byte, 0, 1+len(body))
	out = append(out, protocolVersion)
	out = append(out, body...)
	return out, nil
}

// Decode parses the wire form produced by Encode.
func Decode(data []byte) (*StreamPacket, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("streampacket: empty payload")
	}
	if data[0] != protocolVersion {
		return nil, fmt.Errorf("streampacket: unsupported protocol version %d", data[0])
	}
	var p StreamPacket
	if err := cbor.Unmarshal(data[1:], &p); err != nil {
		return nil, fmt.Errorf("streampacket: decode: %w", err)
	}
	return &p, nil
}
