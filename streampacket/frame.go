// Package streampacket implements the STREAM packet format carried
// encrypted inside an ILP packet's data field: a sequence number, a
// mirrored ILP packet type, a prepare_amount used for delivery
// accounting, and an ordered list of frames.
package streampacket

// FrameType tags the CBOR-encoded Frame union so unknown frame kinds can
// still round-trip.
type FrameType uint8

const (
	FrameStreamMoney FrameType = iota
	FrameStreamData
	FrameStreamClose
	FrameConnectionClose
	FrameConnectionNewAddress
	// FrameUnknown marks a frame whose Type byte this codec doesn't
	// recognize; RawPayload carries the original CBOR bytes so the
	// connection can forward it untouched.
	FrameUnknown FrameType = 0xff
)

// ErrorCode is the STREAM-level close code carried in StreamClose and
// ConnectionClose frames. It is independent of the ILP-layer F02/F08/F99
// codes used on Reject packets.
type ErrorCode uint8

const (
	NoError ErrorCode = iota
	InternalError
	EndpointBusy
	ApplicationError
)

// Frame is the smallest unit of STREAM semantics. Exactly one of the
// typed fields is meaningful, selected by Type.
type Frame struct {
	Type FrameType `cbor:"0,keyasint"`

	StreamMoney          *StreamMoneyFrame          `cbor:"1,keyasint,omitempty"`
	StreamData           *StreamDataFrame           `cbor:"2,keyasint,omitempty"`
	StreamClose          *StreamCloseFrame          `cbor:"3,keyasint,omitempty"`
	ConnectionClose      *ConnectionCloseFrame      `cbor:"4,keyasint,omitempty"`
	ConnectionNewAddress *ConnectionNewAddressFrame `cbor:"5,keyasint,omitempty"`

	// RawPayload preserves an unrecognized frame's encoded bytes.
	RawPayload []byte `cbor:"15,keyasint,omitempty"`
}

// StreamMoneyFrame moves a proportional share of a Prepare's amount to a
// stream.
type StreamMoneyFrame struct {
	StreamID uint64 `cbor:"0,keyasint"`
	Shares   uint64 `cbor:"1,keyasint"`
}

// StreamDataFrame delivers bytes at an absolute offset within a stream's
// byte sequence, so out-of-order packets can still be reassembled.
type StreamDataFrame struct {
	StreamID uint64 `cbor:"0,keyasint"`
	Offset   uint64 `cbor:"1,keyasint"`
	Data     []byte `cbor:"2,keyasint"`
}

// StreamCloseFrame closes one stream.
type StreamCloseFrame struct {
	StreamID uint64    `cbor:"0,keyasint"`
	Code     ErrorCode `cbor:"1,keyasint"`
	Message  string    `cbor:"2,keyasint,omitempty"`
}

// ConnectionCloseFrame begins or acknowledges the connection close
// handshake.
type ConnectionCloseFrame struct {
	Code    ErrorCode `cbor:"0,keyasint"`
	Message string    `cbor:"1,keyasint,omitempty"`
}

// ConnectionNewAddressFrame advertises the sender's ILP address; this is
// how a server learns where to address its own packets.
type ConnectionNewAddressFrame struct {
	SourceAccount string `cbor:"0,keyasint"`
}

// NewStreamMoneyFrame, NewStreamDataFrame, etc. are the constructors the
// connection package uses to build outgoing frames.

func NewStreamMoneyFrame(streamID, shares uint64) Frame {
	return Frame{Type: FrameStreamMoney, StreamMoney: &StreamMoneyFrame{StreamID: streamID, Shares: shares}}
}

func NewStreamDataFrame(streamID, offset uint64, data []byte) Frame {
	return Frame{Type: FrameStreamData, StreamData: &StreamDataFrame{StreamID: streamID, Offset: offset, Data: data}}
}

func NewStreamCloseFrame(streamID uint64, code ErrorCode, message string) Frame {
	return Frame{Type: FrameStreamClose, StreamClose: &StreamCloseFrame{StreamID: streamID, Code: code, Message: message}}
}

func NewConnectionCloseFrame(code ErrorCode, message string) Frame {
	return Frame{Type: FrameConnectionClose, ConnectionClose: &ConnectionCloseFrame{Code: code, Message: message}}
}

func NewConnectionNewAddressFrame(sourceAccount string) Frame {
	return Frame{Type: FrameConnectionNewAddress, ConnectionNewAddress: &ConnectionNewAddressFrame{SourceAccount: sourceAccount}}
}
