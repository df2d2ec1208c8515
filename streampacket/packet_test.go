package streampacket

import (
	"testing"

	"github.com/interledger-go/ilp-stream/ilppacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamPacketRoundTrip(t *testing.T) {
	p := &StreamPacket{
		SequenceNumber: 4,
		IlpPacketType:  ilppacket.TypePrepare,
		PrepareAmount:  500,
		Frames: []Frame{
			NewStreamMoneyFrame(1, 100),
			NewStreamDataFrame(1, 0, []byte("hello")),
			NewConnectionNewAddressFrame("example.alice.abcdef"),
		},
	}

	encoded, err := p.Encode()
	require.NoError(t, err)
	assert.Equal(t, protocolVersion, encoded[0])

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, p.SequenceNumber, decoded.SequenceNumber)
	assert.Equal(t, p.IlpPacketType, decoded.IlpPacketType)
	assert.Equal(t, p.PrepareAmount, decoded.PrepareAmount)
	require.Len(t, decoded.Frames, 3)

	assert.Equal(t, FrameStreamMoney, decoded.Frames[0].Type)
	assert.Equal(t, uint64(1), decoded.Frames[0].StreamMoney.StreamID)
	assert.Equal(t, uint64(100), decoded.Frames[0].StreamMoney.Shares)

	assert.Equal(t, FrameStreamData, decoded.Frames[1].Type)
	assert.Equal(t, []byte("hello"), decoded.Frames[1].StreamData.Data)

	assert.Equal(t, FrameConnectionNewAddress, decoded.Frames[2].Type)
	assert.Equal(t, "example.alice.abcdef", decoded.Frames[2].ConnectionNewAddress.SourceAccount)
}

func TestStreamPacketRejectsWrongVersion(t *testing.T) {
	p := &StreamPacket{IlpPacketType: ilppacket.TypePrepare}
	encoded, err := p.Encode()
	require.NoError(t, err)
	encoded[0] = 0x01

	_, err = Decode(encoded)
	assert.Error(t, err)
}

func TestStreamPacketRejectsEmpty(t *testing.T) {
	_, err := Decode(nil)
	assert.Error(t, err)
}

// Unknown frame types round-trip via RawPayload rather than failing to
// decode, so an older peer doesn't choke on a newer one's extension frame.
func TestUnknownFrameSurvivesRoundTrip(t *testing.T) {
	p := &StreamPacket{
		IlpPacketType: ilppacket.TypePrepare,
		Frames: []Frame{
			{Type: FrameUnknown, RawPayload: []byte{0x01, 0x02, 0x03}},
		},
	}
	encoded, err := p.Encode()
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Len(t, decoded.Frames, 1)
	assert.Equal(t, FrameUnknown, decoded.Frames[0].Type)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, decoded.Frames[0].RawPayload)
}
