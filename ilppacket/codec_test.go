package ilppacket

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// dataFixture is the 257-byte payload the reference vectors below carry,
// sized to force a two-byte var-octet-string length prefix.
func dataFixture(t *testing.T) []byte {
	return mustDecodeHex(t, "6c99f6a969473028ef46e09b471581c915b6d5496329c1e3a1c2748d7422a7b"+
		"dcc798e286cabe3197cccfc213e930b8dba57c7abdf2d1f3b2511689de4f0ef"+
		"f441f53da0feffd23249a355b26c3bd0256d5122e7ccdf159fd6cb083dd73cb"+
		"29397967871becd04890492119c5e3e6b024be35de26466f60c16d90a21054f"+
		"b13800120cfb85b0df76e50aacd68526fd043026d3d02010c671987a1f6501b"+
		"5085f0d7d5897624be5862f98c01df65792970181a87d0f3c586a0ca6bd89dc"+
		"372c45eef5b38a6307b16f1d7d31e8d92e5982c9dd2986eaad581f212d43da9"+
		"c5cb7b948fc18914be90219709d0c26d3b5f4ad879d8494bb3aebfe612ec540"+
		"41e4a380f0")
}

func condition32(t *testing.T) [32]byte {
	b := mustDecodeHex(t, "117b434f1a54e9044f4f54923b2cff9e4a6d420ae281d5025d7bb040c4b4c04a")
	var out [32]byte
	copy(out[:], b)
	return out
}

func TestPrepareRoundTrip(t *testing.T) {
	data := dataFixture(t)
	expiresAt := time.Date(2018, 6, 7, 20, 48, 42, 483_000_000, time.UTC)

	prepare := &Prepare{
		Amount:             107,
		ExpiresAt:          expiresAt,
		ExecutionCondition: condition32(t),
		Destination:        "example.alice",
		Data:               data,
	}

	encoded := prepare.Encode()
	require.Equal(t, byte(TypePrepare), encoded[0])

	wantHex := "0c82014b000000000000006b323031383036303732303438343234383" +
		"3117b434f1a54e9044f4f54923b2cff9e4a6d420ae281d5025d7bb040c4b4c04a" +
		"0d6578616d706c652e616c696365" + "820101" + hex.EncodeToString(data)
	assert.Equal(t, wantHex, hex.EncodeToString(encoded))

	decoded, err := DecodePrepare(encoded)
	require.NoError(t, err)
	assert.Equal(t, prepare.Amount, decoded.Amount)
	assert.Equal(t, prepare.Destination, decoded.Destination)
	assert.Equal(t, prepare.ExecutionCondition, decoded.ExecutionCondition)
	assert.Equal(t, prepare.Data, decoded.Data)
	assert.True(t, prepare.ExpiresAt.Equal(decoded.ExpiresAt))

	generic, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, TypePrepare, generic.Type())
}

func TestFulfillRoundTrip(t *testing.T) {
	data := dataFixture(t)
	fulfill := &Fulfill{Fulfillment: condition32(t), Data: data}

	encoded := fulfill.Encode()
	require.Equal(t, byte(TypeFulfill), encoded[0])

	decoded, err := DecodeFulfill(encoded)
	require.NoError(t, err)
	assert.Equal(t, fulfill.Fulfillment, decoded.Fulfillment)
	assert.Equal(t, fulfill.Data, decoded.Data)
}

// Field order on the wire is code, triggered_by, message, data.
func TestRejectRoundTrip(t *testing.T) {
	data := dataFixture(t)
	reject := &Reject{
		Code:        "F99",
		Message:     "Some error",
		TriggeredBy: "example.connector",
		Data:        data,
	}

	encoded := reject.Encode()
	require.Equal(t, byte(TypeReject), encoded[0])

	wantHex := "0e" + "820124" + "463939" +
		"11" + hex.EncodeToString([]byte("example.connector")) +
		"0a" + hex.EncodeToString([]byte("Some error")) +
		"820101" + hex.EncodeToString(data)
	assert.Equal(t, wantHex, hex.EncodeToString(encoded))

	decoded, err := DecodeReject(encoded)
	require.NoError(t, err)
	assert.Equal(t, reject.Code, decoded.Code)
	assert.Equal(t, reject.Message, decoded.Message)
	assert.Equal(t, reject.TriggeredBy, decoded.TriggeredBy)
	assert.Equal(t, reject.Data, decoded.Data)
}

func TestParseF08Error(t *testing.T) {
	data := make([]byte, 16)
	for i := 0; i < 8; i++ {
		data[7-i] = byte(100 >> (8 * i))
	}
	for i := 0; i < 8; i++ {
		data[15-i] = byte(uint64(1000) >> (8 * i))
	}

	details, ok := ParseF08Error(&Reject{Code: "F08", Data: data})
	require.True(t, ok)
	assert.Equal(t, uint64(100), details.AmountReceived)
	assert.Equal(t, uint64(1000), details.MaxAmount)

	_, ok = ParseF08Error(&Reject{Code: "F07", Data: data})
	assert.False(t, ok)

	_, ok = ParseF08Error(&Reject{Code: "F08", Data: make([]byte, 8)})
	assert.False(t, ok)
}

func TestTimestampWidthRejected(t *testing.T) {
	valid := []byte("20180607204842483")[:17]
	_, err := parseInterledgerTimestamp(string(valid) + "9")
	require.Error(t, err)

	_, err = parseInterledgerTimestamp(string(valid[:16]))
	require.Error(t, err)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte{0xff, 0x00})
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrInvalidPacket, pe.Kind)
}

func TestDecodeWrongType(t *testing.T) {
	fulfill := &Fulfill{Fulfillment: condition32(t), Data: []byte("x")}
	_, err := DecodePrepare(fulfill.Encode())
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrWrongType, pe.Kind)
}

func TestConditionAndFulfillmentLengthEnforced(t *testing.T) {
	// A truncated condition field must fail to decode rather than
	// silently zero-padding.
	prepare := &Prepare{
		Amount:             1,
		ExpiresAt:          time.Now(),
		ExecutionCondition: condition32(t),
		Destination:        "example.bob",
		Data:               []byte{},
	}
	encoded := prepare.Encode()
	truncated := encoded[:len(encoded)-40]
	_, err := DecodePrepare(truncated)
	require.Error(t, err)
}
