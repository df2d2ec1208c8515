package ilppacket

import (
	"encoding/binary"
	"time"
)

// ConditionLen is the fixed width of an execution condition / fulfillment.
const ConditionLen = 32

// Prepare is the ILP Prepare packet: a conditional payment commitment.
type Prepare struct {
	Amount             uint64
	ExpiresAt          time.Time
	ExecutionCondition [ConditionLen]byte
	Destination        string
	Data               []byte
}

// Type implements Packet.
func (p *Prepare) Type() PacketType { return TypePrepare }

// Encode serializes p to its wire envelope.
func (p *Prepare) Encode() []byte {
	body := make([]byte, 0, 8+interledgerTimestampLen+ConditionLen+len(p.Destination)+len(p.Data)+8)
	body = binary.BigEndian.AppendUint64(body, p.Amount)
	body = append(body, []byte(formatInterledgerTimestamp(p.ExpiresAt))...)
	body = append(body, p.ExecutionCondition[:]...)
	body = writeVarOctetString(body, []byte(p.Destination))
	body = writeVarOctetString(body, p.Data)
	return serializeEnvelope(TypePrepare, body)
}

// DecodePrepare parses a Prepare envelope. It returns ErrWrongType if the
// envelope's tag is not TypePrepare.
func DecodePrepare(data []byte) (*Prepare, error) {
	t, contents, err := deserializeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if t != TypePrepare {
		return nil, wrongType("Prepare")
	}
	return decodePrepareBody(contents)
}

func decodePrepareBody(contents []byte) (*Prepare, error) {
	r := newReader(contents)

	amount, err := r.readUint64("amount")
	if err != nil {
		return nil, err
	}

	tsBytes, err := r.readN(interledgerTimestampLen, "expires_at")
	if err != nil {
		return nil, err
	}
	expiresAt, err := parseInterledgerTimestamp(string(tsBytes))
	if err != nil {
		return nil, err
	}

	conditionBytes, err := r.readN(ConditionLen, "execution_condition")
	if err != nil {
		return nil, err
	}
	var condition [ConditionLen]byte
	copy(condition[:], conditionBytes)

	destBytes, err := r.readVarOctetString("destination")
	if err != nil {
		return nil, err
	}
	if !isValidUTF8(destBytes) {
		return nil, invalidUTF8("destination")
	}

	data, err := r.readVarOctetString("data")
	if err != nil {
		return nil, err
	}

	return &Prepare{
		Amount:             amount,
		ExpiresAt:          expiresAt,
		ExecutionCondition: condition,
		Destination:        string(destBytes),
		Data:               data,
	}, nil
}
