package ilppacket

// Fulfill is the ILP Fulfill packet: proof that a Prepare's condition has
// been met.
type Fulfill struct {
	Fulfillment [ConditionLen]byte
	Data        []byte
}

// Type implements Packet.
func (f *Fulfill) Type() PacketType { return TypeFulfill }

// Encode serializes f to its wire envelope.
func (f *Fulfill) Encode() []byte {
	body := make([]byte, 0, ConditionLen+len(f.Data)+4)
	body = append(body, f.Fulfillment[:]...)
	body = writeVarOctetString(body, f.Data)
	return serializeEnvelope(TypeFulfill, body)
}

// DecodeFulfill parses a Fulfill envelope.
func DecodeFulfill(data []byte) (*Fulfill, error) {
	t, contents, err := deserializeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if t != TypeFulfill {
		return nil, wrongType("Fulfill")
	}
	return decodeFulfillBody(contents)
}

func decodeFulfillBody(contents []byte) (*Fulfill, error) {
	r := newReader(contents)

	fulfillmentBytes, err := r.readN(ConditionLen, "fulfillment")
	if err != nil {
		return nil, err
	}
	var fulfillment [ConditionLen]byte
	copy(fulfillment[:], fulfillmentBytes)

	data, err := r.readVarOctetString("data")
	if err != nil {
		return nil, err
	}

	return &Fulfill{Fulfillment: fulfillment, Data: data}, nil
}
