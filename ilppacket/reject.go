package ilppacket

// RejectCodeLen is the fixed width of a Reject error code (e.g. "F08").
const RejectCodeLen = 3

// Reject is the ILP Reject packet: a final, non-conditional failure
// response to a Prepare.
//
// Wire field order is code, triggered_by, message, data — not the
// code/message/triggered_by order a reader might assume by analogy with
// other protocols.
type Reject struct {
	Code        string
	TriggeredBy string
	Message     string
	Data        []byte
}

// Type implements Packet.
func (r *Reject) Type() PacketType { return TypeReject }

// Encode serializes r to its wire envelope.
func (r *Reject) Encode() []byte {
	body := make([]byte, 0, RejectCodeLen+len(r.TriggeredBy)+len(r.Message)+len(r.Data)+8)
	body = append(body, []byte(r.Code)...)
	body = writeVarOctetString(body, []byte(r.TriggeredBy))
	body = writeVarOctetString(body, []byte(r.Message))
	body = writeVarOctetString(body, r.Data)
	return serializeEnvelope(TypeReject, body)
}

// DecodeReject parses a Reject envelope.
func DecodeReject(data []byte) (*Reject, error) {
	t, contents, err := deserializeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if t != TypeReject {
		return nil, wrongType("Reject")
	}
	return decodeRejectBody(contents)
}

func decodeRejectBody(contents []byte) (*Reject, error) {
	r := newReader(contents)

	codeBytes, err := r.readN(RejectCodeLen, "code")
	if err != nil {
		return nil, err
	}
	if !isValidUTF8(codeBytes) {
		return nil, invalidUTF8("code")
	}

	triggeredByBytes, err := r.readVarOctetString("triggered_by")
	if err != nil {
		return nil, err
	}
	if !isValidUTF8(triggeredByBytes) {
		return nil, invalidUTF8("triggered_by")
	}

	messageBytes, err := r.readVarOctetString("message")
	if err != nil {
		return nil, err
	}
	if !isValidUTF8(messageBytes) {
		return nil, invalidUTF8("message")
	}

	data, err := r.readVarOctetString("data")
	if err != nil {
		return nil, err
	}

	return &Reject{
		Code:        string(codeBytes),
		TriggeredBy: string(triggeredByBytes),
		Message:     string(messageBytes),
		Data:        data,
	}, nil
}
