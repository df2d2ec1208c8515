// Package ilppacket implements the ILP packet codec: the binary envelope
// format carrying Prepare, Fulfill and Reject packets between STREAM
// peers.
package ilppacket

import "fmt"

// ParseError is returned by Decode and the per-variant parsers whenever
// the wire bytes cannot be interpreted as a well-formed ILP packet.
type ParseError struct {
	Kind   ParseErrorKind
	Reason string
}

// ParseErrorKind classifies a ParseError.
type ParseErrorKind int

const (
	// ErrInvalidPacket covers malformed lengths, bad UTF-8, short
	// buffers and unknown packet types.
	ErrInvalidPacket ParseErrorKind = iota
	// ErrWrongType is returned when a variant parser (e.g. decodePrepare)
	// is invoked against an envelope of a different type.
	ErrWrongType
	// ErrUTF8 covers invalid UTF-8 in a text field.
	ErrUTF8
	// ErrIO covers short reads / truncated buffers.
	ErrIO
	// ErrTimestamp covers a malformed expires_at timestamp.
	ErrTimestamp
)

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrWrongType:
		return fmt.Sprintf("ilppacket: wrong type: %s", e.Reason)
	case ErrUTF8:
		return fmt.Sprintf("ilppacket: invalid utf8: %s", e.Reason)
	case ErrIO:
		return fmt.Sprintf("ilppacket: truncated packet: %s", e.Reason)
	case ErrTimestamp:
		return fmt.Sprintf("ilppacket: invalid timestamp: %s", e.Reason)
	default:
		return fmt.Sprintf("ilppacket: invalid packet: %s", e.Reason)
	}
}

func invalidPacket(format string, args ...interface{}) *ParseError {
	return &ParseError{Kind: ErrInvalidPacket, Reason: fmt.Sprintf(format, args...)}
}

func wrongType(expected string) *ParseError {
	return &ParseError{Kind: ErrWrongType, Reason: "attempted to decode as " + expected}
}

func invalidUTF8(field string) *ParseError {
	return &ParseError{Kind: ErrUTF8, Reason: field + " is not valid utf8"}
}

func shortBuffer(field string) *ParseError {
	return &ParseError{Kind: ErrIO, Reason: "short buffer reading " + field}
}

func badTimestamp(reason string) *ParseError {
	return &ParseError{Kind: ErrTimestamp, Reason: reason}
}
