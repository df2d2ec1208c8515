package connection

import "fmt"

// ProtocolError indicates a Fulfill or Reject carried a STREAM packet
// whose sequence number or ilp_packet_type didn't match the request it
// responded to. It is logged and the response's contents are discarded;
// it never reaches the application.
type ProtocolError struct {
	RequestID uint32
	Reason    string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("connection: protocol error on request %d: %s", e.RequestID, e.Reason)
}

func newProtocolError(requestID uint32, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{RequestID: requestID, Reason: fmt.Sprintf(format, args...)}
}
