package connection

// State is the connection's lifecycle stage.
type State uint8

const (
	// StateOpen is the initial state: both send and receive drivers run
	// normally.
	StateOpen State = iota
	// StateClosing means the application called Close; the next
	// send cycle emits a ConnectionClose frame.
	StateClosing
	// StateCloseSent means a ConnectionClose frame has been sent and the
	// connection is waiting for it to be acknowledged.
	StateCloseSent
	// StateClosed is terminal: the send and receive drivers are no-ops.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateCloseSent:
		return "close-sent"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
