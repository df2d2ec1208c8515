package connection

import (
	"sync"

	"github.com/interledger-go/ilp-stream/streamio"
)

// connHandle is the small back-reference a Stream needs into its owning
// connection: just enough to prod the send driver and check liveness,
// not a strong reference to the whole Conn.
type connHandle interface {
	WakeSend()
	IsClosed() bool
}

// Stream is the application-visible handle for one multiplexed stream:
// a money side and a data side, each independently buffered, plus the
// closing/closed lifecycle.
type Stream struct {
	ID uint64

	Money *streamio.MoneyStream
	Data  *streamio.DataStream

	mu      sync.Mutex
	closing bool
	closed  bool

	conn connHandle
}

func newStream(id uint64, conn connHandle) *Stream {
	return &Stream{
		ID:    id,
		Money: streamio.NewMoneyStream(),
		Data:  streamio.NewDataStream(),
		conn:  conn,
	}
}

// SetSendMax raises or lowers how much this stream should send in total
// and wakes the connection's send driver so it isn't stuck waiting for
// an unrelated event before the new money goes out.
func (s *Stream) SetSendMax(max uint64) {
	s.Money.SetSendMax(max)
	s.conn.WakeSend()
}

// Write buffers bytes to send on this stream and wakes the send driver.
func (s *Stream) Write(p []byte) (int, error) {
	n, err := s.Data.Write(p)
	s.conn.WakeSend()
	return n, err
}

// Read drains reassembled incoming bytes.
func (s *Stream) Read(p []byte) (int, error) {
	return s.Data.Read(p)
}

// Close marks the stream closing; the next send cycle emits a
// StreamClose frame for it.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.conn.WakeSend()
	return nil
}

// IsClosing reports whether Close has been called but the StreamClose
// frame hasn't gone out yet.
func (s *Stream) IsClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// IsClosed reports whether this stream has been fully closed, locally or
// by the peer.
func (s *Stream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// setClosedLocal transitions the stream to closed and wakes anything
// polling its money/data buffers so they observe end-of-stream. Called
// by the connection actor, which already holds its own lock; this
// method only touches the stream's own lock.
func (s *Stream) setClosedLocal() {
	s.mu.Lock()
	s.closing = false
	s.closed = true
	s.mu.Unlock()
	s.Money.SetClosed()
	s.Data.SetClosed()
}
