// Package streamio holds the per-stream buffers the connection state
// machine drains into and fills from: a money side (shares to send,
// amounts received) and a data side (bytes to send, bytes received),
// each with a non-blocking "wake the poller if anyone's listening"
// channel.
package streamio

import "sync"

// MoneyStream tracks how much a single stream wants to send and has
// received: send_max, total_sent, and pending bookkeeping the
// connection package drives directly.
type MoneyStream struct {
	mu sync.Mutex

	sendMax        uint64
	totalSent      uint64
	totalDelivered uint64
	pending        uint64
	totalReceived  uint64
	receiveMax     uint64

	closed bool

	pollCh chan struct{}
}

// NewMoneyStream returns a MoneyStream ready to send up to sendMax and
// accept up to receiveMax.
func NewMoneyStream() *MoneyStream {
	return &MoneyStream{pollCh: make(chan struct{}, 1)}
}

// SetSendMax raises or lowers how much this stream is willing to send in
// total. The application calls this; it never decreases below
// TotalSent().
func (m *MoneyStream) SetSendMax(max uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max < m.totalSent {
		max = m.totalSent
	}
	m.sendMax = max
	m.tryWakePolling()
}

// SetReceiveMax raises or lowers how much this stream will accept before
// the connection starts rejecting incoming money frames for it. A max of
// zero means no limit.
func (m *MoneyStream) SetReceiveMax(max uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiveMax = max
}

// CanReceive reports whether amount more can be accepted without
// exceeding the receive limit.
func (m *MoneyStream) CanReceive(amount uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.receiveMax == 0 {
		return true
	}
	return m.totalReceived+amount <= m.receiveMax
}

// AvailableToSend is the amount this stream can still add to an outgoing
// packet as shares: sendMax minus what's already sent or in flight.
func (m *MoneyStream) AvailableToSend() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0
	}
	committed := m.totalSent + m.pending
	if committed >= m.sendMax {
		return 0
	}
	return m.sendMax - committed
}

// AddToPending reserves amount against sendMax while a Prepare carrying
// it is outstanding.
func (m *MoneyStream) AddToPending(amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending += amount
}

// PendingToSent moves a fulfilled amount from pending into totalSent,
// called when the Prepare carrying it is fulfilled.
func (m *MoneyStream) PendingToSent(amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount > m.pending {
		amount = m.pending
	}
	m.pending -= amount
	m.totalSent += amount
	m.tryWakePolling()
}

// SubtractFromPending releases a reservation when its Prepare is
// rejected instead of fulfilled, so the amount can be retried.
func (m *MoneyStream) SubtractFromPending(amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount > m.pending {
		amount = m.pending
	}
	m.pending -= amount
}

// AddDelivered records how much of a Fulfilled Prepare's total delivered
// amount this stream's share corresponds to, reported by the receiving
// end in the STREAM response packet.
func (m *MoneyStream) AddDelivered(amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalDelivered += amount
	m.tryWakePolling()
}

// TotalDelivered reports the cumulative amount confirmed delivered.
func (m *MoneyStream) TotalDelivered() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalDelivered
}

// AddReceived records money delivered to this stream by an incoming
// StreamMoney frame, once the Prepare carrying it has been fulfilled.
func (m *MoneyStream) AddReceived(amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalReceived += amount
	m.tryWakePolling()
}

// TotalSent, TotalReceived, Pending and SendMax report current state.
func (m *MoneyStream) TotalSent() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalSent
}

func (m *MoneyStream) TotalReceived() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalReceived
}

func (m *MoneyStream) Pending() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

func (m *MoneyStream) SendMax() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendMax
}

func (m *MoneyStream) ReceiveMax() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.receiveMax
}

// SetClosed marks the stream closed so future AvailableToSend calls
// report nothing left to send.
func (m *MoneyStream) SetClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.tryWakePolling()
}

// PollCh is signaled whenever state an application might be blocked
// waiting on (send progress, money received) changes.
func (m *MoneyStream) PollCh() <-chan struct{} {
	return m.pollCh
}

// tryWakePolling sends if someone's listening and drops the wakeup
// otherwise, since the channel is already "pending" in that case.
func (m *MoneyStream) tryWakePolling() {
	select {
	case m.pollCh <- struct{}{}:
	default:
	}
}
