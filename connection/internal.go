package connection

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/interledger-go/ilp-stream/ilpcrypto"
	"github.com/interledger-go/ilp-stream/ilppacket"
	"github.com/interledger-go/ilp-stream/ilprand"
	"github.com/interledger-go/ilp-stream/internal/worker"
	"github.com/interledger-go/ilp-stream/pluginbridge"
	"github.com/interledger-go/ilp-stream/streampacket"
)

// prepareExpiry is the wall-clock window every outgoing Prepare is given.
const prepareExpiry = 30 * time.Second

// maxOutgoingDataPerFrame bounds how much of a stream's buffered data one
// StreamData frame carries. Non-binding cap.
const maxOutgoingDataPerFrame = 1_000_000_000

// pendingEntry is what `pending` remembers about an outstanding Prepare:
// the amount it carried and the plaintext STREAM packet, so a later
// Fulfill/Reject can be reconciled against it.
type pendingEntry struct {
	amount uint64
	packet *streampacket.StreamPacket
}

// Conn is the single-actor connection state machine; every field below
// is guarded by mu.
type Conn struct {
	mu sync.Mutex

	state              State
	isServer           bool
	sharedSecret       []byte
	sourceAccount      string
	destinationAccount string

	nextStreamID       uint64
	nextPacketSequence uint64

	streams        map[uint64]*Stream
	closedStreams  map[uint64]struct{}
	pending        map[uint32]pendingEntry
	newStreams     []uint64
	framesToResend []streampacket.Frame

	bridge *pluginbridge.Bridge
	w      *worker.Worker

	newStreamCh chan *Stream
	sendWakeCh  chan struct{}
	doneCh      chan struct{}
	doneOnce    sync.Once

	log *log.Logger
}

func newConn(bridge *pluginbridge.Bridge, sharedSecret []byte, sourceAccount, destinationAccount string, isServer bool) *Conn {
	nextStreamID := uint64(1)
	if isServer {
		nextStreamID = 2
	}

	prefix := "connection"
	if isServer {
		prefix = "connection[server]"
	} else {
		prefix = "connection[client]"
	}

	c := &Conn{
		state:              StateOpen,
		isServer:           isServer,
		sharedSecret:       sharedSecret,
		sourceAccount:      sourceAccount,
		destinationAccount: destinationAccount,
		nextStreamID:       nextStreamID,
		nextPacketSequence: 1,
		streams:            make(map[uint64]*Stream),
		closedStreams:      make(map[uint64]struct{}),
		pending:            make(map[uint32]pendingEntry),
		bridge:             bridge,
		w:                  worker.New(),
		newStreamCh:        make(chan *Stream, 16),
		sendWakeCh:         make(chan struct{}, 1),
		doneCh:             make(chan struct{}),
		log:                log.NewWithOptions(os.Stderr, log.Options{Prefix: prefix}),
	}

	c.w.Go(c.run)

	if !isServer {
		c.mu.Lock()
		c.sendHandshake()
		c.mu.Unlock()
	}

	return c
}

// run is the connection's actor loop: it drains incoming requests and
// reacts to send-wakeups until halted or closed.
func (c *Conn) run() {
	for {
		select {
		case <-c.w.HaltCh():
			return
		case req, ok := <-c.bridge.Incoming():
			if !ok {
				c.mu.Lock()
				c.closeNow()
				c.mu.Unlock()
				return
			}
			c.mu.Lock()
			c.handleIncoming(req)
			c.trySend()
			closed := c.state == StateClosed
			c.mu.Unlock()
			if closed {
				return
			}
		case <-c.sendWakeCh:
			c.mu.Lock()
			c.trySend()
			closed := c.state == StateClosed
			c.mu.Unlock()
			if closed {
				return
			}
		}
	}
}

// WakeSend implements connHandle: it prods the actor loop to run
// trySend soon, without blocking if a wakeup is already pending.
func (c *Conn) WakeSend() {
	select {
	case c.sendWakeCh <- struct{}{}:
	default:
	}
}

// IsClosed implements connHandle.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateClosed
}

// CreateStream allocates the next stream ID this endpoint owns (odd for
// clients, even for servers) and registers it immediately; no network
// round trip is required.
func (c *Conn) CreateStream() *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextStreamID
	c.nextStreamID += 2
	s := newStream(id, c)
	c.streams[id] = s
	c.log.Debugf("created stream %d", id)
	return s
}

// Incoming delivers streams the peer has opened.
func (c *Conn) Incoming() <-chan *Stream {
	return c.newStreamCh
}

// Done is closed once the connection reaches StateClosed.
func (c *Conn) Done() <-chan struct{} {
	return c.doneCh
}

// Close begins the graceful close handshake. The next send cycle emits
// a ConnectionClose frame; the connection fully closes when the peer's
// response to that packet arrives.
func (c *Conn) Close() {
	c.mu.Lock()
	c.setClosing()
	c.mu.Unlock()
	c.WakeSend()
}

// setClosing transitions to Closing and marks every stream closing.
// Caller must hold mu.
func (c *Conn) setClosing() {
	if c.state == StateClosed {
		return
	}
	c.state = StateClosing
	for _, s := range c.streams {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
	}
}

// closeNow finishes the close: state becomes Closed, every stream is
// marked closed, both transport endpoints are closed, and whoever is
// waiting on Incoming()/Done() wakes. Caller must hold mu.
func (c *Conn) closeNow() {
	if c.state == StateClosed {
		return
	}
	c.log.Debugf("closing connection now")
	c.state = StateClosed

	for _, s := range c.streams {
		s.setClosedLocal()
	}

	c.doneOnce.Do(func() { close(c.doneCh) })
	close(c.newStreamCh)

	c.bridge.Close()
	c.w.Halt()
}

// openIfNew registers an incoming stream ID the first time a StreamMoney
// or StreamData frame references it, provided its parity matches the
// peer's allocator and it hasn't already been closed.
func (c *Conn) openIfNew(streamID uint64) {
	if _, ok := c.streams[streamID]; ok {
		return
	}
	if _, ok := c.closedStreams[streamID]; ok {
		return
	}
	peerIsServer := !c.isServer
	peerOwnsID := (streamID%2 == 0) == peerIsServer
	if !peerOwnsID {
		c.log.Warnf("peer referenced stream %d outside its allocator parity, ignoring", streamID)
		return
	}

	c.log.Debugf("got new stream %d", streamID)
	s := newStream(streamID, c)
	c.streams[streamID] = s
	c.newStreams = append(c.newStreams, streamID)
}

// drainNewStreams pushes any queued new stream IDs onto the Incoming()
// channel. Caller must hold mu.
func (c *Conn) drainNewStreams() {
	for len(c.newStreams) > 0 {
		id := c.newStreams[0]
		c.newStreams = c.newStreams[1:]
		s := c.streams[id]
		select {
		case c.newStreamCh <- s:
		default:
			// Incoming() isn't being drained fast enough; re-queue and
			// stop for now rather than blocking the actor loop.
			c.newStreams = append([]uint64{id}, c.newStreams...)
			return
		}
	}
}

// trySend is the outgoing driver: it aggregates ready money, data, and
// close frames across all streams into a single Prepare. Idempotent and
// safe to call spuriously. Caller must hold mu.
func (c *Conn) trySend() {
	if c.state == StateClosed {
		return
	}

	var outgoingAmount uint64
	frames := append([]streampacket.Frame{}, c.framesToResend...)
	c.framesToResend = nil

	ids := make([]uint64, 0, len(c.streams))
	for id := range c.streams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var toClose []uint64
	for _, id := range ids {
		s := c.streams[id]

		amount := s.Money.AvailableToSend()
		if amount > 0 {
			s.Money.AddToPending(amount)
			outgoingAmount += amount
			frames = append(frames, streampacket.NewStreamMoneyFrame(id, amount))
		}

		if data, offset, ok := s.Data.GetOutgoingData(maxOutgoingDataPerFrame); ok {
			frames = append(frames, streampacket.NewStreamDataFrame(id, offset, data))
			s.Data.MarkSent(len(data))
		}

		if s.IsClosing() {
			toClose = append(toClose, id)
		}
	}

	if c.state == StateClosing {
		frames = append(frames, streampacket.NewConnectionCloseFrame(streampacket.NoError, ""))
		c.state = StateCloseSent
	}

	for _, id := range toClose {
		frames = append(frames, streampacket.NewStreamCloseFrame(id, streampacket.NoError, ""))
		c.streams[id].setClosedLocal()
		delete(c.streams, id)
		c.closedStreams[id] = struct{}{}
		c.log.Debugf("removed stream %d", id)
	}

	c.drainNewStreams()

	if len(frames) == 0 {
		return
	}

	sequence := c.nextPacketSequence
	c.nextPacketSequence++

	sp := &streampacket.StreamPacket{
		SequenceNumber: sequence,
		IlpPacketType:  ilppacket.TypePrepare,
		PrepareAmount:  0,
		Frames:         frames,
	}

	prepare, requestID, err := c.buildPrepare(sp, outgoingAmount)
	if err != nil {
		c.log.Errorf("failed to build outgoing prepare: %v", err)
		return
	}

	c.pending[requestID] = pendingEntry{amount: outgoingAmount, packet: sp}

	c.log.Debugf("sending outgoing request %d with stream packet sequence %d", requestID, sequence)
	c.send(requestID, prepare)
}

// buildPrepare encrypts sp and derives the condition/request_id for an
// outgoing Prepare carrying amount.
func (c *Conn) buildPrepare(sp *streampacket.StreamPacket, amount uint64) (*ilppacket.Prepare, uint32, error) {
	body, err := sp.Encode()
	if err != nil {
		return nil, 0, err
	}
	encrypted, err := ilpcrypto.Encrypt(c.sharedSecret, body)
	if err != nil {
		return nil, 0, err
	}
	condition := ilpcrypto.GenerateCondition(c.sharedSecret, encrypted)

	prepare := &ilppacket.Prepare{
		Amount:             amount,
		ExpiresAt:          time.Now().Add(prepareExpiry),
		ExecutionCondition: condition,
		Destination:        c.destinationAccount,
		Data:               encrypted,
	}
	return prepare, ilprand.Uint32(), nil
}

// send enqueues a request on the bridge's unbounded outgoing queue.
// Enqueueing never blocks and never fails, so anything recorded in
// pending before this call will eventually see a Fulfill or Reject (or
// the connection closes).
func (c *Conn) send(requestID uint32, packet ilppacket.Packet) {
	c.bridge.Send(pluginbridge.Request{RequestID: requestID, Packet: packet})
}

// sendHandshake sends the client's unfulfillable handshake Prepare,
// advertising sourceAccount to the server. Caller must hold mu.
func (c *Conn) sendHandshake() {
	sequence := c.nextPacketSequence
	c.nextPacketSequence++

	sp := &streampacket.StreamPacket{
		SequenceNumber: sequence,
		IlpPacketType:  ilppacket.TypePrepare,
		PrepareAmount:  0,
		Frames:         []streampacket.Frame{streampacket.NewConnectionNewAddressFrame(c.sourceAccount)},
	}
	c.sendUnfulfillablePrepare(sp)
}

// sendUnfulfillablePrepare emits sp as a Prepare with a random condition
// that deliberately won't match any fulfillment; it is never entered
// into pending and its inevitable Reject is ignored.
func (c *Conn) sendUnfulfillablePrepare(sp *streampacket.StreamPacket) {
	body, err := sp.Encode()
	if err != nil {
		c.log.Errorf("failed to encode handshake packet: %v", err)
		return
	}
	encrypted, err := ilpcrypto.Encrypt(c.sharedSecret, body)
	if err != nil {
		c.log.Errorf("failed to encrypt handshake packet: %v", err)
		return
	}

	prepare := &ilppacket.Prepare{
		Amount:             0,
		ExpiresAt:          time.Now().Add(prepareExpiry),
		ExecutionCondition: ilpcrypto.RandomCondition(),
		Destination:        c.destinationAccount,
		Data:               encrypted,
	}
	c.send(ilprand.Uint32(), prepare)
}
