// Package pluginbridge turns a duplex ILP transport into the pair of
// unbounded channels the connection package's actor loop selects on,
// forwarding between them on their own goroutines.
package pluginbridge

import (
	"errors"
	"sync"

	"gopkg.in/eapache/channels.v1"
	"gopkg.in/op/go-logging.v1"

	"github.com/interledger-go/ilp-stream/ilppacket"
	"github.com/interledger-go/ilp-stream/internal/worker"
)

var log = logging.MustGetLogger("pluginbridge")

// ErrClosed is returned by Send/Recv once the bridge or underlying
// Plugin has been torn down.
var ErrClosed = errors.New("pluginbridge: closed")

// Request pairs an ILP packet with the request ID the transport uses to
// correlate a Fulfill/Reject with the Prepare that caused it.
type Request struct {
	RequestID uint32
	Packet    ilppacket.Packet
}

// Plugin is the minimal duplex transport a Bridge forwards over: send one
// request, receive one request, at a time, blocking until one is
// available or the transport is gone. A cborplugin-backed implementation,
// a raw net.Conn framer, or an in-memory pair (see InMemory) all satisfy
// this.
type Plugin interface {
	Send(Request) error
	Recv() (Request, error)
	Close() error
}

// Bridge exposes a Plugin as two unbounded queues: Send enqueues a
// request for transmission without ever blocking or applying
// backpressure, and Incoming is where requests that arrived from the
// peer are read.
type Bridge struct {
	plugin Plugin

	outgoing *channels.InfiniteChannel
	incoming *channels.InfiniteChannel

	// incomingCh is the typed hand-off the connection actor reads; the
	// unboundedness lives in the InfiniteChannel feeding it.
	incomingCh chan Request

	// The outgoing forwarder gets its own worker so Close can wait for
	// it to drain queued requests before tearing down the plugin, which
	// is what unblocks the incoming forwarder.
	outWorker *worker.Worker
	inWorker  *worker.Worker

	mu       sync.Mutex
	closed   bool
	closeErr error
}

// New starts forwarding goroutines around plugin and returns the bridge
// immediately; callers enqueue with Send and drain Incoming().
func New(plugin Plugin) *Bridge {
	b := &Bridge{
		plugin:     plugin,
		outgoing:   channels.NewInfiniteChannel(),
		incoming:   channels.NewInfiniteChannel(),
		incomingCh: make(chan Request),
		outWorker:  worker.New(),
		inWorker:   worker.New(),
	}
	b.outWorker.Go(b.forwardOutgoing)
	b.inWorker.Go(b.forwardIncoming)
	b.inWorker.Go(b.pumpIncoming)
	return b
}

// Send enqueues a request for transmission. It never blocks and never
// applies backpressure; once the bridge is closed it silently discards,
// since nothing can be transmitted anymore.
func (b *Bridge) Send(req Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.outgoing.In() <- req
}

// Incoming is the channel requests received from the plugin are
// delivered on. It is closed once the plugin's inbound side ends.
func (b *Bridge) Incoming() <-chan Request {
	return b.incomingCh
}

// Close drains and stops the outgoing forwarder, then closes the
// underlying Plugin, which in turn unblocks and stops the incoming
// forwarder. Safe to call more than once.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		err := b.closeErr
		b.mu.Unlock()
		return err
	}
	b.closed = true
	b.outgoing.Close()
	b.mu.Unlock()

	b.outWorker.Wait()
	err := b.plugin.Close()
	b.inWorker.Halt()
	b.inWorker.Wait()

	b.mu.Lock()
	b.closeErr = err
	b.mu.Unlock()
	return err
}

// forwardOutgoing drains the outgoing queue into the plugin, stopping
// once the queue is closed and empty or the plugin itself errors out.
// Close closes the queue, so everything enqueued just ahead of a close
// still reaches the plugin before teardown proceeds.
func (b *Bridge) forwardOutgoing() {
	for v := range b.outgoing.Out() {
		req := v.(Request)
		if err := b.plugin.Send(req); err != nil {
			log.Errorf("error forwarding request to plugin: %v", err)
			return
		}
	}
}

// forwardIncoming reads requests from the plugin into the unbounded
// incoming queue, stopping on a Recv error (the plugin connection was
// lost or closed). It closes the queue on exit so pumpIncoming can
// finish delivering what's buffered and then end Incoming().
func (b *Bridge) forwardIncoming() {
	defer b.incoming.Close()
	for {
		req, err := b.plugin.Recv()
		if err != nil {
			log.Debugf("finished forwarding packets from plugin: %v", err)
			return
		}
		b.incoming.In() <- req
	}
}

// pumpIncoming hands buffered incoming requests to the connection actor
// one at a time, ending Incoming() when the queue closes or the bridge
// halts.
func (b *Bridge) pumpIncoming() {
	defer close(b.incomingCh)
	for v := range b.incoming.Out() {
		select {
		case <-b.inWorker.HaltCh():
			return
		case b.incomingCh <- v.(Request):
		}
	}
}
