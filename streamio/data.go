package streamio

import (
	"bytes"
	"sort"
	"sync"
)

// pendingChunk is data received out of order, held until the bytes
// before it arrive.
type pendingChunk struct {
	offset uint64
	data   []byte
}

// DataStream buffers a single stream's outgoing bytes (offset-tagged as
// they're drained into StreamData frames) and reassembles incoming bytes
// that may arrive out of order, addressed by the absolute offset each
// StreamData frame carries.
type DataStream struct {
	mu sync.Mutex

	outgoing       bytes.Buffer
	outgoingOffset uint64 // offset of the first unsent byte in outgoing
	sentOffset     uint64 // offset already drained by GetOutgoingData

	incoming       bytes.Buffer
	incomingOffset uint64 // offset of the first unread byte in incoming
	pending        []pendingChunk

	closed bool

	pollCh chan struct{}
}

// NewDataStream returns an empty DataStream.
func NewDataStream() *DataStream {
	return &DataStream{pollCh: make(chan struct{}, 1)}
}

// Write appends application bytes to the outgoing buffer.
func (d *DataStream) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.outgoing.Write(p)
	d.tryWakePolling()
	return n, err
}

// GetOutgoingData returns up to maxLen unsent bytes and the offset they
// start at, or ok=false if there's nothing to send. The caller must call
// MarkSent once the bytes have actually gone out in a Prepare.
func (d *DataStream) GetOutgoingData(maxLen int) (data []byte, offset uint64, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	unsent := d.outgoing.Bytes()[d.sentOffset-d.outgoingOffset:]
	if len(unsent) == 0 {
		return nil, 0, false
	}
	if maxLen > 0 && len(unsent) > maxLen {
		unsent = unsent[:maxLen]
	}
	out := make([]byte, len(unsent))
	copy(out, unsent)
	return out, d.sentOffset, true
}

// MarkSent advances the sent offset once a Prepare carrying that many
// bytes from the outgoing buffer has been dispatched.
func (d *DataStream) MarkSent(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sentOffset += uint64(n)
}

// MarkUnsent rewinds the sent offset when a Prepare carrying those bytes
// is rejected, so the data will be retried.
func (d *DataStream) MarkUnsent(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if uint64(n) > d.sentOffset-d.outgoingOffset {
		n = int(d.sentOffset - d.outgoingOffset)
	}
	d.sentOffset -= uint64(n)
	d.tryWakePolling()
}

// ReleaseSent drops bytes from the outgoing buffer once their delivery is
// confirmed (the Prepare carrying them was fulfilled), so the buffer
// doesn't grow without bound.
func (d *DataStream) ReleaseSent(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outgoing.Next(n)
	d.outgoingOffset += uint64(n)
}

// PushIncomingData accepts bytes for the given absolute offset, buffering
// them out of order if earlier bytes haven't arrived yet, then draining
// whatever contiguous run is now available into the readable buffer.
func (d *DataStream) PushIncomingData(offset uint64, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if offset+uint64(len(data)) <= d.incomingOffset {
		return // fully duplicate
	}
	if offset < d.incomingOffset {
		data = data[d.incomingOffset-offset:]
		offset = d.incomingOffset
	}

	if offset == d.incomingOffset {
		d.incoming.Write(data)
		d.incomingOffset += uint64(len(data))
		d.drainPending()
	} else {
		d.pending = append(d.pending, pendingChunk{offset: offset, data: data})
	}
	d.tryWakePolling()
}

// drainPending applies any buffered out-of-order chunks that are now
// contiguous with incomingOffset. Must be called with mu held.
func (d *DataStream) drainPending() {
	for {
		sort.Slice(d.pending, func(i, j int) bool { return d.pending[i].offset < d.pending[j].offset })
		applied := false
		for i, c := range d.pending {
			if c.offset > d.incomingOffset {
				continue
			}
			end := c.offset + uint64(len(c.data))
			if end <= d.incomingOffset {
				d.pending = append(d.pending[:i], d.pending[i+1:]...)
				applied = true
				break
			}
			chunk := c.data[d.incomingOffset-c.offset:]
			d.incoming.Write(chunk)
			d.incomingOffset += uint64(len(chunk))
			d.pending = append(d.pending[:i], d.pending[i+1:]...)
			applied = true
			break
		}
		if !applied {
			return
		}
	}
}

// Read drains reassembled, in-order incoming bytes into p.
func (d *DataStream) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.incoming.Read(p)
}

// SetClosed marks the stream closed so pollers waiting on incoming data
// wake with io.EOF-equivalent semantics left to the caller.
func (d *DataStream) SetClosed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.tryWakePolling()
}

func (d *DataStream) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// PollCh is signaled whenever outgoing or incoming buffer state changes.
func (d *DataStream) PollCh() <-chan struct{} {
	return d.pollCh
}

func (d *DataStream) tryWakePolling() {
	select {
	case d.pollCh <- struct{}{}:
	default:
	}
}
