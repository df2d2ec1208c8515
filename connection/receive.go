package connection

import (
	"github.com/interledger-go/ilp-stream/ilpcrypto"
	"github.com/interledger-go/ilp-stream/ilppacket"
	"github.com/interledger-go/ilp-stream/pluginbridge"
	"github.com/interledger-go/ilp-stream/streampacket"
)

// handleIncoming dispatches one request from the incoming channel.
// Caller must hold mu.
func (c *Conn) handleIncoming(req pluginbridge.Request) {
	if c.state == StateClosed {
		return
	}

	switch packet := req.Packet.(type) {
	case *ilppacket.Prepare:
		c.handlePrepare(req.RequestID, packet)
	case *ilppacket.Fulfill:
		c.handleFulfill(req.RequestID, packet)
	case *ilppacket.Reject:
		c.handleReject(req.RequestID, packet)
	}
}

// handlePrepare answers an incoming Prepare: decrypt the STREAM payload,
// open any new streams it references, distribute money and data to
// stream buffers, then respond with Fulfill or Reject depending on
// whether we can derive the execution condition.
func (c *Conn) handlePrepare(requestID uint32, prepare *ilppacket.Prepare) {
	fulfillment := ilpcrypto.GenerateFulfillment(c.sharedSecret, prepare.Data)
	derivedCondition := ilpcrypto.FulfillmentToCondition(fulfillment)
	isFulfillable := derivedCondition == prepare.ExecutionCondition

	streamPacket, err := decryptStreamPacket(c.sharedSecret, prepare.Data)
	if err != nil {
		c.log.Warnf("got Prepare %d with data we cannot parse, rejecting: %v", requestID, err)
		c.send(requestID, &ilppacket.Reject{Code: "F02"})
		return
	}

	for _, frame := range streamPacket.Frames {
		switch frame.Type {
		case streampacket.FrameStreamMoney:
			c.openIfNew(frame.StreamMoney.StreamID)
		case streampacket.FrameStreamData:
			c.openIfNew(frame.StreamData.StreamID)
		case streampacket.FrameConnectionNewAddress:
			c.applyConnectionNewAddress(frame.ConnectionNewAddress)
		}
	}

	var totalShares uint64
	for _, frame := range streamPacket.Frames {
		if frame.Type == streampacket.FrameStreamMoney {
			totalShares += frame.StreamMoney.Shares
		}
	}

	// A stream past its receive limit makes the whole packet
	// unacceptable: the peer gets a Reject and the money stays theirs.
	if isFulfillable && totalShares > 0 {
		for _, frame := range streamPacket.Frames {
			if frame.Type != streampacket.FrameStreamMoney {
				continue
			}
			s, ok := c.streams[frame.StreamMoney.StreamID]
			if !ok {
				continue
			}
			amount := frame.StreamMoney.Shares * prepare.Amount / totalShares
			if !s.Money.CanReceive(amount) {
				c.log.Debugf("stream %d cannot accept %d more, rejecting", s.ID, amount)
				isFulfillable = false
				break
			}
		}
	}

	if isFulfillable && totalShares > 0 {
		for _, frame := range streamPacket.Frames {
			if frame.Type != streampacket.FrameStreamMoney {
				continue
			}
			s, ok := c.streams[frame.StreamMoney.StreamID]
			if !ok {
				continue
			}
			amount := frame.StreamMoney.Shares * prepare.Amount / totalShares
			c.log.Debugf("stream %d received %d", s.ID, amount)
			s.Money.AddReceived(amount)
		}
	}

	c.applyIncomingData(streamPacket)
	c.applyStreamCloses(streamPacket)

	// A ConnectionClose frame is acted on only after we've answered this
	// Prepare: closing first could halt the bridge before the Fulfill/
	// Reject below ever reaches the outgoing channel's drain goroutine.
	peerClosedConnection := false
	for _, frame := range streamPacket.Frames {
		if frame.Type == streampacket.FrameConnectionClose {
			peerClosedConnection = true
			break
		}
	}

	if isFulfillable {
		response := &streampacket.StreamPacket{
			SequenceNumber: streamPacket.SequenceNumber,
			IlpPacketType:  ilppacket.TypeFulfill,
			PrepareAmount:  prepare.Amount,
		}
		encrypted, err := encryptStreamPacket(c.sharedSecret, response)
		if err != nil {
			c.log.Errorf("failed to encrypt fulfill response: %v", err)
			return
		}
		c.log.Debugf("fulfilling request %d", requestID)
		c.send(requestID, &ilppacket.Fulfill{Fulfillment: fulfillment, Data: encrypted})
	} else {
		response := &streampacket.StreamPacket{
			SequenceNumber: streamPacket.SequenceNumber,
			IlpPacketType:  ilppacket.TypeReject,
			PrepareAmount:  prepare.Amount,
		}
		encrypted, err := encryptStreamPacket(c.sharedSecret, response)
		if err != nil {
			c.log.Errorf("failed to encrypt reject response: %v", err)
			return
		}
		c.log.Debugf("rejecting request %d, condition mismatch", requestID)
		c.send(requestID, &ilppacket.Reject{Code: "F99", Data: encrypted})
	}

	if peerClosedConnection {
		c.log.Debugf("remote closed connection")
		c.closeNow()
	}
}

// handleFulfill reconciles a Fulfill against the pending Prepare it
// answers: pending money becomes sent, delivered amounts accumulate,
// and a close handshake we initiated completes.
func (c *Conn) handleFulfill(requestID uint32, fulfill *ilppacket.Fulfill) {
	entry, ok := c.pending[requestID]
	if !ok {
		return
	}
	delete(c.pending, requestID)

	response := c.validateResponse(requestID, fulfill.Data, entry.packet, ilppacket.TypeFulfill)

	var totalDelivered uint64
	if response != nil {
		totalDelivered = response.PrepareAmount
	}

	weSentClose := false
	for _, frame := range entry.packet.Frames {
		switch frame.Type {
		case streampacket.FrameStreamData:
			// Delivery confirmed; the bytes no longer need to be held for
			// retransmission.
			if s, ok := c.streams[frame.StreamData.StreamID]; ok {
				s.Data.ReleaseSent(len(frame.StreamData.Data))
			}
		case streampacket.FrameStreamMoney:
			s, ok := c.streams[frame.StreamMoney.StreamID]
			if !ok {
				continue
			}
			shares := frame.StreamMoney.Shares
			s.Money.PendingToSent(shares)
			if entry.amount > 0 {
				delivered := totalDelivered * shares / entry.amount
				s.Money.AddDelivered(delivered)
			}
		case streampacket.FrameConnectionClose:
			weSentClose = true
		}
	}

	if response != nil {
		c.applyIncomingData(response)
		c.applyConnectionClose(response)
	}

	if weSentClose {
		c.log.Debugf("ConnectionClose frame was acked, closing connection now")
		c.closeNow()
	}
}

// handleReject reconciles a Reject against the pending Prepare it
// answers: pending money is unreserved and retransmittable frames are
// queued for the next send cycle.
func (c *Conn) handleReject(requestID uint32, reject *ilppacket.Reject) {
	entry, ok := c.pending[requestID]
	if !ok {
		return
	}
	delete(c.pending, requestID)

	response := c.validateResponse(requestID, reject.Data, entry.packet, ilppacket.TypeReject)

	for _, frame := range entry.packet.Frames {
		if frame.Type != streampacket.FrameStreamMoney {
			continue
		}
		s, ok := c.streams[frame.StreamMoney.StreamID]
		if !ok {
			continue
		}
		s.Money.SubtractFromPending(frame.StreamMoney.Shares)
	}

	if response != nil {
		c.applyIncomingData(response)
		c.applyConnectionClose(response)
		return
	}

	// No recoverable response: requeue retransmittable frames
	// (StreamData, StreamClose, ConnectionClose) verbatim; StreamMoney is
	// never retransmitted, it was simply unreserved above.
	for _, frame := range entry.packet.Frames {
		switch frame.Type {
		case streampacket.FrameStreamData, streampacket.FrameStreamClose, streampacket.FrameConnectionClose:
			c.framesToResend = append(c.framesToResend, frame)
		}
	}
}

// validateResponse decrypts data as a STREAM packet and checks that its
// sequence and ilp_packet_type match the original request. On mismatch
// or decrypt failure it logs and returns nil; accounting then proceeds
// from the original packet alone.
func (c *Conn) validateResponse(requestID uint32, data []byte, original *streampacket.StreamPacket, wantType ilppacket.PacketType) *streampacket.StreamPacket {
	packet, err := decryptStreamPacket(c.sharedSecret, data)
	if err != nil {
		return nil
	}
	if packet.SequenceNumber != original.SequenceNumber {
		c.log.Warnf("%v", newProtocolError(requestID, "sequence mismatch: got %d want %d", packet.SequenceNumber, original.SequenceNumber))
		return nil
	}
	if packet.IlpPacketType != wantType {
		c.log.Warnf("%v", newProtocolError(requestID, "unexpected ilp_packet_type %v", packet.IlpPacketType))
		return nil
	}
	return packet
}

// applyIncomingData delivers every StreamData frame in packet to its
// stream's buffer, in frame order.
func (c *Conn) applyIncomingData(packet *streampacket.StreamPacket) {
	for _, frame := range packet.Frames {
		if frame.Type != streampacket.FrameStreamData {
			continue
		}
		s, ok := c.streams[frame.StreamData.StreamID]
		if !ok {
			continue
		}
		s.Data.PushIncomingData(frame.StreamData.Offset, frame.StreamData.Data)
	}
}

// applyStreamCloses marks every stream named by a StreamClose frame
// closed locally.
func (c *Conn) applyStreamCloses(packet *streampacket.StreamPacket) {
	for _, frame := range packet.Frames {
		if frame.Type != streampacket.FrameStreamClose {
			continue
		}
		if s, ok := c.streams[frame.StreamClose.StreamID]; ok {
			c.log.Debugf("remote closed stream %d", s.ID)
			s.setClosedLocal()
			delete(c.streams, s.ID)
			c.closedStreams[s.ID] = struct{}{}
		}
	}
}

// applyConnectionNewAddress learns the peer's address the first time a
// server-side connection sees it; a client already knows its destination
// from construction, so this only has an effect before the first
// handshake frame arrives.
func (c *Conn) applyConnectionNewAddress(frame *streampacket.ConnectionNewAddressFrame) {
	if c.destinationAccount != "" {
		return
	}
	c.log.Debugf("learned peer address: %s", frame.SourceAccount)
	c.destinationAccount = frame.SourceAccount
}

// applyConnectionClose closes the connection immediately on any
// ConnectionClose frame observed in an inbound packet.
func (c *Conn) applyConnectionClose(packet *streampacket.StreamPacket) {
	for _, frame := range packet.Frames {
		if frame.Type == streampacket.FrameConnectionClose {
			c.log.Debugf("remote closed connection: %s", frame.ConnectionClose.Message)
			c.closeNow()
			return
		}
	}
}

func decryptStreamPacket(sharedSecret, ciphertext []byte) (*streampacket.StreamPacket, error) {
	plaintext, err := ilpcrypto.Decrypt(sharedSecret, ciphertext)
	if err != nil {
		return nil, err
	}
	return streampacket.Decode(plaintext)
}

func encryptStreamPacket(sharedSecret []byte, packet *streampacket.StreamPacket) ([]byte, error) {
	body, err := packet.Encode()
	if err != nil {
		return nil, err
	}
	return ilpcrypto.Encrypt(sharedSecret, body)
}
