// Package connection implements the STREAM connection state machine:
// a multiplexer that turns ILP Prepare/Fulfill/Reject exchanges into
// ordered, reliable per-stream money and data delivery, run as a single
// actor behind one mutex.
package connection

import "github.com/interledger-go/ilp-stream/pluginbridge"

// NewClient opens a client-side connection over bridge: it allocates odd
// stream IDs and immediately sends the handshake Prepare advertising
// sourceAccount to destinationAccount.
func NewClient(bridge *pluginbridge.Bridge, sharedSecret []byte, sourceAccount, destinationAccount string) *Conn {
	return newConn(bridge, sharedSecret, sourceAccount, destinationAccount, false)
}

// NewServer opens a server-side connection over bridge: it allocates
// even stream IDs and learns destinationAccount from the first
// ConnectionNewAddress frame it receives.
func NewServer(bridge *pluginbridge.Bridge, sharedSecret []byte, sourceAccount string) *Conn {
	return newConn(bridge, sharedSecret, sourceAccount, "", true)
}
