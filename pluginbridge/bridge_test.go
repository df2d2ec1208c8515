package pluginbridge

import (
	"testing"
	"time"

	"github.com/interledger-go/ilp-stream/ilppacket"
	"github.com/stretchr/testify/require"
)

func TestBridgeForwardsBothDirections(t *testing.T) {
	clientPlugin, serverPlugin := NewInMemoryPair()
	clientBridge := New(clientPlugin)
	serverBridge := New(serverPlugin)
	defer clientBridge.Close()
	defer serverBridge.Close()

	prepare := &ilppacket.Prepare{
		Amount:      10,
		ExpiresAt:   time.Now().Add(30 * time.Second),
		Destination: "example.server",
	}
	clientBridge.Send(Request{RequestID: 1, Packet: prepare})

	select {
	case req := <-serverBridge.Incoming():
		require.Equal(t, uint32(1), req.RequestID)
		p, ok := req.Packet.(*ilppacket.Prepare)
		require.True(t, ok)
		require.Equal(t, "example.server", p.Destination)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarded request")
	}

	fulfill := &ilppacket.Fulfill{}
	serverBridge.Send(Request{RequestID: 1, Packet: fulfill})

	select {
	case req := <-clientBridge.Incoming():
		require.Equal(t, uint32(1), req.RequestID)
		_, ok := req.Packet.(*ilppacket.Fulfill)
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for fulfill")
	}
}

// Send enqueues without blocking regardless of how fast the peer is
// consuming; everything enqueued is delivered in order.
func TestBridgeSendNeverBlocks(t *testing.T) {
	clientPlugin, serverPlugin := NewInMemoryPair()
	clientBridge := New(clientPlugin)
	serverBridge := New(serverPlugin)
	defer clientBridge.Close()
	defer serverBridge.Close()

	const n = 200
	for i := 0; i < n; i++ {
		clientBridge.Send(Request{RequestID: uint32(i), Packet: &ilppacket.Fulfill{}})
	}

	for i := 0; i < n; i++ {
		select {
		case req := <-serverBridge.Incoming():
			require.Equal(t, uint32(i), req.RequestID)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for request %d", i)
		}
	}
}

func TestBridgeCloseStopsForwarding(t *testing.T) {
	a, b := NewInMemoryPair()
	bridgeA := New(a)
	bridgeB := New(b)
	defer bridgeB.Close()

	require.NoError(t, bridgeA.Close())

	err := b.Send(Request{RequestID: 1, Packet: &ilppacket.Fulfill{}})
	require.ErrorIs(t, err, ErrClosed)
}
