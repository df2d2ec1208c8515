package streamio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyStreamSendLifecycle(t *testing.T) {
	m := NewMoneyStream()
	m.SetSendMax(100)
	assert.Equal(t, uint64(100), m.AvailableToSend())

	m.AddToPending(40)
	assert.Equal(t, uint64(60), m.AvailableToSend())
	assert.Equal(t, uint64(40), m.Pending())

	m.PendingToSent(40)
	assert.Equal(t, uint64(40), m.TotalSent())
	assert.Equal(t, uint64(0), m.Pending())
	assert.Equal(t, uint64(60), m.AvailableToSend())
}

func TestMoneyStreamRejectReleasesPending(t *testing.T) {
	m := NewMoneyStream()
	m.SetSendMax(50)
	m.AddToPending(50)
	assert.Equal(t, uint64(0), m.AvailableToSend())

	m.SubtractFromPending(50)
	assert.Equal(t, uint64(50), m.AvailableToSend())
}

func TestMoneyStreamReceive(t *testing.T) {
	m := NewMoneyStream()
	m.SetReceiveMax(1000)
	m.AddReceived(250)
	assert.Equal(t, uint64(250), m.TotalReceived())
	assert.Equal(t, uint64(1000), m.ReceiveMax())

	assert.True(t, m.CanReceive(750))
	assert.False(t, m.CanReceive(751))
}

func TestMoneyStreamReceiveUnlimitedByDefault(t *testing.T) {
	m := NewMoneyStream()
	assert.True(t, m.CanReceive(1<<40))
}

func TestMoneyStreamDelivered(t *testing.T) {
	m := NewMoneyStream()
	m.AddDelivered(90)
	assert.Equal(t, uint64(90), m.TotalDelivered())
}

func TestMoneyStreamPollChWakes(t *testing.T) {
	m := NewMoneyStream()
	m.SetSendMax(10)
	select {
	case <-m.PollCh():
	default:
		t.Fatal("expected a wakeup after SetSendMax")
	}
}

func TestDataStreamOutgoingRoundTrip(t *testing.T) {
	d := NewDataStream()
	_, err := d.Write([]byte("hello world"))
	require.NoError(t, err)

	chunk, offset, ok := d.GetOutgoingData(5)
	require.True(t, ok)
	assert.Equal(t, uint64(0), offset)
	assert.Equal(t, []byte("hello"), chunk)

	d.MarkSent(5)
	d.ReleaseSent(5)

	chunk, offset, ok = d.GetOutgoingData(100)
	require.True(t, ok)
	assert.Equal(t, uint64(5), offset)
	assert.Equal(t, []byte(" world"), chunk)
}

func TestDataStreamMarkUnsentRetransmits(t *testing.T) {
	d := NewDataStream()
	d.Write([]byte("abc"))

	_, _, ok := d.GetOutgoingData(3)
	require.True(t, ok)
	d.MarkSent(3)

	_, _, ok = d.GetOutgoingData(3)
	assert.False(t, ok)

	d.MarkUnsent(3)
	chunk, offset, ok := d.GetOutgoingData(3)
	require.True(t, ok)
	assert.Equal(t, uint64(0), offset)
	assert.Equal(t, []byte("abc"), chunk)
}

func TestDataStreamIncomingInOrder(t *testing.T) {
	d := NewDataStream()
	d.PushIncomingData(0, []byte("hello"))

	buf := make([]byte, 5)
	n, err := d.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestDataStreamIncomingOutOfOrderReassembles(t *testing.T) {
	d := NewDataStream()
	d.PushIncomingData(5, []byte("world"))
	d.PushIncomingData(0, []byte("hello"))

	buf := make([]byte, 10)
	n, err := d.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "helloworld", string(buf[:n]))
}

func TestDataStreamIncomingDuplicateIgnored(t *testing.T) {
	d := NewDataStream()
	d.PushIncomingData(0, []byte("hello"))
	d.PushIncomingData(0, []byte("hello"))

	buf := make([]byte, 10)
	n, err := d.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestDataStreamClosed(t *testing.T) {
	d := NewDataStream()
	assert.False(t, d.Closed())
	d.SetClosed()
	assert.True(t, d.Closed())
}
