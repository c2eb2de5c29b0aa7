package floodsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockTransport_SendAndRecv(t *testing.T) {
	net := NewMockNetwork()

	t1, err := net.NewTransport("peer-1")
	require.Nil(t, err)
	t2, err := net.NewTransport("peer-2")
	require.Nil(t, err)

	assert.Nil(t, t1.WriteTo([]byte("foo"), t2.LocalID()))

	select {
	case packet := <-t2.PacketCh():
		assert.Equal(t, t1.LocalID(), packet.From)
		assert.Equal(t, "foo", string(packet.Buf))
	case <-time.After(time.Second):
		assert.Fail(t, "timed out waiting for packet")
	}
}

func TestMockTransport_Discovery(t *testing.T) {
	net := NewMockNetwork()

	t1, err := net.NewTransport("peer-1")
	require.Nil(t, err)
	t2, err := net.NewTransport("peer-2")
	require.Nil(t, err)

	assert.Equal(t, &Discovery{Type: PeerAppeared, PeerID: "peer-2"}, <-t1.DiscoveryCh())
	assert.Equal(t, &Discovery{Type: PeerAppeared, PeerID: "peer-1"}, <-t2.DiscoveryCh())

	assert.Nil(t, t2.Shutdown())
	assert.Equal(t, &Discovery{Type: PeerDisappeared, PeerID: "peer-2"}, <-t1.DiscoveryCh())

	assert.Equal(t, []string{"peer-1"}, net.PeerIDs())
	assert.NotNil(t, t1.WriteTo([]byte("foo"), "peer-2"))
}

func TestMockNetwork_DuplicatePeerID(t *testing.T) {
	net := NewMockNetwork()

	_, err := net.NewTransport("peer-1")
	require.Nil(t, err)
	_, err = net.NewTransport("peer-1")
	assert.NotNil(t, err)
}
