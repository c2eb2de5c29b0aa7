package floodsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFloodsub(t *testing.T, net *MockNetwork, peerID string) *Floodsub {
	transport, err := net.NewTransport(peerID)
	require.Nil(t, err)
	return NewFloodsub(transport, zap.NewNop())
}

func waitEvent(t *testing.T, f *Floodsub) *Event {
	select {
	case e := <-f.Events():
		return e
	case <-time.After(3 * time.Second):
		require.FailNow(t, "timed out waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, f *Floodsub) {
	select {
	case e := <-f.Events():
		assert.Failf(t, "unexpected event", "%v from %s", e.Type, e.Peer)
	case <-time.After(100 * time.Millisecond):
	}
}

// Tests peers subscribed before discovering each other are notified of each
// others subscriptions.
func TestFloodsub_SubscribedBeforeDiscovery(t *testing.T) {
	net := NewMockNetwork()

	transport1, err := net.NewTransport("peer-1")
	require.Nil(t, err)
	f1 := NewFloodsub(transport1, zap.NewNop())
	defer f1.Shutdown()
	require.Nil(t, f1.Subscribe("chat"))

	f2 := newTestFloodsub(t, net, "peer-2")
	defer f2.Shutdown()
	require.Nil(t, f2.Subscribe("chat"))

	assert.Equal(t, &Event{Type: EventSubscribed, Peer: "peer-2", Topic: "chat"}, waitEvent(t, f1))
	assert.Equal(t, &Event{Type: EventSubscribed, Peer: "peer-1", Topic: "chat"}, waitEvent(t, f2))
}

func TestFloodsub_PublishToSubscribers(t *testing.T) {
	net := NewMockNetwork()

	f1 := newTestFloodsub(t, net, "peer-1")
	defer f1.Shutdown()
	f2 := newTestFloodsub(t, net, "peer-2")
	defer f2.Shutdown()

	require.Nil(t, f1.Subscribe("chat"))
	require.Nil(t, f2.Subscribe("chat"))
	waitEvent(t, f1)
	waitEvent(t, f2)

	assert.Nil(t, f1.Publish("chat", []byte("hello")))

	assert.Equal(t, &Event{
		Type:  EventMessage,
		Peer:  "peer-1",
		Topic: "chat",
		Data:  []byte("hello"),
	}, waitEvent(t, f2))

	// The publisher should not receive its own message.
	assertNoEvent(t, f1)
}

func TestFloodsub_PublishSkipsPeersNotSubscribed(t *testing.T) {
	net := NewMockNetwork()

	f1 := newTestFloodsub(t, net, "peer-1")
	defer f1.Shutdown()
	f2 := newTestFloodsub(t, net, "peer-2")
	defer f2.Shutdown()

	require.Nil(t, f2.Subscribe("other"))
	waitEvent(t, f1)

	assert.Equal(t, []string{}, f1.Subscribers("chat"))
	assert.Nil(t, f1.Publish("chat", []byte("hello")))
	assertNoEvent(t, f2)
}

func TestFloodsub_Unsubscribe(t *testing.T) {
	net := NewMockNetwork()

	f1 := newTestFloodsub(t, net, "peer-1")
	defer f1.Shutdown()
	f2 := newTestFloodsub(t, net, "peer-2")
	defer f2.Shutdown()

	require.Nil(t, f2.Subscribe("chat"))
	assert.Equal(t, EventSubscribed, waitEvent(t, f1).Type)

	require.Nil(t, f2.Unsubscribe("chat"))
	assert.Equal(t, &Event{Type: EventUnsubscribed, Peer: "peer-2", Topic: "chat"}, waitEvent(t, f1))
	assert.Equal(t, []string{}, f1.Subscribers("chat"))
}

// Tests a peer that disappears while subscribed is considered unsubscribed.
func TestFloodsub_PeerDisappeared(t *testing.T) {
	net := NewMockNetwork()

	f1 := newTestFloodsub(t, net, "peer-1")
	defer f1.Shutdown()
	f2 := newTestFloodsub(t, net, "peer-2")

	require.Nil(t, f2.Subscribe("chat"))
	assert.Equal(t, EventSubscribed, waitEvent(t, f1).Type)

	require.Nil(t, f2.Shutdown())
	assert.Equal(t, &Event{Type: EventUnsubscribed, Peer: "peer-2", Topic: "chat"}, waitEvent(t, f1))
	assert.Equal(t, []string{}, f1.Peers())
}

// Tests a peer that unsubscribes then shuts down is only reported as
// unsubscribed once.
func TestFloodsub_UnsubscribeThenShutdown(t *testing.T) {
	net := NewMockNetwork()

	f1 := newTestFloodsub(t, net, "peer-1")
	defer f1.Shutdown()
	f2 := newTestFloodsub(t, net, "peer-2")

	require.Nil(t, f2.Subscribe("chat"))
	assert.Equal(t, EventSubscribed, waitEvent(t, f1).Type)

	require.Nil(t, f2.Unsubscribe("chat"))
	require.Nil(t, f2.Shutdown())

	assert.Equal(t, &Event{Type: EventUnsubscribed, Peer: "peer-2", Topic: "chat"}, waitEvent(t, f1))
	assertNoEvent(t, f1)
}

func TestFrame_DecodeInvalid(t *testing.T) {
	_, err := decodeFrame([]byte{})
	assert.NotNil(t, err)
	_, err = decodeFrame([]byte("garbage"))
	assert.NotNil(t, err)

	b, err := encodeFrame(&frame{Type: 9, From: "peer-1", Topic: "chat"})
	require.Nil(t, err)
	_, err = decodeFrame(b)
	assert.NotNil(t, err)
}
