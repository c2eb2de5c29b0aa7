package floodsub

import (
	"fmt"
	"sort"
	"sync"
)

const (
	mockChSize = 1024
)

// MockNetwork is used as a factory that produces MockTransport instances which
// are wired up to talk to each other in memory. Every transport on the
// network discovers every other transport.
//
// Note this is thread safe.
type MockNetwork struct {
	transports map[string]*MockTransport
	mu         sync.Mutex
}

func NewMockNetwork() *MockNetwork {
	return &MockNetwork{
		transports: make(map[string]*MockTransport),
		mu:         sync.Mutex{},
	}
}

// NewTransport adds a transport with the given peer ID to the network. The
// new transport and all existing transports are notified of each other.
func (n *MockNetwork) NewTransport(peerID string) (*MockTransport, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.transports[peerID]; ok {
		return nil, fmt.Errorf("peer already exists: %s", peerID)
	}

	transport := &MockTransport{
		net:    n,
		peerID: peerID,
		// Add a buffer so sending doesn't block.
		packetCh:    make(chan *Packet, mockChSize),
		discoveryCh: make(chan *Discovery, mockChSize),
	}

	for _, id := range n.peerIDsLocked() {
		other := n.transports[id]
		other.discoveryCh <- &Discovery{Type: PeerAppeared, PeerID: peerID}
		transport.discoveryCh <- &Discovery{Type: PeerAppeared, PeerID: id}
	}
	n.transports[peerID] = transport
	return transport, nil
}

// PeerIDs returns the IDs of the transports on the network, sorted.
func (n *MockNetwork) PeerIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.peerIDsLocked()
}

func (n *MockNetwork) remove(peerID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.transports[peerID]; !ok {
		return
	}
	delete(n.transports, peerID)

	for _, id := range n.peerIDsLocked() {
		n.transports[id].discoveryCh <- &Discovery{Type: PeerDisappeared, PeerID: peerID}
	}
}

func (n *MockNetwork) lookup(peerID string) (*MockTransport, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := n.transports[peerID]
	return t, ok
}

func (n *MockNetwork) peerIDsLocked() []string {
	ids := make([]string, 0, len(n.transports))
	for id := range n.transports {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type MockTransport struct {
	net         *MockNetwork
	peerID      string
	packetCh    chan *Packet
	discoveryCh chan *Discovery
}

func (t *MockTransport) WriteTo(b []byte, peerID string) error {
	dest, ok := t.net.lookup(peerID)
	if !ok {
		return fmt.Errorf("no route to %s", peerID)
	}

	dest.packetCh <- &Packet{
		Buf:  b,
		From: t.peerID,
	}
	return nil
}

func (t *MockTransport) PacketCh() <-chan *Packet {
	return t.packetCh
}

func (t *MockTransport) DiscoveryCh() <-chan *Discovery {
	return t.discoveryCh
}

func (t *MockTransport) LocalID() string {
	return t.peerID
}

// Shutdown removes the transport from the network, which notifies the
// remaining transports that the peer disappeared.
func (t *MockTransport) Shutdown() error {
	t.net.remove(t.peerID)
	return nil
}
