package floodsub

// Packet contains a payload received from a peer.
type Packet struct {
	// Buf has the raw contents of the packet.
	Buf []byte

	// From is the ID of the peer that sent the packet.
	From string
}

type DiscoveryType int

const (
	// PeerAppeared indicates a peer was discovered on the network.
	PeerAppeared = DiscoveryType(1)
	// PeerDisappeared indicates a peer is no longer reachable.
	PeerDisappeared = DiscoveryType(2)
)

// Discovery is a notification that a peer appeared or disappeared.
type Discovery struct {
	Type   DiscoveryType
	PeerID string
}

// Transport is an interface for a message oriented transport between peers,
// which also discovers the peers that can be reached.
type Transport interface {
	// WriteTo sends the payload to the peer with the given ID.
	WriteTo(b []byte, peerID string) error

	// PacketCh returns a channel that can be read to receive incoming
	// packets from other peers.
	PacketCh() <-chan *Packet

	// DiscoveryCh returns a channel that can be read to receive notifications
	// of peers appearing and disappearing.
	DiscoveryCh() <-chan *Discovery

	// LocalID returns the ID of the local peer.
	LocalID() string

	// Shutdown is called when floodsub is shutting down; this gives the
	// transport a chance to clean up any listeners.
	Shutdown() error
}
