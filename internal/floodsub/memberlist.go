package floodsub

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/hashicorp/memberlist"
	"go.uber.org/zap"
)

const (
	memberlistChSize = 1024
	leaveTimeout     = time.Second
)

// MemberlistTransport is a Transport using memberlist to discover peers and
// deliver messages between them.
//
// Peers are discovered by joining a seed, after which memberlist gossips the
// membership so every peer discovers every other peer.
type MemberlistTransport struct {
	list        *memberlist.Memberlist
	peerID      string
	packetCh    chan *Packet
	discoveryCh chan *Discovery
	done        chan struct{}
	closeOnce   sync.Once
	shutdown    int32
	logger      *zap.Logger
}

// NewMemberlistTransport returns a transport with the given peer ID, listening
// on bindAddr (host:port). Use a port of 0 to let the system assign a free
// port.
func NewMemberlistTransport(peerID string, bindAddr string, logger *zap.Logger) (*MemberlistTransport, error) {
	host, portStr, err := net.SplitHostPort(bindAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid bind addr %s: %v", bindAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid bind addr %s: %v", bindAddr, err)
	}

	t := &MemberlistTransport{
		peerID:      peerID,
		packetCh:    make(chan *Packet, memberlistChSize),
		discoveryCh: make(chan *Discovery, memberlistChSize),
		done:        make(chan struct{}),
		logger:      logger,
	}

	conf := memberlist.DefaultLANConfig()
	conf.Name = peerID
	conf.BindAddr = host
	conf.BindPort = port
	conf.AdvertisePort = port
	conf.Delegate = &memberlistDelegate{transport: t}
	conf.Events = &memberlistEvents{transport: t}
	conf.Logger = zap.NewStdLog(logger.Named("memberlist"))

	list, err := memberlist.Create(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to start memberlist on %s: %v", bindAddr, err)
	}
	t.list = list

	logger.Debug(
		"memberlist started",
		zap.String("addr", t.BindAddr()),
	)

	return t, nil
}

// Join contacts the given seed addresses to join the network. It returns the
// number of seeds successfully contacted.
func (t *MemberlistTransport) Join(seeds []string) (int, error) {
	if len(seeds) == 0 {
		return 0, nil
	}

	t.logger.Debug("joining", zap.Strings("seeds", seeds))

	n, err := t.list.Join(seeds)
	if err != nil {
		return n, fmt.Errorf("failed to join %v: %v", seeds, err)
	}
	return n, nil
}

// BindAddr returns the address memberlist is listening on. Note this may be
// different from the configured bind addr if the system chooses the port.
func (t *MemberlistTransport) BindAddr() string {
	node := t.list.LocalNode()
	return net.JoinHostPort(node.Addr.String(), strconv.Itoa(int(node.Port)))
}

func (t *MemberlistTransport) WriteTo(b []byte, peerID string) error {
	for _, node := range t.list.Members() {
		if node.Name == peerID {
			return t.list.SendReliable(node, b)
		}
	}
	return fmt.Errorf("no route to %s", peerID)
}

func (t *MemberlistTransport) PacketCh() <-chan *Packet {
	return t.packetCh
}

func (t *MemberlistTransport) DiscoveryCh() <-chan *Discovery {
	return t.discoveryCh
}

func (t *MemberlistTransport) LocalID() string {
	return t.peerID
}

// Shutdown gracefully leaves the network then stops memberlist.
func (t *MemberlistTransport) Shutdown() error {
	if !atomic.CompareAndSwapInt32(&t.shutdown, 0, 1) {
		return nil
	}

	var errs error
	if err := t.list.Leave(leaveTimeout); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to leave: %v", err))
	}
	if err := t.list.Shutdown(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to shutdown memberlist: %v", err))
	}
	t.closeOnce.Do(func() {
		close(t.done)
	})
	return errs
}

func (t *MemberlistTransport) onMessage(b []byte) {
	// memberlist reuses the buffer so must copy.
	buf := make([]byte, len(b))
	copy(buf, b)

	select {
	case t.packetCh <- &Packet{Buf: buf}:
	case <-t.done:
	}
}

func (t *MemberlistTransport) onDiscovery(d *Discovery) {
	if d.PeerID == t.peerID {
		return
	}

	select {
	case t.discoveryCh <- d:
	case <-t.done:
	}
}

// memberlistDelegate receives user messages from memberlist. Floodsub frames
// are sent directly to each peer so there is no broadcast or push/pull state.
type memberlistDelegate struct {
	transport *MemberlistTransport
}

var _ memberlist.Delegate = (*memberlistDelegate)(nil)

func (d *memberlistDelegate) NodeMeta(limit int) []byte {
	return nil
}

func (d *memberlistDelegate) NotifyMsg(b []byte) {
	if len(b) == 0 {
		return
	}
	d.transport.onMessage(b)
}

func (d *memberlistDelegate) GetBroadcasts(overhead, limit int) [][]byte {
	return nil
}

func (d *memberlistDelegate) LocalState(join bool) []byte {
	return nil
}

func (d *memberlistDelegate) MergeRemoteState(buf []byte, join bool) {}

// memberlistEvents converts memberlist membership changes to discovery
// notifications.
type memberlistEvents struct {
	transport *MemberlistTransport
}

var _ memberlist.EventDelegate = (*memberlistEvents)(nil)

func (e *memberlistEvents) NotifyJoin(node *memberlist.Node) {
	e.transport.onDiscovery(&Discovery{Type: PeerAppeared, PeerID: node.Name})
}

func (e *memberlistEvents) NotifyLeave(node *memberlist.Node) {
	e.transport.onDiscovery(&Discovery{Type: PeerDisappeared, PeerID: node.Name})
}

func (e *memberlistEvents) NotifyUpdate(node *memberlist.Node) {}
