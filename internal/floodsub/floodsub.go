package floodsub

import (
	"fmt"
	"sort"
	"sync"

	multierror "github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

const (
	eventChSize = 1024
)

type EventType int

const (
	// EventMessage is a message published to a topic.
	EventMessage = EventType(1)
	// EventSubscribed indicates a peer subscribed to a topic.
	EventSubscribed = EventType(2)
	// EventUnsubscribed indicates a peer unsubscribed from a topic, or left
	// the network while subscribed.
	EventUnsubscribed = EventType(3)
)

func (t EventType) String() string {
	switch t {
	case EventMessage:
		return "message"
	case EventSubscribed:
		return "subscribed"
	case EventUnsubscribed:
		return "unsubscribed"
	default:
		return "unknown"
	}
}

type Event struct {
	Type EventType
	// Peer is the ID of the peer that published the message or changed its
	// subscription.
	Peer  string
	Topic string
	// Data is the published payload. Only set for EventMessage.
	Data []byte
}

// Floodsub disseminates messages published to a topic to every known peer
// subscribed to that topic.
//
// Peers are added to the partial view when the transport discovers them, and
// subscriptions are exchanged with each peer as it is added.
//
// Note this is thread safe.
type Floodsub struct {
	transport Transport
	localID   string

	// partialView contains the known peers, mapped to the set of topics each
	// peer is subscribed to.
	partialView map[string]map[string]struct{}
	// subscriptions contains the topics the local peer is subscribed to.
	subscriptions map[string]struct{}
	// mu protects the above fields. Must not be held when writing to the
	// transport or the event channel.
	mu sync.Mutex

	eventCh chan *Event
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *zap.Logger
}

func NewFloodsub(transport Transport, logger *zap.Logger) *Floodsub {
	f := &Floodsub{
		transport:     transport,
		localID:       transport.LocalID(),
		partialView:   make(map[string]map[string]struct{}),
		subscriptions: make(map[string]struct{}),
		mu:            sync.Mutex{},
		eventCh:       make(chan *Event, eventChSize),
		done:          make(chan struct{}),
		wg:            sync.WaitGroup{},
		logger:        logger,
	}
	f.wg.Add(1)
	go f.loop()
	return f
}

// LocalID returns the ID of the local peer.
func (f *Floodsub) LocalID() string {
	return f.localID
}

// Events returns a channel that receives messages published to the topics
// the local peer subscribes to, and subscription changes of remote peers.
func (f *Floodsub) Events() <-chan *Event {
	return f.eventCh
}

// Publish sends the data to every known peer subscribed to the topic. The
// local peer does not receive its own messages.
func (f *Floodsub) Publish(topic string, data []byte) error {
	b, err := encodeFrame(&frame{
		Type:  uint32(typePublish),
		From:  f.localID,
		Topic: topic,
		Data:  data,
	})
	if err != nil {
		return err
	}
	return f.writeTo(b, f.Subscribers(topic))
}

// Subscribe subscribes the local peer to the topic and announces the
// subscription to all known peers.
func (f *Floodsub) Subscribe(topic string) error {
	f.mu.Lock()
	if _, ok := f.subscriptions[topic]; ok {
		f.mu.Unlock()
		return nil
	}
	f.subscriptions[topic] = struct{}{}
	peers := f.peersLocked()
	f.mu.Unlock()

	f.logger.Debug("subscribe", zap.String("topic", topic))

	return f.announce(typeSubscribe, topic, peers)
}

// Unsubscribe unsubscribes the local peer from the topic and announces it to
// all known peers.
func (f *Floodsub) Unsubscribe(topic string) error {
	f.mu.Lock()
	if _, ok := f.subscriptions[topic]; !ok {
		f.mu.Unlock()
		return nil
	}
	delete(f.subscriptions, topic)
	peers := f.peersLocked()
	f.mu.Unlock()

	f.logger.Debug("unsubscribe", zap.String("topic", topic))

	return f.announce(typeUnsubscribe, topic, peers)
}

// Peers returns the IDs of all peers in the partial view, sorted.
func (f *Floodsub) Peers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.peersLocked()
}

// Subscribers returns the IDs of the known peers subscribed to the topic,
// sorted.
func (f *Floodsub) Subscribers(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	peers := []string{}
	for peerID, topics := range f.partialView {
		if _, ok := topics[topic]; ok {
			peers = append(peers, peerID)
		}
	}
	sort.Strings(peers)
	return peers
}

// Shutdown stops floodsub and the underlying transport.
func (f *Floodsub) Shutdown() error {
	f.logger.Debug("shutdown")

	// Note must close transport first or the transport could block writing
	// to its packet channel.
	err := f.transport.Shutdown()
	close(f.done)
	f.wg.Wait()
	return err
}

func (f *Floodsub) loop() {
	defer f.wg.Done()

	for {
		// Handle pending packets before discovery notifications, so packets a
		// peer sent before disappearing are handled before it is removed.
		select {
		case p := <-f.transport.PacketCh():
			f.onPacket(p)
			continue
		default:
		}

		select {
		case p := <-f.transport.PacketCh():
			f.onPacket(p)
		case d := <-f.transport.DiscoveryCh():
			f.onDiscovery(d)
		case <-f.done:
			return
		}
	}
}

func (f *Floodsub) onPacket(p *Packet) {
	fr, err := decodeFrame(p.Buf)
	if err != nil {
		f.logger.Error("invalid frame", zap.String("from", p.From), zap.Error(err))
		return
	}
	// If the transport knows the sender it must match the claimed sender.
	if p.From != "" && p.From != fr.From {
		f.logger.Error(
			"frame sender mismatch",
			zap.String("from", p.From),
			zap.String("claimed", fr.From),
		)
		return
	}

	// A peer may send to us before we discover it, in which case add it
	// now since it must be reachable. An unsubscribe from an unknown peer is
	// ignored, as the peer may have already left.
	if frameType(fr.Type) != typeUnsubscribe {
		f.addPeer(fr.From)
	}

	switch frameType(fr.Type) {
	case typePublish:
		f.mu.Lock()
		_, subscribed := f.subscriptions[fr.Topic]
		f.mu.Unlock()
		if !subscribed {
			return
		}
		f.emit(&Event{
			Type:  EventMessage,
			Peer:  fr.From,
			Topic: fr.Topic,
			Data:  fr.Data,
		})
	case typeSubscribe:
		f.mu.Lock()
		topics, known := f.partialView[fr.From]
		if !known {
			// The peer disappeared since it was added.
			f.mu.Unlock()
			return
		}
		_, ok := topics[fr.Topic]
		topics[fr.Topic] = struct{}{}
		f.mu.Unlock()
		if ok {
			return
		}

		f.logger.Debug(
			"peer subscribed",
			zap.String("peer-id", fr.From),
			zap.String("topic", fr.Topic),
		)
		f.emit(&Event{
			Type:  EventSubscribed,
			Peer:  fr.From,
			Topic: fr.Topic,
		})
	case typeUnsubscribe:
		f.mu.Lock()
		topics := f.partialView[fr.From]
		_, ok := topics[fr.Topic]
		if ok {
			delete(topics, fr.Topic)
		}
		f.mu.Unlock()
		if !ok {
			return
		}

		f.logger.Debug(
			"peer unsubscribed",
			zap.String("peer-id", fr.From),
			zap.String("topic", fr.Topic),
		)
		f.emit(&Event{
			Type:  EventUnsubscribed,
			Peer:  fr.From,
			Topic: fr.Topic,
		})
	}
}

func (f *Floodsub) onDiscovery(d *Discovery) {
	if d.PeerID == f.localID {
		return
	}

	switch d.Type {
	case PeerAppeared:
		f.logger.Info("peer discovered", zap.String("peer-id", d.PeerID))
		f.addPeer(d.PeerID)
	case PeerDisappeared:
		f.logger.Info("peer expired", zap.String("peer-id", d.PeerID))
		f.removePeer(d.PeerID)
	}
}

// addPeer adds the peer to the partial view if it isn't already known, and
// sends it our subscriptions.
func (f *Floodsub) addPeer(peerID string) {
	f.mu.Lock()
	if _, ok := f.partialView[peerID]; ok {
		f.mu.Unlock()
		return
	}
	f.partialView[peerID] = make(map[string]struct{})
	topics := make([]string, 0, len(f.subscriptions))
	for topic := range f.subscriptions {
		topics = append(topics, topic)
	}
	f.mu.Unlock()

	sort.Strings(topics)
	for _, topic := range topics {
		if err := f.announce(typeSubscribe, topic, []string{peerID}); err != nil {
			f.logger.Warn(
				"failed to send subscription",
				zap.String("peer-id", peerID),
				zap.Error(err),
			)
		}
	}
}

// removePeer removes the peer from the partial view. Since the peer can no
// longer receive messages, it is considered unsubscribed from all its topics.
func (f *Floodsub) removePeer(peerID string) {
	f.mu.Lock()
	topics, ok := f.partialView[peerID]
	delete(f.partialView, peerID)
	f.mu.Unlock()
	if !ok {
		return
	}

	sorted := make([]string, 0, len(topics))
	for topic := range topics {
		sorted = append(sorted, topic)
	}
	sort.Strings(sorted)
	for _, topic := range sorted {
		f.emit(&Event{
			Type:  EventUnsubscribed,
			Peer:  peerID,
			Topic: topic,
		})
	}
}

func (f *Floodsub) announce(t frameType, topic string, peers []string) error {
	b, err := encodeFrame(&frame{
		Type:  uint32(t),
		From:  f.localID,
		Topic: topic,
	})
	if err != nil {
		return err
	}
	return f.writeTo(b, peers)
}

func (f *Floodsub) writeTo(b []byte, peers []string) error {
	var errs error
	for _, peerID := range peers {
		if err := f.transport.WriteTo(b, peerID); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to write to %s: %w", peerID, err))
		}
	}
	return errs
}

func (f *Floodsub) emit(e *Event) {
	select {
	case f.eventCh <- e:
	case <-f.done:
	}
}

func (f *Floodsub) peersLocked() []string {
	peers := make([]string, 0, len(f.partialView))
	for peerID := range f.partialView {
		peers = append(peers, peerID)
	}
	sort.Strings(peers)
	return peers
}
