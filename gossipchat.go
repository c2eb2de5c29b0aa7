package gossipchat

import (
	"context"
	"fmt"

	"github.com/andydunstall/gossipchat/internal"
	"github.com/andydunstall/gossipchat/internal/floodsub"
	multierror "github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// PubSub disseminates payloads published to a topic to all peers subscribed
// to that topic.
type PubSub interface {
	// LocalID returns the ID of the local peer.
	LocalID() string

	// Publish sends the data to all other peers subscribed to the topic.
	Publish(topic string, data []byte) error

	// Subscribe subscribes the local peer to the topic.
	Subscribe(topic string) error

	// Unsubscribe unsubscribes the local peer from the topic.
	Unsubscribe(topic string) error

	// Events returns a channel that receives messages published to
	// subscribed topics and peers subscribing and unsubscribing.
	Events() <-chan *floodsub.Event
}

// Node is a chat participant. It keeps a bounded history of messages and
// the names of known peers, and syncs them with peers as they join.
//
// All state is owned by the event loop in Run, so Node is not thread safe
// other than Run itself.
type Node struct {
	id     string
	topic  string
	pubsub PubSub

	state   *internal.State
	router  *internal.Router
	replies *internal.ReplyChannel

	logger *zap.Logger
}

// Create returns a node with the given username, exchanging the chat using
// pubsub. The node does not join the chat until Run is called.
func Create(username string, pubsub PubSub, options ...Option) (*Node, error) {
	opts := defaultOptions()
	for _, opt := range options {
		opt(opts)
	}

	if username == "" {
		return nil, fmt.Errorf("username must not be empty")
	}
	if opts.Topic == "" {
		return nil, fmt.Errorf("topic must not be empty")
	}

	id := pubsub.LocalID()
	logger := opts.Logger.With(zap.String("peer-id", id))

	var console Notifier
	if opts.Output != nil {
		console = internal.NewConsole(opts.Output, opts.Color)
	}

	state := internal.NewState()
	state.Directory.Upsert(id, username)

	return &Node{
		id:      id,
		topic:   opts.Topic,
		pubsub:  pubsub,
		state:   state,
		router:  internal.NewRouter(id, internal.MultiNotifier(console, opts.Notifier), logger),
		replies: internal.NewReplyChannel(),
		logger:  logger,
	}, nil
}

// ID returns the peer ID of the node.
func (n *Node) ID() string {
	return n.id
}

// Run joins the chat and runs the node event loop until the context is
// cancelled. Each line received from lines is sent to the chat. When the
// context is cancelled the node leaves the chat and Run returns.
//
// Run services one source per iteration. When multiple sources are ready it
// picks, in order: shutdown, queued replies, pubsub events then input lines.
func (n *Node) Run(ctx context.Context, lines <-chan string) error {
	n.logger.Debug("joining chat", zap.String("topic", n.topic))

	if err := n.pubsub.Subscribe(n.topic); err != nil {
		// Subscribing may fail to reach some peers, which will learn of the
		// subscription when they next discover us.
		n.logger.Warn("failed to announce subscription", zap.Error(err))
	}

	events := n.pubsub.Events()
	for {
		select {
		case <-ctx.Done():
			return n.leave()
		default:
		}

		select {
		case <-n.replies.Ready():
			n.onReplyReady()
			continue
		default:
		}

		select {
		case e := <-events:
			n.onEvent(e)
			continue
		default:
		}

		select {
		case line, ok := <-lines:
			lines = n.onInput(lines, line, ok)
			continue
		default:
		}

		// Nothing is ready so block until any source is.
		select {
		case <-ctx.Done():
			return n.leave()
		case <-n.replies.Ready():
			n.onReplyReady()
		case e := <-events:
			n.onEvent(e)
		case line, ok := <-lines:
			lines = n.onInput(lines, line, ok)
		}
	}
}

func (n *Node) onInput(lines <-chan string, line string, ok bool) <-chan string {
	if !ok {
		// Once the input is closed stop selecting it, though keep running
		// until shutdown.
		n.logger.Debug("input closed")
		return nil
	}

	e := internal.NewMessage(n.id, line)
	n.publish(e)
	n.state.History.Insert(e)
	return lines
}

func (n *Node) onEvent(e *floodsub.Event) {
	if e == nil || e.Topic != n.topic {
		return
	}

	switch e.Type {
	case floodsub.EventMessage:
		// Errors are logged by the router and the payload dropped.
		reply, _ := n.router.HandleInbound(e.Data, e.Peer, n.state)
		if reply != nil {
			n.queueReply(*reply)
		}
	case floodsub.EventSubscribed:
		n.queueReply(n.router.OnPeerJoinedTopic(e.Peer, n.state))
	case floodsub.EventUnsubscribed:
		n.router.OnPeerLeftTopic(e.Peer, n.state)
	}
}

func (n *Node) queueReply(e internal.Envelope) {
	if err := n.replies.Push(e); err != nil {
		n.logger.Error("failed to queue reply", zap.Object("envelope", e), zap.Error(err))
	}
}

func (n *Node) onReplyReady() {
	e, ok := n.replies.Pop()
	if !ok {
		return
	}
	n.publish(e)
}

func (n *Node) publish(e internal.Envelope) {
	if err := n.pubsub.Publish(n.topic, internal.EncodeEnvelope(e)); err != nil {
		// Message loss is tolerated, peers that missed the message resync
		// when they next join.
		n.logger.Warn("failed to publish", zap.Object("envelope", e), zap.Error(err))
	}
}

func (n *Node) leave() error {
	n.logger.Debug("leaving chat", zap.String("topic", n.topic))

	var errs error
	if err := n.pubsub.Unsubscribe(n.topic); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to unsubscribe: %w", err))
	}
	n.replies.Close()
	if dropped := n.replies.Len(); dropped > 0 {
		n.logger.Debug("dropping queued replies", zap.Int("replies", dropped))
	}
	return errs
}
