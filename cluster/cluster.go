package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andydunstall/gossipchat"
	"github.com/andydunstall/gossipchat/internal/floodsub"
	"github.com/google/uuid"
	multierror "github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// stats records the chat events a node has received.
type stats struct {
	joined   map[string]struct{}
	messages int
	mu       sync.Mutex
}

func newStats() *stats {
	return &stats{
		joined: make(map[string]struct{}),
	}
}

func (s *stats) NotifyMessage(name string, text []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages++
}

func (s *stats) NotifyJoin(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.joined[name] = struct{}{}
}

func (s *stats) NotifyLeave(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.joined, name)
}

type Node struct {
	ID       string
	Username string
	Chat     *gossipchat.Node

	lines  chan string
	pubsub *floodsub.Floodsub
	stats  *stats
	cancel func()
	errCh  chan error
}

// Send sends the line to the chat.
func (n *Node) Send(line string) {
	n.lines <- line
}

// KnownUser returns true if the node has been notified that the user with the
// given name joined the chat.
func (n *Node) KnownUser(username string) bool {
	if username == n.Username {
		return true
	}

	n.stats.mu.Lock()
	defer n.stats.mu.Unlock()

	_, ok := n.stats.joined[username]
	return ok
}

// ReceivedMessages returns the number of messages the node has received,
// including messages replayed from history.
func (n *Node) ReceivedMessages() int {
	n.stats.mu.Lock()
	defer n.stats.mu.Unlock()

	return n.stats.messages
}

func (n *Node) shutdown() error {
	n.cancel()
	err := <-n.errCh
	if shutdownErr := n.pubsub.Shutdown(); shutdownErr != nil {
		err = multierror.Append(err, shutdownErr)
	}
	return err
}

// Cluster manages a local in-memory cluster used for testing and evaluation.
type Cluster struct {
	net    *floodsub.MockNetwork
	nodes  map[string]*Node
	mu     sync.Mutex
	logger *zap.Logger
}

func NewCluster(logger *zap.Logger) *Cluster {
	return &Cluster{
		net:    floodsub.NewMockNetwork(),
		nodes:  make(map[string]*Node),
		logger: logger,
	}
}

func (c *Cluster) AddNode() (*Node, error) {
	id := uuid.New().String()[:7]
	logger := c.logger.With(zap.String("peer-id", id))

	transport, err := c.net.NewTransport(id)
	if err != nil {
		return nil, err
	}
	pubsub := floodsub.NewFloodsub(transport, logger)

	stats := newStats()
	username := fmt.Sprintf("user-%s", id)
	chat, err := gossipchat.Create(
		username,
		pubsub,
		gossipchat.WithOutput(nil),
		gossipchat.WithNotifier(stats),
		gossipchat.WithLogger(logger),
	)
	if err != nil {
		pubsub.Shutdown()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	node := &Node{
		ID:       id,
		Username: username,
		Chat:     chat,
		lines:    make(chan string),
		pubsub:   pubsub,
		stats:    stats,
		cancel:   cancel,
		errCh:    make(chan error, 1),
	}
	go func() {
		node.errCh <- chat.Run(ctx, node.lines)
	}()

	c.mu.Lock()
	c.nodes[node.ID] = node
	c.mu.Unlock()

	return node, nil
}

func (c *Cluster) AddNodes(n int) error {
	var errs error
	for i := 0; i < n; i++ {
		if _, err := c.AddNode(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

// RemoveNode removes the node with the given ID from the cluster, leaving the
// chat.
func (c *Cluster) RemoveNode(nodeID string) error {
	c.mu.Lock()
	node, ok := c.nodes[nodeID]
	delete(c.nodes, nodeID)
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown node: %s", nodeID)
	}
	return node.shutdown()
}

// Nodes returns the nodes in the cluster.
func (c *Cluster) Nodes() []*Node {
	return c.snapshot()
}

// WaitForHealthy waits for all nodes to know the names of all other nodes.
func (c *Cluster) WaitForHealthy(ctx context.Context) error {
	return c.poll(ctx, func(nodes []*Node) bool {
		for _, node := range nodes {
			for _, other := range nodes {
				if !node.KnownUser(other.Username) {
					return false
				}
			}
		}
		return true
	})
}

// WaitToReceive waits for the node with the given ID to receive at least the
// given number of messages.
func (c *Cluster) WaitToReceive(ctx context.Context, nodeID string, messages int) error {
	return c.poll(ctx, func(nodes []*Node) bool {
		for _, node := range nodes {
			if node.ID == nodeID {
				return node.ReceivedMessages() >= messages
			}
		}
		return false
	})
}

func (c *Cluster) Shutdown() error {
	c.mu.Lock()
	nodes := c.nodes
	c.nodes = make(map[string]*Node)
	c.mu.Unlock()

	var errs error
	for _, node := range nodes {
		if err := node.shutdown(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

// TODO(AD) poll for now, though could notify waiters from the stats
// notifier instead.
func (c *Cluster) poll(ctx context.Context, done func(nodes []*Node) bool) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if done(c.snapshot()) {
				return nil
			}
		}
	}
}

func (c *Cluster) snapshot() []*Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	nodes := make([]*Node, 0, len(c.nodes))
	for _, node := range c.nodes {
		nodes = append(nodes, node)
	}
	return nodes
}
