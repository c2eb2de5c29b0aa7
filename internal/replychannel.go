package internal

import (
	"errors"
	"sync"
)

var (
	// ErrReplyChannelClosed is returned when pushing a reply after the
	// consumer closed the channel.
	ErrReplyChannelClosed = errors.New("reply channel closed")
)

// ReplyChannel is an unbounded FIFO queue of replies waiting to be published.
// Any number of producers may push without blocking, though there must only
// be a single consumer.
//
// Note this is thread safe.
type ReplyChannel struct {
	// queue contains the pending replies in the order they were pushed.
	queue []Envelope
	// closed is set once the consumer has closed the channel.
	closed bool
	// mu protects the above fields.
	mu sync.Mutex

	// readyCh has a buffer of one and is signalled whenever the queue goes
	// from empty to non-empty.
	readyCh chan struct{}
}

func NewReplyChannel() *ReplyChannel {
	return &ReplyChannel{
		queue:   []Envelope{},
		mu:      sync.Mutex{},
		readyCh: make(chan struct{}, 1),
	}
}

// Push adds the reply to the back of the queue. This never blocks.
func (c *ReplyChannel) Push(e Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrReplyChannelClosed
	}

	c.queue = append(c.queue, e)
	if len(c.queue) == 1 {
		select {
		case c.readyCh <- struct{}{}:
		default:
		}
	}
	return nil
}

// Pop removes the reply at the front of the queue. It returns false if the
// queue is empty.
func (c *ReplyChannel) Pop() (Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return Envelope{}, false
	}

	e := c.queue[0]
	// Clear the reference so the payload can be collected.
	c.queue[0] = Envelope{}
	c.queue = c.queue[1:]

	// If replies remain re-signal so the consumer doesn't need to drain the
	// whole queue each time it wakes.
	if len(c.queue) > 0 {
		select {
		case c.readyCh <- struct{}{}:
		default:
		}
	}
	return e, true
}

// Ready returns a channel that receives a value when there may be replies to
// pop.
func (c *ReplyChannel) Ready() <-chan struct{} {
	return c.readyCh
}

func (c *ReplyChannel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.queue)
}

// Close stops accepting replies. Replies already queued can still be popped.
func (c *ReplyChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
}
