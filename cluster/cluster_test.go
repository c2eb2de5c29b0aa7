package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCluster_WaitForHealthy(t *testing.T) {
	c := NewCluster(zap.NewNop())
	defer c.Shutdown()

	require.Nil(t, c.AddNodes(4))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.Nil(t, c.WaitForHealthy(ctx))
}

// Tests a node that joins a cluster with existing messages receives the
// history.
func TestCluster_NewNodeReceivesHistory(t *testing.T) {
	c := NewCluster(zap.NewNop())
	defer c.Shutdown()

	node, err := c.AddNode()
	require.Nil(t, err)
	other, err := c.AddNode()
	require.Nil(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.Nil(t, c.WaitForHealthy(ctx))

	node.Send("msg1")
	node.Send("msg2")
	// Wait for the messages to reach the other node so whichever state the
	// new node merges first contains the full history.
	require.Nil(t, c.WaitToReceive(ctx, other.ID, 2))

	joined, err := c.AddNode()
	require.Nil(t, err)
	assert.Nil(t, c.WaitToReceive(ctx, joined.ID, 2))
}

func TestCluster_RemoveNode(t *testing.T) {
	c := NewCluster(zap.NewNop())
	defer c.Shutdown()

	node, err := c.AddNode()
	require.Nil(t, err)
	other, err := c.AddNode()
	require.Nil(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.Nil(t, c.WaitForHealthy(ctx))

	assert.Nil(t, c.RemoveNode(node.ID))
	assert.NotNil(t, c.RemoveNode(node.ID))

	assert.Eventually(t, func() bool {
		return !other.KnownUser(node.Username)
	}, 3*time.Second, 10*time.Millisecond)
}
