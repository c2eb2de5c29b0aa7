package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/andydunstall/gossipchat/cluster"
	"github.com/andydunstall/gossipchat/internal"
	"github.com/spf13/cobra"
)

var (
	clusterSize int
	messages    int
)

func init() {
	bootstrapCmd.Flags().IntVar(&clusterSize, "nodes", 16, "number of nodes in the cluster")
	bootstrapCmd.Flags().IntVar(&messages, "messages", 32, "number of messages sent before the new node joins")

	rootCmd.AddCommand(bootstrapCmd)
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Measure the time for a new node to bootstrap the chat history",
	Run: func(cmd *cobra.Command, args []string) {
		logger, err := newLogger()
		if err != nil {
			log.Fatalf("failed to create logger: %v", err)
		}

		c := cluster.NewCluster(logger)
		defer c.Shutdown()

		sender, err := c.AddNode()
		if err != nil {
			log.Fatalf("failed to add node: %v", err)
		}
		if err := c.AddNodes(clusterSize - 1); err != nil {
			log.Fatalf("failed to add nodes: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		if err := c.WaitForHealthy(ctx); err != nil {
			log.Fatalf("timed out waiting for cluster to become healthy: %v", err)
		}

		for i := 0; i != messages; i++ {
			sender.Send(fmt.Sprintf("msg-%d", i))
		}
		for _, node := range c.Nodes() {
			if node.ID == sender.ID {
				continue
			}
			if err := c.WaitToReceive(ctx, node.ID, messages); err != nil {
				log.Fatalf("timed out waiting for messages to propagate: %v", err)
			}
		}

		start := time.Now()
		node, err := c.AddNode()
		if err != nil {
			log.Fatalf("failed to add node: %v", err)
		}

		// The history only holds the most recent messages.
		expected := min(messages, internal.HistorySize)
		if err = c.WaitToReceive(ctx, node.ID, expected); err != nil {
			log.Fatalf("timed out waiting for node to bootstrap: %v", err)
		}
		fmt.Printf("bootstrapped %d messages in %s\n", expected, time.Since(start))
	},
}
