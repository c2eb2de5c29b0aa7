// gossipchat runs a peer-to-peer chat node, and contains tools for
// evaluating the chat in a local cluster.
package main

import (
	"github.com/andydunstall/gossipchat/cmd/gossipchat/cmd"
)

func main() {
	cmd.Execute()
}
