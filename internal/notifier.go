package internal

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Notifier receives the user visible chat events.
type Notifier interface {
	// NotifyMessage is invoked when a message from the peer with the given
	// name is accepted.
	NotifyMessage(name string, text []byte)

	// NotifyJoin is invoked when a peer is merged into the directory.
	NotifyJoin(name string)

	// NotifyLeave is invoked when a peer leaves the chat.
	NotifyLeave(name string)
}

// Console is a Notifier that writes each event as a line of text.
type Console struct {
	w io.Writer
	// name formats peer names. If colour is disabled this is fmt.Sprint.
	name func(a ...interface{}) string
}

func NewConsole(w io.Writer, colored bool) *Console {
	c := &Console{
		w:    w,
		name: fmt.Sprint,
	}
	if colored {
		name := color.New(color.FgCyan, color.Bold)
		// Override the global NoColor detection since w may not be stdout.
		name.EnableColor()
		c.name = name.SprintFunc()
	}
	return c
}

func (c *Console) NotifyMessage(name string, text []byte) {
	fmt.Fprintf(c.w, "%s: %s\n", c.name(name), string(text))
}

func (c *Console) NotifyJoin(name string) {
	fmt.Fprintf(c.w, "%s has joined the chat!\n", c.name(name))
}

func (c *Console) NotifyLeave(name string) {
	fmt.Fprintf(c.w, "%s has left the chat.\n", c.name(name))
}

type multiNotifier []Notifier

// MultiNotifier returns a Notifier that forwards each event to all given
// notifiers in order. Nil notifiers are skipped.
func MultiNotifier(notifiers ...Notifier) Notifier {
	m := multiNotifier{}
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

func (m multiNotifier) NotifyMessage(name string, text []byte) {
	for _, n := range m {
		n.NotifyMessage(name, text)
	}
}

func (m multiNotifier) NotifyJoin(name string) {
	for _, n := range m {
		n.NotifyJoin(name)
	}
}

func (m multiNotifier) NotifyLeave(name string) {
	for _, n := range m {
		n.NotifyLeave(name)
	}
}
