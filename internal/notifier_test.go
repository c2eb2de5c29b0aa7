package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsole_Output(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.NotifyJoin("bob")
	c.NotifyMessage("bob", []byte("hello"))
	c.NotifyLeave("bob")

	assert.Equal(t, "bob has joined the chat!\nbob: hello\nbob has left the chat.\n", buf.String())
}

func TestConsole_ColoredName(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	c.NotifyMessage("bob", []byte("hello"))

	assert.Contains(t, buf.String(), "bob")
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), ": hello\n")
}

func TestMultiNotifier(t *testing.T) {
	n1 := newFakeNotifier()
	n2 := newFakeNotifier()
	m := MultiNotifier(n1, nil, n2)

	m.NotifyJoin("bob")
	m.NotifyMessage("bob", []byte("hello"))
	m.NotifyLeave("bob")

	for _, n := range []*fakeNotifier{n1, n2} {
		assert.Equal(t, []string{"bob"}, n.joined)
		assert.Equal(t, []string{"bob: hello"}, n.messages)
		assert.Equal(t, []string{"bob"}, n.left)
	}
}
