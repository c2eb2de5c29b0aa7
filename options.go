package gossipchat

import (
	"io"
	"os"

	"github.com/andydunstall/gossipchat/internal"
	"go.uber.org/zap"
)

const (
	DefaultTopic = "sylo"
)

// Notifier receives the user visible chat events, such as messages and peers
// joining or leaving.
type Notifier = internal.Notifier

type Options struct {
	// Topic is the name of the topic the chat is exchanged on. Only peers
	// subscribed to the same topic can talk to each other.
	// If not set defaults to "sylo".
	Topic string

	// Output is where chat events are printed. If nil chat events are not
	// printed.
	// If not set defaults to stdout.
	Output io.Writer

	// Color enables colouring peer names in the output.
	Color bool

	// Notifier is an optional subscriber to chat events, notified after the
	// output is written. Note it is invoked from the node event loop so must
	// not block.
	Notifier Notifier

	Logger *zap.Logger
}

type Option func(*Options)

func WithTopic(topic string) Option {
	return func(opts *Options) {
		opts.Topic = topic
	}
}

func WithOutput(w io.Writer) Option {
	return func(opts *Options) {
		opts.Output = w
	}
}

func WithColor(color bool) Option {
	return func(opts *Options) {
		opts.Color = color
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(opts *Options) {
		opts.Notifier = notifier
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

func defaultOptions() *Options {
	l, _ := zap.NewDevelopment()
	return &Options{
		Topic:    DefaultTopic,
		Output:   os.Stdout,
		Color:    false,
		Notifier: nil,
		Logger:   l,
	}
}
