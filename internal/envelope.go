package internal

import (
	"go.uber.org/zap/zapcore"
)

type Kind uint32

const (
	KindMessage Kind = 1
	KindState   Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Envelope is the unit exchanged between nodes.
type Envelope struct {
	Kind    Kind
	Payload []byte
	// Addressee is the ID of the only node that should process the envelope.
	// If nil the envelope is a broadcast processed by every node.
	Addressee *string
	// Source is the ID of the node that created the envelope.
	Source string
}

func NewMessage(source string, text string) Envelope {
	return Envelope{
		Kind:    KindMessage,
		Payload: []byte(text),
		Source:  source,
	}
}

// AddressedTo returns true if the node with the given ID should process the
// envelope.
func (e Envelope) AddressedTo(peerID string) bool {
	return e.Addressee == nil || *e.Addressee == peerID
}

func (e Envelope) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("kind", e.Kind.String())
	enc.AddString("source", e.Source)
	if e.Addressee != nil {
		enc.AddString("addressee", *e.Addressee)
	}
	enc.AddInt("payload-size", len(e.Payload))
	return nil
}
