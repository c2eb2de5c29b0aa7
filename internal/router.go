package internal

import (
	"go.uber.org/zap"
)

// Router handles envelopes received from the chat topic and builds the
// replies to send when peers join.
//
// The router never publishes itself. Any reply is returned to the caller,
// which owns publishing.
type Router struct {
	// selfID is the ID of the local node.
	selfID   string
	notifier Notifier
	logger   *zap.Logger
}

func NewRouter(selfID string, notifier Notifier, logger *zap.Logger) *Router {
	return &Router{
		selfID:   selfID,
		notifier: notifier,
		logger:   logger,
	}
}

// HandleInbound handles the raw payload received from the peer with the
// given ID. It returns the reply to send, if any.
//
// Payloads that can't be decoded are dropped and return an error. Envelopes
// addressed to another node are discarded without error.
func (r *Router) HandleInbound(raw []byte, source string, local *State) (*Envelope, error) {
	e, err := DecodeEnvelope(raw)
	if err != nil {
		r.logger.Error(
			"failed to decode envelope",
			zap.String("source", source),
			zap.Error(err),
		)
		return nil, err
	}

	// Envelopes are broadcast to all subscribers, so discard those addressed
	// to other nodes.
	if !e.AddressedTo(r.selfID) {
		r.logger.Debug("discarding envelope addressed to another node", zap.Object("envelope", e))
		return nil, nil
	}

	switch e.Kind {
	case KindMessage:
		r.notifier.NotifyMessage(local.Directory.Resolve(source), e.Payload)
		local.History.Insert(e)
		return nil, nil
	case KindState:
		r.logger.Info("state received", zap.String("source", source))

		remote, err := DecodeState(e.Payload)
		if err != nil {
			r.logger.Error(
				"failed to decode state",
				zap.String("source", source),
				zap.Error(err),
			)
			return nil, err
		}
		Merge(local, remote, r.notifier)
		return nil, nil
	}

	// DecodeEnvelope rejects unknown kinds.
	return nil, nil
}

// OnPeerJoinedTopic returns a state envelope containing a snapshot of the
// local state, addressed to the peer that joined.
func (r *Router) OnPeerJoinedTopic(peerID string, local *State) Envelope {
	r.logger.Info("sending state", zap.String("addressee", peerID))

	addressee := peerID
	return Envelope{
		Kind:      KindState,
		Payload:   EncodeState(local),
		Addressee: &addressee,
		Source:    r.selfID,
	}
}

// OnPeerLeftTopic removes the peer that left from the directory.
func (r *Router) OnPeerLeftTopic(peerID string, local *State) {
	name, ok := local.Directory.Remove(peerID)
	if !ok {
		name = FallbackName
	}
	r.notifier.NotifyLeave(name)
}
