package floodsub

import (
	"fmt"

	"go.dedis.ch/protobuf"
)

type frameType uint32

const (
	typePublish     frameType = 1
	typeSubscribe   frameType = 2
	typeUnsubscribe frameType = 3
)

func (t frameType) String() string {
	switch t {
	case typePublish:
		return "publish"
	case typeSubscribe:
		return "subscribe"
	case typeUnsubscribe:
		return "unsubscribe"
	default:
		return "unknown"
	}
}

// frame is the unit floodsub exchanges with peers.
type frame struct {
	Type  uint32
	From  string
	Topic string
	Data  []byte
}

func encodeFrame(f *frame) ([]byte, error) {
	b, err := protobuf.Encode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %v", err)
	}
	return b, nil
}

func decodeFrame(b []byte) (f *frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to decode frame: %v", r)
		}
	}()

	if len(b) == 0 {
		return nil, fmt.Errorf("failed to decode frame: empty frame")
	}

	f = &frame{}
	if err := protobuf.Decode(b, f); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %v", err)
	}

	switch frameType(f.Type) {
	case typePublish, typeSubscribe, typeUnsubscribe:
	default:
		return nil, fmt.Errorf("failed to decode frame: unrecognised type: %d", f.Type)
	}
	if f.From == "" {
		return nil, fmt.Errorf("failed to decode frame: missing sender")
	}
	if f.Topic == "" {
		return nil, fmt.Errorf("failed to decode frame: missing topic")
	}
	return f, nil
}
