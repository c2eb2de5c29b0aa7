package internal

import (
	"errors"
	"fmt"

	"go.dedis.ch/protobuf"
)

var (
	// ErrDecode is returned when a received payload cannot be decoded.
	ErrDecode = errors.New("decode failed")
)

type wireEnvelope struct {
	Kind      uint32
	Payload   []byte
	Addressee *string
	Source    string
}

type wireSlot struct {
	Occupied bool
	Envelope wireEnvelope
}

type wireDirectoryEntry struct {
	PeerID string
	Name   string
}

type wireState struct {
	// Pointer and Slots are the raw ring log so the snapshot preserves
	// the remote cursor.
	Pointer   uint32
	Slots     []wireSlot
	Directory []wireDirectoryEntry
}

// EncodeEnvelope encodes the envelope. The encoding is deterministic.
func EncodeEnvelope(e Envelope) []byte {
	w := toWireEnvelope(e)
	return encode(&w)
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	var w wireEnvelope
	if err := decode(b, &w); err != nil {
		return Envelope{}, fmt.Errorf("envelope: %w", err)
	}
	e, err := fromWireEnvelope(w)
	if err != nil {
		return Envelope{}, fmt.Errorf("envelope: %w", err)
	}
	return e, nil
}

// EncodeState encodes a snapshot of the state. Directory entries are ordered
// by peer ID so the same state always has the same encoding.
func EncodeState(s *State) []byte {
	w := wireState{
		Pointer:   uint32(s.History.Pointer()),
		Slots:     make([]wireSlot, 0, HistorySize),
		Directory: []wireDirectoryEntry{},
	}
	for i := 0; i != HistorySize; i++ {
		e, ok := s.History.Get(i)
		if !ok {
			w.Slots = append(w.Slots, wireSlot{})
			continue
		}
		w.Slots = append(w.Slots, wireSlot{
			Occupied: true,
			Envelope: toWireEnvelope(e),
		})
	}
	for _, entry := range s.Directory.Entries() {
		w.Directory = append(w.Directory, wireDirectoryEntry{
			PeerID: entry.PeerID,
			Name:   entry.Name,
		})
	}
	return encode(&w)
}

func DecodeState(b []byte) (*State, error) {
	var w wireState
	if err := decode(b, &w); err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	if w.Pointer >= HistorySize {
		return nil, fmt.Errorf("state: %w: pointer out of range: %d", ErrDecode, w.Pointer)
	}
	if len(w.Slots) > HistorySize {
		return nil, fmt.Errorf("state: %w: too many slots: %d", ErrDecode, len(w.Slots))
	}

	values := make([]Envelope, len(w.Slots))
	occupied := make([]bool, len(w.Slots))
	for i, s := range w.Slots {
		if !s.Occupied {
			continue
		}
		e, err := fromWireEnvelope(s.Envelope)
		if err != nil {
			return nil, fmt.Errorf("state: slot %d: %w", i, err)
		}
		values[i] = e
		occupied[i] = true
	}

	directory := NewDirectory()
	for _, entry := range w.Directory {
		directory.Upsert(entry.PeerID, entry.Name)
	}

	return &State{
		History:   restoreRingLog(int(w.Pointer), values, occupied),
		Directory: directory,
	}, nil
}

func toWireEnvelope(e Envelope) wireEnvelope {
	return wireEnvelope{
		Kind:      uint32(e.Kind),
		Payload:   e.Payload,
		Addressee: e.Addressee,
		Source:    e.Source,
	}
}

func fromWireEnvelope(w wireEnvelope) (Envelope, error) {
	kind := Kind(w.Kind)
	if kind != KindMessage && kind != KindState {
		return Envelope{}, fmt.Errorf("%w: unrecognised kind: %d", ErrDecode, w.Kind)
	}
	if w.Source == "" {
		return Envelope{}, fmt.Errorf("%w: missing source", ErrDecode)
	}
	return Envelope{
		Kind:      kind,
		Payload:   w.Payload,
		Addressee: w.Addressee,
		Source:    w.Source,
	}, nil
}

func encode(v interface{}) []byte {
	b, err := protobuf.Encode(v)
	if err != nil {
		// The wire types only contain supported field types so this can only
		// fail if they are changed incorrectly.
		panic(fmt.Sprintf("failed to encode %T: %v", v, err))
	}
	return b
}

func decode(b []byte, v interface{}) (err error) {
	// Decoding untrusted input may panic on some malformed encodings.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDecode, r)
		}
	}()

	if len(b) == 0 {
		return fmt.Errorf("%w: empty payload", ErrDecode)
	}
	if err := protobuf.Decode(b, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
