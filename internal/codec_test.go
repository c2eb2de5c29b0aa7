package internal

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_EncodeAndDecodeEnvelope(t *testing.T) {
	addressee := "peer-2"
	tests := []struct {
		Name     string
		Envelope Envelope
	}{
		{
			Name:     "broadcast message",
			Envelope: NewMessage("peer-1", "hello"),
		},
		{
			Name: "addressed state",
			Envelope: Envelope{
				Kind:      KindState,
				Payload:   []byte{0x1, 0x2, 0x3},
				Addressee: &addressee,
				Source:    "peer-1",
			},
		},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			b := EncodeEnvelope(test.Envelope)

			decoded, err := DecodeEnvelope(b)
			require.Nil(t, err)
			assert.Equal(t, test.Envelope, decoded)
		})
	}
}

func TestCodec_EncodeEnvelopeIsDeterministic(t *testing.T) {
	e := NewMessage("peer-1", "hello")
	assert.Equal(t, EncodeEnvelope(e), EncodeEnvelope(e))
}

func TestCodec_DecodeInvalidEnvelope(t *testing.T) {
	tests := []struct {
		Name string
		Buf  []byte
	}{
		{Name: "empty", Buf: []byte{}},
		{Name: "garbage", Buf: []byte("garbage")},
		{Name: "truncated", Buf: EncodeEnvelope(NewMessage("peer-1", "hello"))[:3]},
		{Name: "unknown kind", Buf: EncodeEnvelope(Envelope{Kind: 7, Source: "peer-1"})},
		{Name: "missing source", Buf: EncodeEnvelope(Envelope{Kind: KindMessage, Payload: []byte("x")})},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			_, err := DecodeEnvelope(test.Buf)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestCodec_EncodeAndDecodeState(t *testing.T) {
	s := NewState()
	s.Directory.Upsert("peer-1", "alice")
	s.Directory.Upsert("peer-2", "bob")
	// Wrap the history so the cursor isn't at 0.
	for i := 0; i != HistorySize+4; i++ {
		s.History.Insert(NewMessage("peer-1", fmt.Sprintf("msg-%d", i)))
	}

	decoded, err := DecodeState(EncodeState(s))
	require.Nil(t, err)

	assert.Equal(t, s.Directory.Entries(), decoded.Directory.Entries())
	assert.Equal(t, slices.Collect(s.History.All()), slices.Collect(decoded.History.All()))
	assert.Equal(t, s.History.Count(), decoded.History.Count())
	assert.Equal(t, s.History.Pointer(), decoded.History.Pointer())
}

func TestCodec_EncodeAndDecodePartialState(t *testing.T) {
	s := NewState()
	s.Directory.Upsert("peer-1", "alice")
	s.History.Insert(NewMessage("peer-1", "msg-1"))
	s.History.Insert(NewMessage("peer-1", "msg-2"))

	decoded, err := DecodeState(EncodeState(s))
	require.Nil(t, err)

	assert.Equal(t, 2, decoded.History.Count())
	assert.Equal(t, slices.Collect(s.History.All()), slices.Collect(decoded.History.All()))
}

func TestCodec_EncodeStateIsDeterministic(t *testing.T) {
	s := NewState()
	for i := 0; i != 10; i++ {
		s.Directory.Upsert(fmt.Sprintf("peer-%d", i), fmt.Sprintf("user-%d", i))
	}
	s.History.Insert(NewMessage("peer-1", "hello"))

	assert.Equal(t, EncodeState(s), EncodeState(s))
}

func TestCodec_DecodeInvalidState(t *testing.T) {
	_, err := DecodeState([]byte("garbage"))
	assert.ErrorIs(t, err, ErrDecode)
}
