package internal

// State is this nodes view of the chat, containing the recent message history
// and the names of known peers. This is the unit sent to peers joining the
// chat.
//
// Note this is not thread safe. It must only be accessed from the node event
// loop.
type State struct {
	History   *RingLog[Envelope]
	Directory *Directory
}

func NewState() *State {
	return &State{
		History:   NewRingLog[Envelope](),
		Directory: NewDirectory(),
	}
}
