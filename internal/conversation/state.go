// Package conversation holds per-report question answering state and the
// bounded cache that keeps a limited number of conversations resident.
package conversation

import "github.com/assure/inspectd/internal/completion"

// State is the conversational context of one document: the immutable source
// text, the ordered user/assistant history, and the number of completed turns.
//
// len(history) == 2*turns holds between calls to Engine.Answer.
type State struct {
	documentText string
	history      []completion.Message
	turns        int
}

// NewState creates an empty conversation over documentText.
func NewState(documentText string) *State {
	return &State{documentText: documentText}
}

func (s *State) DocumentText() string { return s.documentText }

func (s *State) TurnCount() int { return s.turns }

// History returns a copy of the turn history in conversational order.
func (s *State) History() []completion.Message {
	out := make([]completion.Message, len(s.history))
	copy(out, s.history)
	return out
}
