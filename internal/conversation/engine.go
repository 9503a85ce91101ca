package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/assure/inspectd/internal/completion"
)

// Completer is the external text-completion service.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (string, error)
}

// Framing fixes how a conversation presents its document to the model.
// System is sent unchanged on every turn.
type Framing struct {
	System         string
	Preamble       string // e.g. "Here is the inspection report:"
	DocumentTag    string // e.g. "INSPECTION_REPORT"
	QuestionPrefix string // e.g. "Customer Question:"
	MaxTokens      int
}

// firstMessage grounds the model in the full document exactly once.
func (f Framing) firstMessage(documentText, question string) string {
	return fmt.Sprintf("%s\n\n<%s>\n%s\n</%s>\n\n%s %s",
		f.Preamble, f.DocumentTag, documentText, f.DocumentTag, f.QuestionPrefix, question)
}

// Engine answers questions against one document, accumulating turns.
// Calls to Answer on the same Engine are serialized.
type Engine struct {
	mu        sync.Mutex
	state     *State
	completer Completer
	framing   Framing
}

// NewEngine wraps state with the given completer and framing.
func NewEngine(state *State, completer Completer, framing Framing) *Engine {
	return &Engine{state: state, completer: completer, framing: framing}
}

// Answer sends the next turn and returns the model's text verbatim. The
// first turn embeds the document; later turns send the bare question.
// question must already be trimmed and non-empty.
//
// If the completion fails the user turn is removed again, so a retry sends
// the same framing as the failed attempt.
func (e *Engine) Answer(ctx context.Context, question string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	content := question
	if s.turns == 0 {
		content = e.framing.firstMessage(s.documentText, question)
	}

	s.history = append(s.history, completion.Message{Role: completion.RoleUser, Content: content})

	answer, err := e.completer.Complete(ctx, completion.Request{
		System:    e.framing.System,
		Messages:  s.History(),
		MaxTokens: e.framing.MaxTokens,
	})
	if err != nil {
		s.history = s.history[:len(s.history)-1]
		return "", fmt.Errorf("answering turn %d: %w", s.turns+1, err)
	}

	s.history = append(s.history, completion.Message{Role: completion.RoleAssistant, Content: answer})
	s.turns++
	return answer, nil
}

// Turns returns the number of completed exchanges.
func (e *Engine) Turns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.turns
}

// History returns a snapshot of the conversation so far.
func (e *Engine) History() []completion.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.History()
}

// DocumentText returns the grounding text the engine was created with.
func (e *Engine) DocumentText() string {
	return e.state.documentText
}
