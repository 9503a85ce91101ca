// Package completion talks to hosted and local text-completion providers.
// Every provider exposes the same Complete call: a system instruction plus an
// ordered message history in, one assistant text out.
package completion

import (
	"context"
	"fmt"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

const defaultMaxTokens = 1024

// Message is one role-tagged turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

func (r Request) maxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return defaultMaxTokens
}

// Completer is implemented by every provider client.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderError wraps a failure reported by (or while reaching) a provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s completion: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
