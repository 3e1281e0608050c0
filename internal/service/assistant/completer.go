package assistant

import (
	"context"

	"github.com/emolearn/emolearn/backend/internal/model/chat"
)

// FailureNotice is appended in place of a reply when reply acquisition fails.
const FailureNotice = "Sorry, I couldn't get a response right now. Please try again in a moment."

// Completer acquires assistant replies. Implementations may block; the
// orchestrator always calls them off its own lock.
type Completer interface {
	Complete(ctx context.Context, prompt string, mode chat.Mode) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string, mode chat.Mode) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string, mode chat.Mode) (string, error) {
	return f(ctx, prompt, mode)
}
