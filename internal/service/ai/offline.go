package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/emolearn/emolearn/backend/internal/model/chat"
)

// OfflineCompleter answers without a model so the overlay stays usable in
// development and demos.
type OfflineCompleter struct{}

// NewOfflineCompleter returns the canned-reply provider.
func NewOfflineCompleter() OfflineCompleter {
	return OfflineCompleter{}
}

// Complete returns a canned reply for the mode.
func (OfflineCompleter) Complete(ctx context.Context, prompt string, mode chat.Mode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	topic := strings.TrimSpace(prompt)
	if runes := []rune(topic); len(runes) > 80 {
		topic = string(runes[:80]) + "..."
	}

	switch mode {
	case chat.ModeVideoSummary:
		return "I can't watch videos while offline, but paste the key points here and I'll help you **summarise** them.", nil
	case chat.ModeExplainSimply:
		return fmt.Sprintf("Imagine *%s* is a toy you take apart piece by piece. Which piece should we look at first?", topic), nil
	case chat.ModeStory:
		return fmt.Sprintf("Once upon a time, a curious student met *%s*...\n\n**Takeaway:** every big idea starts small.", topic), nil
	case chat.ModeQuiz:
		return fmt.Sprintf("## Quick Quiz\n\n**1.** In your own words, what is the main idea of *%s*?", topic), nil
	case chat.ModeResources:
		return "# Study Resources\n\n- Your course notes\n- Khan Academy\n- Practice problems from the textbook", nil
	default:
		return fmt.Sprintf("I'm offline right now, but let's think about it together: what part of \"%s\" is unclear?", topic), nil
	}
}
