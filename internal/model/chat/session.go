package chat

// Visibility is the orchestrator's display state.
type Visibility string

const (
	VisibilityClosed        Visibility = "closed"
	VisibilityConfirmPrompt Visibility = "confirm-prompt"
	VisibilityChatOpen      Visibility = "chat-open"
)

// Open reports whether anything is shown to the learner.
func (v Visibility) Open() bool {
	return v == VisibilityConfirmPrompt || v == VisibilityChatOpen
}
