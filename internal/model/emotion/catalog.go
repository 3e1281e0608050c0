package emotion

import "github.com/emolearn/emolearn/backend/internal/model/chat"

// DefaultGreeting seeds a conversation when no emotion-specific greeting applies.
const DefaultGreeting = "Hi! I'm here to help optimize your learning experience. How can I assist you today?"

// DefaultConfirmPrompt is shown on the confirm prompt for symbols without a dedicated text.
const DefaultConfirmPrompt = "Want to chat with the AI Assistant?"

var greetings = map[Symbol]string{
	Confused:   "I noticed you seem confused. Would you like me to explain this concept differently or provide additional examples?",
	Frustrated: "You seem frustrated. Let's take a step back. Would you like a quick breathing exercise or shall I break this down into smaller parts?",
	Sleepy:     "Feeling a bit drowsy? Let's energize your learning! How about a quick interactive quiz or a short break?",
	Bored:      "I can see you might be losing interest. Let's make this more engaging! Want to try a hands-on simulation?",
	Unknown:    "I'm here to help optimize your learning experience. How can I assist you today?",
}

var confirmPrompts = map[Symbol]string{
	Confused:   "You seem confused. Want to open AI Assistant?",
	Frustrated: "You seem frustrated. Want to open AI Assistant?",
	Sleepy:     "Feeling sleepy? Need a quick quiz or break?",
	Bored:      "Losing interest? Want something more engaging?",
	Unknown:    "Need help? Want to chat with AI Assistant?",
}

// Greeting returns the assistant's opening message for the symbol.
func Greeting(s Symbol) string {
	if text, ok := greetings[s]; ok {
		return text
	}
	return DefaultGreeting
}

// ConfirmPrompt returns the short yes/no question shown before a chat opens.
func ConfirmPrompt(s Symbol) string {
	if text, ok := confirmPrompts[s]; ok {
		return text
	}
	return DefaultConfirmPrompt
}

// InterventionKind tells the display surface how an option is fulfilled.
type InterventionKind string

const (
	// InterventionReply options are answered through reply acquisition.
	InterventionReply InterventionKind = "reply"
	// InterventionPanel options open an auxiliary panel owned by the display surface.
	InterventionPanel InterventionKind = "panel"
)

// Intervention is one of the auxiliary action buttons under the chat.
type Intervention struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Kind        InterventionKind `json:"kind"`
	Mode        chat.Mode        `json:"mode,omitempty"`
}

// Interventions lists the action buttons in display order.
func Interventions() []Intervention {
	return []Intervention{
		{ID: "explain", Title: "Explain Differently", Description: "Im 5 mode", Kind: InterventionReply, Mode: chat.ModeExplainSimply},
		{ID: "story", Title: "Story Mode", Description: "Concepts as stories", Kind: InterventionReply, Mode: chat.ModeStory},
		{ID: "quiz", Title: "Quick Quiz", Description: "Test your understanding", Kind: InterventionReply, Mode: chat.ModeQuiz},
		{ID: "resources", Title: "Study Resources", Description: "Additional materials", Kind: InterventionReply, Mode: chat.ModeResources},
		{ID: "summarize", Title: "Summarize the Class", Description: "Summarize YouTube videos", Kind: InterventionPanel, Mode: chat.ModeVideoSummary},
		{ID: "games", Title: "Games", Description: "Play interactive games", Kind: InterventionPanel},
		{ID: "tutor", Title: "AI Tutor", Description: "Learn any topic with AI", Kind: InterventionPanel},
	}
}
