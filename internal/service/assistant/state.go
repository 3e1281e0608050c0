package assistant

import (
	"time"

	"github.com/emolearn/emolearn/backend/internal/model/chat"
	"github.com/emolearn/emolearn/backend/internal/model/emotion"
	"github.com/emolearn/emolearn/backend/pkg/markup"
)

// MessageView is a conversation message together with its rendered form.
type MessageView struct {
	chat.Message
	HTML string `json:"html"`
}

func newMessageView(m chat.Message) MessageView {
	return MessageView{Message: m, HTML: markup.Render(m.Body)}
}

// State is a point-in-time copy of an orchestrator session.
type State struct {
	ID                 string          `json:"id"`
	Visibility         chat.Visibility `json:"visibility"`
	CurrentEmotion     emotion.Symbol  `json:"currentEmotion"`
	PendingEmotion     *emotion.Symbol `json:"pendingEmotion,omitempty"`
	TriggeredByEmotion bool            `json:"triggeredByEmotion"`
	CooldownActive     bool            `json:"cooldownActive"`
	OpenScheduled      bool            `json:"openScheduled"`
	ConfirmPrompt      string          `json:"confirmPrompt,omitempty"`
	Draft              string          `json:"draft"`
	PendingReplies     int             `json:"pendingReplies"`
	Messages           []MessageView   `json:"messages"`
}

// EventType names an orchestrator notification.
type EventType string

const (
	// EventPrompt fires when the confirm prompt becomes visible.
	EventPrompt EventType = "prompt"
	// EventChat fires when the chat panel opens.
	EventChat EventType = "chat"
	// EventClosed fires when visibility returns to closed. Hosts tear down
	// their outer container on it.
	EventClosed EventType = "closed"
	// EventMessage fires for every message appended to the conversation.
	EventMessage EventType = "message"
	// EventCooldown fires when the proactive-prompt cooldown starts or ends.
	EventCooldown EventType = "cooldown"
)

// Close reasons carried by EventClosed.
const (
	CloseReasonExplicit = "explicit"
	CloseReasonTimeout  = "timeout"
	CloseReasonShutdown = "shutdown"
)

// Event is delivered to subscribers after each state change.
type Event struct {
	Type      EventType    `json:"type"`
	SessionID string       `json:"sessionId"`
	Reason    string       `json:"reason,omitempty"`
	Message   *MessageView `json:"message,omitempty"`
	State     State        `json:"state"`
	At        time.Time    `json:"at"`
}
