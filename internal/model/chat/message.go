package chat

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// StampLayout formats SentAt as the hour:minute time-of-day shown in the chat.
const StampLayout = "15:04"

// Message is one immutable turn in a conversation.
type Message struct {
	ID     string    `json:"id"`
	Sender Sender    `json:"sender"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sentAt"`
	Stamp  string    `json:"stamp"`
}
