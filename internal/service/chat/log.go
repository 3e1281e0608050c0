package chat

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/emolearn/emolearn/backend/internal/model/chat"
)

// Log is the append-only conversation of one assistant session. Insertion
// order is the only order; nothing is ever reordered or edited.
//
// A Log is owned by a single orchestrator and is not safe for concurrent use.
type Log struct {
	clock    clockwork.Clock
	messages []chat.Message
}

// NewLog returns an empty log stamping messages with the given clock.
func NewLog(clock clockwork.Clock) *Log {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Log{clock: clock, messages: make([]chat.Message, 0, 16)}
}

// Append records a new message and returns it.
func (l *Log) Append(sender chat.Sender, body string) chat.Message {
	now := l.clock.Now()
	message := chat.Message{
		ID:     uuid.NewString(),
		Sender: sender,
		Body:   body,
		SentAt: now.UTC(),
		Stamp:  now.Format(chat.StampLayout),
	}
	l.messages = append(l.messages, message)
	return message
}

// Messages returns a copy of the conversation in insertion order.
func (l *Log) Messages() []chat.Message {
	copied := make([]chat.Message, len(l.messages))
	copy(copied, l.messages)
	return copied
}

// Len returns the number of messages.
func (l *Log) Len() int {
	return len(l.messages)
}

// Last returns the most recent message.
func (l *Log) Last() (chat.Message, bool) {
	if len(l.messages) == 0 {
		return chat.Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// LastFrom returns the most recent message authored by sender.
func (l *Log) LastFrom(sender chat.Sender) (chat.Message, bool) {
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Sender == sender {
			return l.messages[i], true
		}
	}
	return chat.Message{}, false
}

// Reset discards every message.
func (l *Log) Reset() {
	l.messages = l.messages[:0:0]
}
