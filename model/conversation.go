package model

import "time"

// Conversation is the ordered, append-only message history sent with every
// model request. It is owned by a single control flow and is not safe for
// concurrent use.
type Conversation struct {
	messages []Message
}

// NewConversation starts a history, optionally led by a system prompt.
func NewConversation(systemPrompt string) *Conversation {
	c := &Conversation{}
	if systemPrompt != "" {
		c.Append(Message{Role: RoleSystem, Content: systemPrompt})
	}
	return c
}

// Append adds messages at the end. Existing entries are never touched.
func (c *Conversation) Append(msgs ...Message) {
	now := time.Now()
	for _, msg := range msgs {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		if len(msg.ToolCalls) > 0 {
			calls := make([]ToolCall, len(msg.ToolCalls))
			copy(calls, msg.ToolCalls)
			msg.ToolCalls = calls
		}
		c.messages = append(c.messages, msg)
	}
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// FirstUserMessage returns the content of the first user message, used to name
// transcripts.
func (c *Conversation) FirstUserMessage() string {
	for _, msg := range c.messages {
		if msg.Role == RoleUser {
			return msg.Content
		}
	}
	return ""
}
