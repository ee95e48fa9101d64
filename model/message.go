package model

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a provider-agnostic request from the model to run a named tool.
// ID is empty for providers that do not assign call IDs (Ollama).
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Message is one entry of the conversation history.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall // assistant messages only
	ToolName   string     // tool messages only
	ToolCallID string     // tool messages only, echoes ToolCall.ID
	IsError    bool       // tool messages only: the call itself failed
	Timestamp  time.Time
}

// HasToolCalls reports whether the message asks the host to run tools.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}
