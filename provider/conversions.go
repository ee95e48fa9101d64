package provider

import (
	"encoding/json"
	"strings"

	"github.com/ollama/ollama/api"

	"toolcall/model"
)

// ConvertToOllamaMessages converts model.Message to Ollama api.Message.
//
// Assistant tool calls and the tool name of tool results are carried over so
// the model can pair each result with its request. Timestamps are dropped.
//
// When escapeSystem is true, quotes in system messages are escaped. Ollama has
// a known issue where unescaped quotes in system prompts break tool calling
// (https://github.com/ollama/ollama/issues/12751), so the Ollama provider sets
// it whenever tools are offered.
func ConvertToOllamaMessages(messages []model.Message, escapeSystem bool) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		content := msg.Content
		if escapeSystem && msg.Role == model.RoleSystem {
			content = escapeQuotesForOllama(content)
		}
		result[i] = api.Message{
			Role:      msg.Role,
			Content:   content,
			ToolCalls: ConvertFromProviderToolCalls(msg.ToolCalls),
			ToolName:  msg.ToolName,
		}
	}
	return result
}

// ConvertFromOllamaMessages converts Ollama api.Message to model.Message.
//
// The Timestamp field is left zero; Conversation.Append fills it in.
func ConvertFromOllamaMessages(messages []api.Message) []model.Message {
	result := make([]model.Message, len(messages))
	for i, msg := range messages {
		result[i] = model.Message{
			Role:      msg.Role,
			Content:   msg.Content,
			ToolCalls: ConvertToProviderToolCalls(msg.ToolCalls),
			ToolName:  msg.ToolName,
		}
	}
	return result
}

func escapeQuotesForOllama(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return s
}

// ParseToolArguments parses a JSON arguments string into a map.
// Used by the OpenAI provider, which receives arguments as text. Unparseable
// input yields an empty map so the tool reports the missing arguments.
func ParseToolArguments(argsJSON string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil || args == nil {
		return make(map[string]any)
	}
	return args
}

// encodeToolArguments is the inverse of ParseToolArguments.
func encodeToolArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	out, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// ConvertToProviderToolCalls converts Ollama api.ToolCall to model.ToolCall.
//
// Returns nil if the input is nil or empty, maintaining the same nil semantics as
// the Ollama API.
func ConvertToProviderToolCalls(ollamaCalls []api.ToolCall) []model.ToolCall {
	if len(ollamaCalls) == 0 {
		return nil
	}

	result := make([]model.ToolCall, len(ollamaCalls))
	for i, call := range ollamaCalls {
		result[i] = model.ToolCall{
			Name:      call.Function.Name,
			Arguments: map[string]any(call.Function.Arguments),
		}
	}
	return result
}

// ConvertFromProviderToolCalls converts model.ToolCall back to Ollama
// api.ToolCall, used when replaying assistant messages that requested tools.
//
// Returns nil if the input is nil or empty.
func ConvertFromProviderToolCalls(providerCalls []model.ToolCall) []api.ToolCall {
	if len(providerCalls) == 0 {
		return nil
	}

	result := make([]api.ToolCall, len(providerCalls))
	for i, call := range providerCalls {
		result[i] = api.ToolCall{
			Function: api.ToolCallFunction{
				Index:     i,
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		}
	}
	return result
}

// answeredCallIDs collects the IDs of calls that have a tool result in
// messages.
func answeredCallIDs(messages []model.Message) map[string]bool {
	answered := make(map[string]bool)
	for _, msg := range messages {
		if msg.Role == model.RoleTool && msg.ToolCallID != "" {
			answered[msg.ToolCallID] = true
		}
	}
	return answered
}

// unanswered reports whether call has an ID but no tool result, as happens
// when the dispatcher skips an unknown tool. OpenAI and Anthropic reject a
// replayed call without its result. Calls without an ID cannot be paired and
// are kept.
func unanswered(call model.ToolCall, answered map[string]bool) bool {
	return call.ID != "" && !answered[call.ID]
}
