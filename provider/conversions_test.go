package provider

import (
	"testing"
	"time"

	"github.com/ollama/ollama/api"

	"toolcall/model"
)

func TestConvertToOllamaMessages(t *testing.T) {
	tests := []struct {
		name     string
		input    []model.Message
		expected []api.Message
	}{
		{
			name:     "empty slice",
			input:    []model.Message{},
			expected: []api.Message{},
		},
		{
			name: "plain conversation",
			input: []model.Message{
				{Role: "user", Content: "Hello", Timestamp: time.Now()},
				{Role: "assistant", Content: "Hi there", Timestamp: time.Now()},
			},
			expected: []api.Message{
				{Role: "user", Content: "Hello"},
				{Role: "assistant", Content: "Hi there"},
			},
		},
		{
			name: "tool result keeps tool name",
			input: []model.Message{
				{Role: "tool", Content: `{"duration":"3h 30m"}`, ToolName: "get_flight_times", ToolCallID: "call_1"},
			},
			expected: []api.Message{
				{Role: "tool", Content: `{"duration":"3h 30m"}`, ToolName: "get_flight_times"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertToOllamaMessages(tt.input, false)

			if len(result) != len(tt.expected) {
				t.Fatalf("length mismatch: got %d, want %d", len(result), len(tt.expected))
			}

			for i, msg := range result {
				if msg.Role != tt.expected[i].Role {
					t.Errorf("message %d role: got %q, want %q", i, msg.Role, tt.expected[i].Role)
				}
				if msg.Content != tt.expected[i].Content {
					t.Errorf("message %d content: got %q, want %q", i, msg.Content, tt.expected[i].Content)
				}
				if msg.ToolName != tt.expected[i].ToolName {
					t.Errorf("message %d tool name: got %q, want %q", i, msg.ToolName, tt.expected[i].ToolName)
				}
			}
		})
	}
}

func TestConvertToOllamaMessagesCarriesToolCalls(t *testing.T) {
	input := []model.Message{{
		Role: "assistant",
		ToolCalls: []model.ToolCall{
			{ID: "call_1", Name: "get_flight_times", Arguments: map[string]any{"departure": "NYC", "arrival": "LAX"}},
		},
	}}

	result := ConvertToOllamaMessages(input, false)
	if len(result[0].ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(result[0].ToolCalls))
	}
	fn := result[0].ToolCalls[0].Function
	if fn.Name != "get_flight_times" || fn.Arguments["departure"] != "NYC" {
		t.Errorf("tool call = %+v", fn)
	}
}

func TestConvertToOllamaMessagesEscapesSystemPrompt(t *testing.T) {
	input := []model.Message{
		{Role: "system", Content: `Say "hi" and don't stop`},
		{Role: "user", Content: `a "quoted" question`},
	}

	escaped := ConvertToOllamaMessages(input, true)
	if escaped[0].Content != `Say \"hi\" and don\'t stop` {
		t.Errorf("system content = %q", escaped[0].Content)
	}
	if escaped[1].Content != `a "quoted" question` {
		t.Errorf("user content must not be escaped, got %q", escaped[1].Content)
	}

	plain := ConvertToOllamaMessages(input, false)
	if plain[0].Content != input[0].Content {
		t.Errorf("system content escaped without tools: %q", plain[0].Content)
	}
}

func TestConvertFromOllamaMessages(t *testing.T) {
	input := []api.Message{
		{Role: "assistant", Content: "Hello back"},
		{
			Role: "assistant",
			ToolCalls: []api.ToolCall{{
				Function: api.ToolCallFunction{
					Name:      "get_flight_times",
					Arguments: api.ToolCallFunctionArguments{"departure": "CDG", "arrival": "DXB"},
				},
			}},
		},
	}

	result := ConvertFromOllamaMessages(input)
	if len(result) != 2 {
		t.Fatalf("got %d messages, want 2", len(result))
	}
	if result[0].Content != "Hello back" || !result[0].Timestamp.IsZero() {
		t.Errorf("message 0 = %+v", result[0])
	}
	if !result[1].HasToolCalls() || result[1].ToolCalls[0].Arguments["arrival"] != "DXB" {
		t.Errorf("message 1 tool calls = %+v", result[1].ToolCalls)
	}
}

func TestToolCallConversionNilSemantics(t *testing.T) {
	if ConvertToProviderToolCalls(nil) != nil {
		t.Error("ConvertToProviderToolCalls(nil) should be nil")
	}
	if ConvertToProviderToolCalls([]api.ToolCall{}) != nil {
		t.Error("ConvertToProviderToolCalls(empty) should be nil")
	}
	if ConvertFromProviderToolCalls(nil) != nil {
		t.Error("ConvertFromProviderToolCalls(nil) should be nil")
	}
}

func TestParseToolArguments(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
	}{
		{"valid", `{"departure":"NYC","arrival":"LAX"}`, 2},
		{"empty object", `{}`, 0},
		{"empty string", ``, 0},
		{"not json", `departure=NYC`, 0},
		{"json null", `null`, 0},
		{"json array", `["NYC"]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseToolArguments(tt.input)
			if got == nil {
				t.Fatal("ParseToolArguments returned nil map")
			}
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestEncodeToolArguments(t *testing.T) {
	if got := encodeToolArguments(nil); got != "{}" {
		t.Errorf("encodeToolArguments(nil) = %q", got)
	}
	got := encodeToolArguments(map[string]any{"departure": "NYC"})
	if got != `{"departure":"NYC"}` {
		t.Errorf("encodeToolArguments = %q", got)
	}
	if ParseToolArguments(got)["departure"] != "NYC" {
		t.Error("encoded arguments did not parse back")
	}
}
