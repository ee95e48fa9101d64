package testutil

import (
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"toolcall/model"
)

// The two questions the CLI asks by default.
const (
	QuestionNYCToLAX = "What is the flight time from New York (NYC) to Los Angeles (LAX)?"
	QuestionCDGToDXB = "What is the flight time from CDG to DXB?"
)

// TestMessages returns a sample conversation for testing
func TestMessages() []model.Message {
	return []model.Message{
		{
			Role:      "user",
			Content:   QuestionNYCToLAX,
			Timestamp: time.Now(),
		},
		{
			Role:      "assistant",
			ToolCalls: []model.ToolCall{FlightCall("NYC", "LAX")},
			Timestamp: time.Now(),
		},
		{
			Role:      "tool",
			ToolName:  "get_flight_times",
			Content:   `{"departure":"08:00 AM","arrival":"11:30 AM","duration":"3h 30m"}`,
			Timestamp: time.Now(),
		},
		{
			Role:      "assistant",
			Content:   "The flight leaves at 08:00 AM and takes 3h 30m.",
			Timestamp: time.Now(),
		},
	}
}

// SingleUserMessage returns a single user message for simple tests
func SingleUserMessage(content string) []model.Message {
	return []model.Message{
		{
			Role:      "user",
			Content:   content,
			Timestamp: time.Now(),
		},
	}
}

// FlightCall builds a get_flight_times tool call.
func FlightCall(departure, arrival string) model.ToolCall {
	return model.ToolCall{
		Name:      "get_flight_times",
		Arguments: map[string]any{"departure": departure, "arrival": arrival},
	}
}

// TestMCPTools returns sample tool schemas for testing
func TestMCPTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		{
			Name:        "get_flight_times",
			Description: "Get the flight times between two cities",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"departure": map[string]any{
						"type":        "string",
						"description": "The departure city (airport code)",
					},
					"arrival": map[string]any{
						"type":        "string",
						"description": "The arrival city (airport code)",
					},
				},
				Required: []string{"departure", "arrival"},
			},
		},
		{
			Name:        "calculate",
			Description: "Perform a mathematical calculation",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"expression": map[string]any{
						"type":        "string",
						"description": "The mathematical expression to evaluate",
					},
				},
				Required: []string{"expression"},
			},
		},
	}
}

// SystemMessage returns a system message for testing
func SystemMessage(content string) model.Message {
	return model.Message{
		Role:      "system",
		Content:   content,
		Timestamp: time.Now(),
	}
}
