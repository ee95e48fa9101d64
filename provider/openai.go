package provider

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"toolcall/config"
	"toolcall/mcp"
	"toolcall/model"
	"toolcall/ollama"
)

const (
	// DefaultOpenAIBaseURL is Ollama's OpenAI-compatible endpoint.
	DefaultOpenAIBaseURL = "http://127.0.0.1:11434/v1"

	// ollamaPlaceholderKey is sent when no key is configured. Ollama ignores
	// the Authorization header but the SDK refuses to run without one.
	ollamaPlaceholderKey = "ollama"
)

// OpenAIProvider implements model.Provider against any OpenAI-compatible chat
// completions endpoint using the official OpenAI Go SDK.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	baseURL string
}

// NewOpenAIProvider creates a new OpenAI-compatible provider instance.
//
// Parameters:
//   - baseURL: API base URL (default: Ollama's /v1 endpoint on localhost)
//   - apiKey: API key; optional for local servers
//   - model: Initial model to use (default: "llama3.1:8b")
func NewOpenAIProvider(baseURL, apiKey, model string, opts ...option.RequestOption) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if apiKey == "" {
		apiKey = ollamaPlaceholderKey
	}
	if model == "" {
		model = ollama.DefaultModel
	}

	clientOpts := append([]option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	}, opts...)

	return &OpenAIProvider{
		client:  openai.NewClient(clientOpts...),
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Chat implements Provider.Chat by delegating to ChatWithTools with no tools.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

// ChatWithTools implements Provider.ChatWithTools with streaming support.
//
// Content deltas are forwarded as they arrive. Tool calls are reported once,
// after the stream completes, from the accumulated message so that calls whose
// arguments span several chunks arrive whole.
func (p *OpenAIProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	params := openai.ChatCompletionNewParams{
		Messages: ConvertToOpenAIMessages(messages),
		Model:    openai.ChatModel(p.model),
	}
	if len(tools) > 0 {
		params.Tools = mcp.ConvertMCPToolsToOpenAIFormat(tools)
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()
	acc := openai.ChatCompletionAccumulator{}

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" && callback != nil {
			if err := callback(chunk.Choices[0].Delta.Content, nil); err != nil {
				return err
			}
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("OpenAI streaming error: %w", err)
	}

	if len(acc.Choices) == 0 || callback == nil {
		return nil
	}

	toolCalls := extractOpenAIToolCalls(acc.Choices[0].Message.ToolCalls)
	if len(toolCalls) == 0 {
		return nil
	}
	if config.DebugLog != nil {
		config.DebugLog.Printf("[OpenAI] %s requested %d tool call(s)", p.model, len(toolCalls))
	}
	return callback("", toolCalls)
}

func extractOpenAIToolCalls(calls []openai.ChatCompletionMessageToolCallUnion) []model.ToolCall {
	var result []model.ToolCall
	for _, call := range calls {
		if call.Function.Name == "" {
			continue
		}
		result = append(result, model.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: ParseToolArguments(call.Function.Arguments),
		})
	}
	return result
}

// ConvertToOpenAIMessages converts model messages to OpenAI chat params.
//
// Assistant tool calls are replayed with their IDs and tool results reference
// the call they answer, as the chat completions API requires. Calls that never
// got a result are dropped, and so is an assistant message left empty by that.
func ConvertToOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	answered := answeredCallIDs(messages)

	for i, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))

		case model.RoleAssistant:
			param := openai.AssistantMessage(msg.Content)
			var calls []openai.ChatCompletionMessageToolCallUnionParam
			for j, call := range msg.ToolCalls {
				if unanswered(call, answered) {
					continue
				}
				calls = append(calls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: toolCallID(call.ID, i, j),
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: encodeToolArguments(call.Arguments),
						},
					},
				})
			}
			if len(calls) == 0 && msg.Content == "" && msg.HasToolCalls() {
				continue
			}
			if len(calls) > 0 {
				param.OfAssistant.ToolCalls = calls
			}
			result = append(result, param)

		case model.RoleTool:
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))

		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}

	return result
}

// toolCallID returns id, or a stable synthetic ID for calls recorded by a
// provider that does not issue IDs (Ollama's native API).
func toolCallID(id string, msgIndex, callIndex int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("call_%d_%d", msgIndex, callIndex)
}

// ListModels implements Provider.ListModels.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]ollama.ModelInfo, error) {
	modelsPage, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	result := make([]ollama.ModelInfo, 0, len(modelsPage.Data))
	for _, m := range modelsPage.Data {
		result = append(result, ollama.ModelInfo{
			Name:         m.ID,
			InternalName: m.ID,
			Provider:     string(ProviderTypeOpenAI),
		})
	}

	return result, nil
}

// GetModel implements Provider.GetModel.
func (p *OpenAIProvider) GetModel() string {
	return p.model
}

// GetDisplayName implements Provider.GetDisplayName.
func (p *OpenAIProvider) GetDisplayName() string {
	return p.model
}

// SetModel implements Provider.SetModel.
func (p *OpenAIProvider) SetModel(model string) {
	p.model = model
}

// Ping implements Provider.Ping by attempting to list models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}
