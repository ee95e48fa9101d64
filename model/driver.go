package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"toolcall/config"
)

var (
	// ErrRoundLimit is returned when the model still requests tools after the
	// final, tool-less request.
	ErrRoundLimit = errors.New("tool round limit reached")
	ErrNoProvider = errors.New("no provider configured")
)

// Driver runs the "send, check for tool calls, dispatch, resend" loop for one
// question at a time.
type Driver struct {
	provider   Provider
	dispatcher *Dispatcher
	tools      []mcptypes.Tool
	maxRounds  int
	timeout    time.Duration
}

type DriverOption func(*Driver)

// WithMaxRounds caps the number of tool rounds per question. Once reached, the
// next request is sent without tools so the model has to answer.
func WithMaxRounds(n int) DriverOption {
	return func(d *Driver) {
		d.maxRounds = n
	}
}

// WithRequestTimeout bounds every single model request.
func WithRequestTimeout(timeout time.Duration) DriverOption {
	return func(d *Driver) {
		d.timeout = timeout
	}
}

func NewDriver(provider Provider, dispatcher *Dispatcher, tools []mcptypes.Tool, opts ...DriverOption) *Driver {
	d := &Driver{
		provider:   provider,
		dispatcher: dispatcher,
		tools:      tools,
		maxRounds:  config.DefaultMaxRounds,
		timeout:    config.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Ask appends question as a user message and runs the loop until the model
// answers without tool calls. The returned message is the final assistant
// reply, which is also the last entry of conv.
func (d *Driver) Ask(ctx context.Context, conv *Conversation, question string) (Message, error) {
	conv.Append(Message{Role: RoleUser, Content: question})
	return d.Continue(ctx, conv)
}

// Continue runs the loop on the conversation as it stands.
func (d *Driver) Continue(ctx context.Context, conv *Conversation) (Message, error) {
	if d.provider == nil {
		return Message{}, ErrNoProvider
	}

	for round := 0; ; round++ {
		lastRound := round >= d.maxRounds

		reply, err := d.complete(ctx, conv.Messages(), lastRound)
		if err != nil {
			return Message{}, err
		}

		if !reply.HasToolCalls() {
			reply.Content = CleanLeakedToolCalls(reply.Content)
			conv.Append(reply)
			return reply, nil
		}

		conv.Append(reply)

		if lastRound {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Driver] Model requested %d tool calls after the round limit (%d)", len(reply.ToolCalls), d.maxRounds)
			}
			return reply, fmt.Errorf("%w after %d rounds", ErrRoundLimit, d.maxRounds)
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Driver] Round %d: %d tool calls", round+1, len(reply.ToolCalls))
		}

		result, err := d.dispatcher.Dispatch(ctx, reply.ToolCalls, conv)
		if err != nil {
			return Message{}, err
		}
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Driver] Round %d dispatched: %d handled, %d failed, %d unknown, %d skipped",
				round+1, result.Handled, result.Failed, result.Unknown, result.Skipped)
		}
	}
}

// complete sends one request and folds the streamed chunks into a single
// assistant message. An answerOnly request offers no tools, or for an
// AnswerOnlyProvider keeps them defined but forbids their use.
func (d *Driver) complete(ctx context.Context, messages []Message, answerOnly bool) (Message, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var content strings.Builder
	var calls []ToolCall
	start := time.Now()

	collect := func(chunk string, toolCalls []ToolCall) error {
		content.WriteString(chunk)
		calls = append(calls, toolCalls...)
		return nil
	}

	tools := d.tools
	var err error
	switch ap, ok := d.provider.(AnswerOnlyProvider); {
	case answerOnly && ok:
		err = ap.ChatAnswerOnly(ctx, messages, tools, collect)
	case answerOnly:
		tools = nil
		err = d.provider.ChatWithTools(ctx, messages, nil, collect)
	default:
		err = d.provider.ChatWithTools(ctx, messages, tools, collect)
	}
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Driver] Request failed after %v: %v", time.Since(start), err)
		}
		return Message{}, fmt.Errorf("model request failed: %w", err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Driver] Reply after %v: %d chars, %d tool calls, %d tools offered",
			time.Since(start), content.Len(), len(calls), len(tools))
	}

	// Ollama's native API issues no call IDs; tool results are paired by ID
	// on the other providers, so every call gets one here.
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = "call_" + uuid.NewString()[:8]
		}
	}

	return Message{
		Role:      RoleAssistant,
		Content:   content.String(),
		ToolCalls: calls,
	}, nil
}
