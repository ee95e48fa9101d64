package model

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"toolcall/config"
	"toolcall/tools"
)

// UnknownToolPolicy decides what happens when the model requests a tool the
// registry does not know.
type UnknownToolPolicy string

const (
	// ReportUnknownTools answers the call with an error result so the model
	// can correct itself.
	ReportUnknownTools UnknownToolPolicy = config.UnknownToolReport
	// SkipUnknownTools drops the call without appending anything.
	SkipUnknownTools UnknownToolPolicy = config.UnknownToolSkip
)

type CallStatus string

const (
	CallOK          CallStatus = "ok"
	CallFailed      CallStatus = "error"
	CallUnknownTool CallStatus = "unknown_tool"
)

// CallRecord describes one dispatched tool call.
type CallRecord struct {
	Name      string
	Arguments map[string]any
	Result    string
	Status    CallStatus
	Duration  time.Duration
}

// CallRecorder receives every dispatched call, e.g. for an audit log.
type CallRecorder interface {
	RecordCall(ctx context.Context, rec CallRecord) error
}

// DispatchResult counts what happened to the calls of one assistant message.
type DispatchResult struct {
	Handled int
	Failed  int
	Unknown int
	Skipped int
}

type Dispatcher struct {
	registry *tools.Registry
	policy   UnknownToolPolicy
	recorder CallRecorder
}

type DispatcherOption func(*Dispatcher)

func WithUnknownToolPolicy(policy UnknownToolPolicy) DispatcherOption {
	return func(d *Dispatcher) {
		d.policy = policy
	}
}

func WithCallRecorder(recorder CallRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = recorder
	}
}

func NewDispatcher(registry *tools.Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		policy:   ReportUnknownTools,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type toolError struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func errorResult(msg, hint string) string {
	out, err := json.Marshal(toolError{Error: msg, Hint: hint})
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, msg)
	}
	return string(out)
}

// Dispatch runs calls one after another in request order and appends one tool
// message per answered call to conv. Tool failures become error results; only
// a cancelled context stops dispatching early.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []ToolCall, conv *Conversation) (DispatchResult, error) {
	var result DispatchResult

	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("dispatch interrupted before call %d (%s): %w", i+1, call.Name, err)
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Dispatch] Call %d/%d: %s %v", i+1, len(calls), call.Name, call.Arguments)
		}

		tool, ok := d.registry.Lookup(call.Name)
		if !ok {
			if d.policy == SkipUnknownTools {
				result.Skipped++
				if config.DebugLog != nil {
					config.DebugLog.Printf("[Dispatch] Skipping unknown tool %q", call.Name)
				}
				d.record(ctx, CallRecord{Name: call.Name, Arguments: call.Arguments, Status: CallUnknownTool})
				continue
			}

			hint := ""
			if suggestion := d.registry.Suggest(call.Name); suggestion != "" {
				hint = fmt.Sprintf("did you mean %q?", suggestion)
			}
			content := errorResult(fmt.Sprintf("unknown tool %q", call.Name), hint)
			conv.Append(toolMessage(call, content, true))
			result.Unknown++
			d.record(ctx, CallRecord{Name: call.Name, Arguments: call.Arguments, Result: content, Status: CallUnknownTool})
			continue
		}

		start := time.Now()
		content, err := tool.Call(ctx, call.Arguments)
		elapsed := time.Since(start)

		status := CallOK
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Dispatch] Tool %s failed after %v: %v", call.Name, elapsed, err)
			}
			content = errorResult(err.Error(), "")
			status = CallFailed
			result.Failed++
		} else {
			result.Handled++
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Dispatch] Tool %s returned %d chars in %v", call.Name, len(content), elapsed)
			}
		}

		conv.Append(toolMessage(call, content, err != nil))
		d.record(ctx, CallRecord{
			Name:      call.Name,
			Arguments: call.Arguments,
			Result:    content,
			Status:    status,
			Duration:  elapsed,
		})
	}

	return result, nil
}

func (d *Dispatcher) record(ctx context.Context, rec CallRecord) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordCall(ctx, rec); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[Dispatch] Failed to record call %s: %v", rec.Name, err)
	}
}

func toolMessage(call ToolCall, content string, isError bool) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolName:   call.Name,
		ToolCallID: call.ID,
		IsError:    isError,
	}
}
