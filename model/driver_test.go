package model_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"toolcall/config"
	"toolcall/model"
	"toolcall/provider/testutil"
	"toolcall/tools"
)

func newDriver(p model.Provider, opts ...model.DriverOption) *model.Driver {
	registry := tools.Default()
	return model.NewDriver(p, model.NewDispatcher(registry), registry.Definitions(), opts...)
}

func TestAskWithoutToolCalls(t *testing.T) {
	p := testutil.NewScriptedProvider(testutil.Reply{Content: "Hello there."})
	conv := model.NewConversation("")

	reply, err := newDriver(p).Ask(context.Background(), conv, "Hi")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply.Content != "Hello there." {
		t.Errorf("reply = %q", reply.Content)
	}

	msgs := conv.Messages()
	if len(msgs) != 2 {
		t.Fatalf("conversation has %d messages, want user + assistant", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[1].Role != model.RoleAssistant {
		t.Errorf("roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if len(p.Requests) != 1 {
		t.Errorf("made %d requests, want 1", len(p.Requests))
	}
	if len(p.Requests[0].Tools) != 1 {
		t.Errorf("first request offered %d tools, want 1", len(p.Requests[0].Tools))
	}
}

func TestAskDispatchesAndResends(t *testing.T) {
	p := testutil.NewScriptedProvider(
		testutil.Reply{ToolCalls: []model.ToolCall{testutil.FlightCall("NYC", "LAX")}},
		testutil.Reply{Content: "It departs at 08:00 AM and takes 3h 30m."},
	)
	conv := model.NewConversation("")

	reply, err := newDriver(p).Ask(context.Background(), conv, testutil.QuestionNYCToLAX)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply.Content != "It departs at 08:00 AM and takes 3h 30m." {
		t.Errorf("reply = %q", reply.Content)
	}

	msgs := conv.Messages()
	wantRoles := []string{model.RoleUser, model.RoleAssistant, model.RoleTool, model.RoleAssistant}
	if len(msgs) != len(wantRoles) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(wantRoles))
	}
	for i, role := range wantRoles {
		if msgs[i].Role != role {
			t.Errorf("message %d role = %q, want %q", i, msgs[i].Role, role)
		}
	}
	if !msgs[1].HasToolCalls() {
		t.Error("assistant tool call message lost its tool calls")
	}

	// The second request must carry the tool result right after the
	// assistant message that asked for it.
	second := p.Requests[1].Messages
	if len(second) != 3 || second[2].Role != model.RoleTool {
		t.Fatalf("second request history = %+v", second)
	}
}

func TestAskLogsDispatchCounts(t *testing.T) {
	var buf bytes.Buffer
	saved := config.DebugLog
	config.DebugLog = log.New(&buf, "", 0)
	t.Cleanup(func() { config.DebugLog = saved })

	p := testutil.NewScriptedProvider(
		testutil.Reply{ToolCalls: []model.ToolCall{
			testutil.FlightCall("NYC", "LAX"),
			{Name: "get_weather", Arguments: map[string]any{"city": "LAX"}},
		}},
		testutil.Reply{Content: "3h 30m."},
	)

	if _, err := newDriver(p).Ask(context.Background(), model.NewConversation(""), testutil.QuestionNYCToLAX); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	want := "[Driver] Round 1 dispatched: 1 handled, 0 failed, 1 unknown, 0 skipped"
	if !strings.Contains(buf.String(), want) {
		t.Errorf("debug log missing %q:\n%s", want, buf.String())
	}
}

func TestAskTwoQuestionsShareHistory(t *testing.T) {
	p := testutil.NewScriptedProvider(
		testutil.Reply{ToolCalls: []model.ToolCall{testutil.FlightCall("NYC", "LAX")}},
		testutil.Reply{Content: "3h 30m."},
		testutil.Reply{ToolCalls: []model.ToolCall{testutil.FlightCall("cdg", "dxb")}},
		testutil.Reply{Content: "9h 00m."},
	)
	conv := model.NewConversation("You are a travel assistant.")
	driver := newDriver(p)
	ctx := context.Background()

	if _, err := driver.Ask(ctx, conv, testutil.QuestionNYCToLAX); err != nil {
		t.Fatalf("first question: %v", err)
	}
	before := conv.Messages()

	reply, err := driver.Ask(ctx, conv, testutil.QuestionCDGToDXB)
	if err != nil {
		t.Fatalf("second question: %v", err)
	}
	if reply.Content != "9h 00m." {
		t.Errorf("reply = %q", reply.Content)
	}

	after := conv.Messages()
	if len(after) != len(before)+4 {
		t.Fatalf("second question added %d messages, want 4", len(after)-len(before))
	}
	for i := range before {
		if after[i].Role != before[i].Role || after[i].Content != before[i].Content {
			t.Errorf("message %d changed after second question", i)
		}
	}
	if after[0].Role != model.RoleSystem {
		t.Errorf("system prompt is not first")
	}
}

func TestAskRoundLimit(t *testing.T) {
	call := []model.ToolCall{testutil.FlightCall("NYC", "LAX")}
	p := testutil.NewScriptedProvider(
		testutil.Reply{ToolCalls: call},
		testutil.Reply{ToolCalls: call},
		testutil.Reply{Content: "Done."},
	)
	conv := model.NewConversation("")

	reply, err := newDriver(p, model.WithMaxRounds(2)).Ask(context.Background(), conv, "loop")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply.Content != "Done." {
		t.Errorf("reply = %q", reply.Content)
	}
	if len(p.Requests) != 3 {
		t.Fatalf("made %d requests, want 3", len(p.Requests))
	}
	if p.Requests[2].Tools != nil {
		t.Error("request after the round limit still offered tools")
	}
}

// answerOnlyProvider records which requests went through ChatAnswerOnly.
type answerOnlyProvider struct {
	*testutil.MockProvider
	answerOnlyTools [][]mcptypes.Tool
}

func (p *answerOnlyProvider) ChatAnswerOnly(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	p.answerOnlyTools = append(p.answerOnlyTools, tools)
	return callback("Done.", nil)
}

func TestAskRoundLimitKeepsToolsForAnswerOnlyProvider(t *testing.T) {
	call := []model.ToolCall{testutil.FlightCall("NYC", "LAX")}
	p := &answerOnlyProvider{MockProvider: testutil.NewScriptedProvider(testutil.Reply{ToolCalls: call})}
	conv := model.NewConversation("")

	reply, err := newDriver(p, model.WithMaxRounds(1)).Ask(context.Background(), conv, "loop")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply.Content != "Done." {
		t.Errorf("reply = %q", reply.Content)
	}
	if len(p.Requests) != 1 {
		t.Errorf("made %d tool requests, want 1", len(p.Requests))
	}
	if len(p.answerOnlyTools) != 1 || len(p.answerOnlyTools[0]) != 1 {
		t.Errorf("final request tools = %v, want the tool definitions", p.answerOnlyTools)
	}
}

func TestAskRoundLimitExceeded(t *testing.T) {
	call := []model.ToolCall{testutil.FlightCall("NYC", "LAX")}
	p := testutil.NewScriptedProvider(
		testutil.Reply{ToolCalls: call},
		testutil.Reply{ToolCalls: call},
	)
	conv := model.NewConversation("")

	reply, err := newDriver(p, model.WithMaxRounds(1)).Ask(context.Background(), conv, "loop")
	if !errors.Is(err, model.ErrRoundLimit) {
		t.Fatalf("err = %v, want ErrRoundLimit", err)
	}
	if !reply.HasToolCalls() {
		t.Error("expected the offending reply to be returned")
	}
	// user, assistant(call), tool, assistant(call); the last call is not run
	if conv.Len() != 4 {
		t.Errorf("conversation has %d messages, want 4", conv.Len())
	}
}

func TestAskZeroRoundsSendsNoTools(t *testing.T) {
	p := testutil.NewScriptedProvider(testutil.Reply{Content: "I cannot look that up."})
	conv := model.NewConversation("")

	if _, err := newDriver(p, model.WithMaxRounds(0)).Ask(context.Background(), conv, "q"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if p.Requests[0].Tools != nil {
		t.Error("tools offered with max rounds 0")
	}
}

func TestAskProviderError(t *testing.T) {
	boom := errors.New("connection refused")
	p := testutil.NewScriptedProvider(testutil.Reply{Err: boom})
	conv := model.NewConversation("")

	_, err := newDriver(p).Ask(context.Background(), conv, "q")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if conv.Len() != 1 {
		t.Errorf("failed request appended a reply; len = %d", conv.Len())
	}
}

func TestAskRequestTimeout(t *testing.T) {
	p := testutil.NewMockProvider("slow")
	p.ChatWithToolsFunc = func(ctx context.Context, messages []model.Message, _ []mcptypes.Tool, cb model.StreamCallback) error {
		<-ctx.Done()
		return ctx.Err()
	}
	conv := model.NewConversation("")

	_, err := newDriver(p, model.WithRequestTimeout(10*time.Millisecond)).Ask(context.Background(), conv, "q")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestAskCleansLeakedToolCalls(t *testing.T) {
	p := testutil.NewScriptedProvider(testutil.Reply{
		Content: `{"name": "get_flight_times", "arguments": {"departure": "NYC"}} The flight takes 3h 30m.`,
	})
	conv := model.NewConversation("")

	reply, err := newDriver(p).Ask(context.Background(), conv, "q")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply.Content != "The flight takes 3h 30m." {
		t.Errorf("reply = %q", reply.Content)
	}
}

func TestContinueWithoutProvider(t *testing.T) {
	d := model.NewDriver(nil, model.NewDispatcher(tools.Default()), nil)
	if _, err := d.Continue(context.Background(), model.NewConversation("")); !errors.Is(err, model.ErrNoProvider) {
		t.Errorf("err = %v, want ErrNoProvider", err)
	}
}

func TestAskAssignsToolCallIDs(t *testing.T) {
	p := testutil.NewScriptedProvider(
		testutil.Reply{ToolCalls: []model.ToolCall{testutil.FlightCall("NYC", "LAX")}},
		testutil.Reply{Content: "3h 30m."},
	)
	conv := model.NewConversation("")

	if _, err := newDriver(p).Ask(context.Background(), conv, testutil.QuestionNYCToLAX); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	msgs := conv.Messages()
	id := msgs[1].ToolCalls[0].ID
	if id == "" {
		t.Fatal("tool call has no ID")
	}
	if msgs[2].ToolCallID != id {
		t.Errorf("tool result ID = %q, want %q", msgs[2].ToolCallID, id)
	}
}
