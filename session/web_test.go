package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"ecochat/llm"
	"ecochat/tools"
)

// recordingTool is an in-memory tool for loop tests.
type recordingTool struct {
	name    string
	result  string
	err     error
	gotArgs []tools.Arguments
}

func (t *recordingTool) Metadata() tools.ToolMetadata {
	return tools.ToolMetadata{
		Name:        t.name,
		Description: "test tool",
		Parameters: []tools.ToolParameter{
			{Name: "query", ParamType: "string", Description: "q", Required: true},
		},
	}
}

func (t *recordingTool) Execute(ctx context.Context, args tools.Arguments) (string, error) {
	t.gotArgs = append(t.gotArgs, args)
	if t.err != nil {
		return "", t.err
	}
	return t.result, nil
}

func newWebTest(rt *stubRuntime, tool tools.Tool) *WebSession {
	registry := tools.NewRegistry()
	if tool != nil {
		if err := registry.Register(tool); err != nil {
			panic(err)
		}
	}
	return NewWebSession(rt, nil, registry, "web-model", 0)
}

func TestWebAskNoTools(t *testing.T) {
	rt := &stubRuntime{toolTurns: []llm.ToolTurn{{Content: "plain answer"}}}
	s := newWebTest(rt, nil)

	reply, err := s.Ask(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "plain answer" {
		t.Errorf("reply = %q", reply)
	}
	if rt.calls != 1 {
		t.Errorf("model calls = %d, want 1", rt.calls)
	}
}

func TestWebAskToolLoop(t *testing.T) {
	tool := &recordingTool{name: "web_search", result: "search results here"}
	rt := &stubRuntime{toolTurns: []llm.ToolTurn{
		{Content: "Let me look that up.", ToolCalls: []llm.ToolCall{
			{Name: "web_search", Arguments: map[string]any{"query": "go generics"}},
		}},
		{Content: "Generics arrived in Go 1.18."},
	}}
	s := newWebTest(rt, tool)

	reply, err := s.Ask(context.Background(), "when did go get generics?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Content accumulates across iterations, joined by blank lines.
	want := "Let me look that up.\n\nGenerics arrived in Go 1.18."
	if reply != want {
		t.Errorf("reply = %q, want %q", reply, want)
	}
	if len(tool.gotArgs) != 1 || tool.gotArgs[0].String("query", "") != "go generics" {
		t.Errorf("tool args = %v", tool.gotArgs)
	}

	// The tool result must be visible to the model as a tool turn.
	history := s.History()
	var sawToolTurn bool
	for _, msg := range history {
		if msg.Role == "tool" && msg.Content == "search results here" {
			sawToolTurn = true
		}
	}
	if !sawToolTurn {
		t.Errorf("no tool turn in history: %+v", history)
	}
}

func TestWebAskLoopTerminatesAtBound(t *testing.T) {
	// The model requests a tool on every turn and never answers.
	var turns []llm.ToolTurn
	for i := 0; i < DefaultWebMaxIterations+3; i++ {
		turns = append(turns, llm.ToolTurn{ToolCalls: []llm.ToolCall{
			{Name: "web_search", Arguments: map[string]any{"query": "again"}},
		}})
	}
	tool := &recordingTool{name: "web_search", result: "more results"}
	rt := &stubRuntime{toolTurns: turns}
	s := newWebTest(rt, tool)

	reply, err := s.Ask(context.Background(), "endless")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "I couldn't generate a response." {
		t.Errorf("reply = %q, want fallback", reply)
	}
	if rt.calls != DefaultWebMaxIterations {
		t.Errorf("model calls = %d, want %d", rt.calls, DefaultWebMaxIterations)
	}
}

func TestWebAskHonorsConfiguredIterationBound(t *testing.T) {
	// The model requests a tool on every turn; a session built with a
	// bound of 2 must stop after exactly 2 model calls.
	var turns []llm.ToolTurn
	for i := 0; i < DefaultWebMaxIterations; i++ {
		turns = append(turns, llm.ToolTurn{ToolCalls: []llm.ToolCall{
			{Name: "web_search", Arguments: map[string]any{"query": "again"}},
		}})
	}
	tool := &recordingTool{name: "web_search", result: "more results"}
	rt := &stubRuntime{toolTurns: turns}

	registry := tools.NewRegistry()
	if err := registry.Register(tool); err != nil {
		t.Fatal(err)
	}
	s := NewWebSession(rt, nil, registry, "web-model", 2)

	if _, err := s.Ask(context.Background(), "endless"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.calls != 2 {
		t.Errorf("model calls = %d, want 2", rt.calls)
	}
}

func TestWebAskTruncationKeepsRuneBoundary(t *testing.T) {
	// A result whose byte limit lands mid-rune must be cut back to a
	// boundary, never split. The leading ASCII byte shifts every é off
	// the even offsets so the limit falls inside one.
	tool := &recordingTool{name: "web_search", result: "x" + strings.Repeat("é", DefaultToolResultLimit)}
	rt := &stubRuntime{toolTurns: []llm.ToolTurn{
		{ToolCalls: []llm.ToolCall{{Name: "web_search", Arguments: map[string]any{"query": "big"}}}},
		{Content: "summarized"},
	}}
	s := newWebTest(rt, tool)

	if _, err := s.Ask(context.Background(), "fetch a lot"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, msg := range s.History() {
		if msg.Role != "tool" {
			continue
		}
		if len(msg.Content) > DefaultToolResultLimit {
			t.Errorf("tool result length = %d, want <= %d", len(msg.Content), DefaultToolResultLimit)
		}
		if !utf8.ValidString(msg.Content) {
			t.Error("truncated tool result is not valid UTF-8")
		}
	}
}

func TestWebAskToolErrorRecorded(t *testing.T) {
	tool := &recordingTool{name: "web_search", err: errors.New("401 unauthorized")}
	rt := &stubRuntime{toolTurns: []llm.ToolTurn{
		{ToolCalls: []llm.ToolCall{{Name: "web_search", Arguments: map[string]any{"query": "x"}}}},
		{Content: "I could not search the web."},
	}}
	s := newWebTest(rt, tool)

	reply, err := s.Ask(context.Background(), "search something")
	if err != nil {
		t.Fatalf("tool failure must not propagate: %v", err)
	}
	if reply != "I could not search the web." {
		t.Errorf("reply = %q", reply)
	}

	var sawError bool
	for _, msg := range s.History() {
		if msg.Role == "tool" && strings.Contains(msg.Content, "Error calling web_search") {
			sawError = true
		}
	}
	if !sawError {
		t.Error("tool error not recorded as a tool turn")
	}
}

func TestWebAskUnknownToolRecorded(t *testing.T) {
	rt := &stubRuntime{toolTurns: []llm.ToolTurn{
		{ToolCalls: []llm.ToolCall{{Name: "teleport", Arguments: nil}}},
		{Content: "done"},
	}}
	s := newWebTest(rt, nil)

	if _, err := s.Ask(context.Background(), "go"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawMissing bool
	for _, msg := range s.History() {
		if msg.Role == "tool" && msg.Content == "Tool teleport not found" {
			sawMissing = true
		}
	}
	if !sawMissing {
		t.Error("unknown tool not recorded as a tool turn")
	}
}

func TestWebAskTruncatesToolResult(t *testing.T) {
	tool := &recordingTool{name: "web_search", result: strings.Repeat("r", DefaultToolResultLimit+500)}
	rt := &stubRuntime{toolTurns: []llm.ToolTurn{
		{ToolCalls: []llm.ToolCall{{Name: "web_search", Arguments: map[string]any{"query": "big"}}}},
		{Content: "summarized"},
	}}
	s := newWebTest(rt, tool)

	if _, err := s.Ask(context.Background(), "fetch a lot"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, msg := range s.History() {
		if msg.Role == "tool" && len(msg.Content) > DefaultToolResultLimit {
			t.Errorf("tool result length = %d, want <= %d", len(msg.Content), DefaultToolResultLimit)
		}
	}
}

func TestWebAskModelErrorRollsBack(t *testing.T) {
	rt := &stubRuntime{toolErr: errors.New("runtime down")}
	s := newWebTest(rt, nil)
	before := len(s.History())

	_, err := s.Ask(context.Background(), "hello")
	if !errors.Is(err, ErrInvocationFailed) {
		t.Errorf("error = %v, want ErrInvocationFailed", err)
	}
	if got := len(s.History()); got != before {
		t.Errorf("history length = %d, want %d (rolled back)", got, before)
	}
}

func TestWebResetReseedsSystem(t *testing.T) {
	rt := &stubRuntime{toolTurns: []llm.ToolTurn{{Content: "hi"}}}
	s := newWebTest(rt, nil)

	if _, err := s.Ask(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Reset()

	history := s.History()
	if len(history) != 1 || history[0].Role != "system" {
		t.Errorf("history after reset = %+v, want single system turn", history)
	}
}
