package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ecochat/llm"
)

func newTestChat(t *testing.T, rt *stubRuntime) *ChatSession {
	t.Helper()
	s, err := NewChatSession(context.Background(), rt, nil, "test-model", 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestNewChatSessionModelUnavailable(t *testing.T) {
	rt := &stubRuntime{checkErr: errors.New("no such model")}
	_, err := NewChatSession(context.Background(), rt, nil, "missing", 1000)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("error = %v, want ErrModelUnavailable", err)
	}
}

func TestAskAppendsTurns(t *testing.T) {
	rt := &stubRuntime{chatReply: "hello there"}
	s := newTestChat(t, rt)

	reply, err := s.Ask(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "hello there" {
		t.Errorf("reply = %q", reply)
	}

	history := s.History()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Role != "user" || history[0].Content != "hi" {
		t.Errorf("first turn = %+v", history[0])
	}
	if history[1].Role != "assistant" || history[1].Content != "hello there" {
		t.Errorf("second turn = %+v", history[1])
	}
}

func TestAskRollbackOnFailure(t *testing.T) {
	rt := &stubRuntime{chatErr: errors.New("connection refused")}
	s := newTestChat(t, rt)

	_, err := s.Ask(context.Background(), "hi")
	if !errors.Is(err, ErrInvocationFailed) {
		t.Errorf("error = %v, want ErrInvocationFailed", err)
	}
	if got := len(s.History()); got != 0 {
		t.Errorf("history length after failure = %d, want 0", got)
	}
}

func TestAskSendsSystemMessageFirst(t *testing.T) {
	rt := &stubRuntime{chatReply: "ok"}
	s := newTestChat(t, rt)
	s.AddDocument("notes.txt", "the answer is 42")

	if _, err := s.Ask(context.Background(), "what is the answer?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := rt.gotMessages[0]
	if sent[0].Role != "system" {
		t.Fatalf("first sent message role = %q, want system", sent[0].Role)
	}
	if !strings.Contains(sent[0].Content, "the answer is 42") {
		t.Error("document content not folded into system message")
	}
	if !strings.Contains(sent[0].Content, "=== Document: notes.txt ===") {
		t.Error("document banner not folded into system message")
	}
}

func TestStreamAskEquivalence(t *testing.T) {
	rt := &stubRuntime{streamChunks: []string{"one ", "two ", "three"}}
	s := newTestChat(t, rt)

	var delivered strings.Builder
	reply, err := s.StreamAsk(context.Background(), "count", ThinkingFast, func(chunk string) error {
		delivered.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reply != "one two three" {
		t.Errorf("reply = %q", reply)
	}
	if delivered.String() != reply {
		t.Errorf("delivered %q != committed %q", delivered.String(), reply)
	}

	history := s.History()
	if len(history) != 2 || history[1].Content != "one two three" {
		t.Errorf("history = %+v", history)
	}
}

func TestStreamAskMidStreamErrorRollsBack(t *testing.T) {
	rt := &stubRuntime{
		streamChunks: []string{"partial "},
		streamErr:    errors.New("stream cut"),
	}
	s := newTestChat(t, rt)

	var got int
	_, err := s.StreamAsk(context.Background(), "q", ThinkingFast, func(string) error {
		got++
		return nil
	})
	if !errors.Is(err, ErrInvocationFailed) {
		t.Errorf("error = %v, want ErrInvocationFailed", err)
	}
	if got == 0 {
		t.Error("expected at least one fragment before failure")
	}
	if len(s.History()) != 0 {
		t.Error("history not rolled back after mid-stream error")
	}
}

func TestStreamAskCallerAbortRollsBack(t *testing.T) {
	rt := &stubRuntime{streamChunks: []string{"a", "b", "c"}}
	s := newTestChat(t, rt)

	abort := errors.New("client disconnected")
	_, err := s.StreamAsk(context.Background(), "q", ThinkingFast, func(string) error {
		return abort
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(s.History()) != 0 {
		t.Error("history not rolled back after caller abort")
	}
}

func TestThinkingModeOptions(t *testing.T) {
	rt := &stubRuntime{streamChunks: []string{"x"}}
	s := newTestChat(t, rt)

	discard := func(string) error { return nil }
	if _, err := s.StreamAsk(context.Background(), "q1", ThinkingDeep, discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.StreamAsk(context.Background(), "q2", ThinkingFast, discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deep := rt.gotOptions[0]
	if deep.Temperature != 0.3 || deep.NumPredict != -1 || !deep.Think {
		t.Errorf("deep options = %+v", deep)
	}
	fast := rt.gotOptions[1]
	if fast.Temperature != 0.7 || fast.NumPredict != 256 || fast.Think {
		t.Errorf("fast options = %+v", fast)
	}
}

func TestResetClearsEverything(t *testing.T) {
	rt := &stubRuntime{chatReply: "ok"}
	s := newTestChat(t, rt)
	s.AddDocument("doc.txt", "content")
	if _, err := s.Ask(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Reset()
	if len(s.History()) != 0 {
		t.Error("history survived reset")
	}
	status := s.Status()
	if status.NumItems != 0 {
		t.Error("documents survived reset")
	}
}

func TestClearHistoryKeepsDocuments(t *testing.T) {
	rt := &stubRuntime{chatReply: "ok"}
	s := newTestChat(t, rt)
	s.AddDocument("doc.txt", "content")
	if _, err := s.Ask(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.ClearHistory()
	if len(s.History()) != 0 {
		t.Error("history not cleared")
	}
	if s.Status().NumItems != 1 {
		t.Error("documents should survive ClearHistory")
	}
}

func TestExportShape(t *testing.T) {
	rt := &stubRuntime{chatReply: "fine"}
	s := newTestChat(t, rt)
	s.AddDocument("doc.txt", "content")
	if _, err := s.Ask(context.Background(), "how are you?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := s.Export()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := string(data)
	for _, want := range []string{`"model"`, `"loaded_items"`, `"conversation"`, "doc.txt", "how are you?"} {
		if !strings.Contains(text, want) {
			t.Errorf("export missing %s: %s", want, text)
		}
	}
}

func TestVisionRefusalWithoutImage(t *testing.T) {
	rt := &stubRuntime{chatReply: "should not be called"}
	s, err := NewVisionSession(context.Background(), rt, nil, "vision-model")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reply, err := s.Ask(context.Background(), "describe this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != NoImageLoaded {
		t.Errorf("reply = %q, want refusal", reply)
	}
	if rt.calls != 0 {
		t.Error("runtime should not be invoked without an image")
	}
	if len(s.History()) != 0 {
		t.Error("refusal must not touch history")
	}
}

func TestVisionAttachesImages(t *testing.T) {
	rt := &stubRuntime{chatReply: "a cat"}
	s, err := NewVisionSession(context.Background(), rt, nil, "vision-model")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.AddImage("cat.png", []byte{0x89, 0x50})
	s.AddImage("dog.png", []byte{0xff, 0xd8})

	if _, err := s.Ask(context.Background(), "what is this?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := rt.gotMessages[0]
	user := sent[len(sent)-1]
	if user.Role != "user" || len(user.Images) != 2 {
		t.Errorf("user turn = role %q with %d images, want 2 images", user.Role, len(user.Images))
	}
}

func TestCodingSessionUsesCodeBanner(t *testing.T) {
	rt := &stubRuntime{chatReply: "looks good"}
	s, err := NewCodingSession(context.Background(), rt, nil, "coder-model", 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.AddCodeFile("main.go", "package main")

	if _, err := s.Ask(context.Background(), "review this"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	system := rt.gotMessages[0][0]
	if !strings.Contains(system.Content, "=== Code file: main.go ===") {
		t.Error("code banner missing from system message")
	}
	if !strings.Contains(system.Content, "code context loaded") {
		t.Error("code context intro missing from system message")
	}
}

var _ llm.Runtime = (*stubRuntime)(nil)
