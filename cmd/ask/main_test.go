package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/friday-go/internal/llm"
)

type stubClient struct {
	content string
	err     error
}

func (s *stubClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.content}}},
	}, nil
}

func TestRun_PrintsBannerWrappedResponse(t *testing.T) {
	responder := llm.NewResponder(&stubClient{content: "R"}, "")

	var buf bytes.Buffer
	if err := run(context.Background(), responder, "", "hello", &buf); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := "=== LLM Response ===\nR\n====================\n"
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\ngot  %q\nwant %q", got, want)
	}
}

func TestRun_PropagatesError(t *testing.T) {
	boom := errors.New("service unavailable")
	responder := llm.NewResponder(&stubClient{err: boom}, "")

	var buf bytes.Buffer
	err := run(context.Background(), responder, "", "hello", &buf)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the client error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be printed on error, got %q", buf.String())
	}
}
