package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/friday-go/internal/agent"
	"github.com/comigor/friday-go/internal/config"
)

type stubClient struct {
	requests []openai.ChatCompletionRequest
	content  string
}

func (s *stubClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.content}}},
	}, nil
}

func TestRun_PrintsFinalOutput(t *testing.T) {
	stub := &stubClient{content: "haiku text"}
	runner := agent.NewRunner(stub, config.Config{LLM: config.LLMConfig{Model: "gpt"}}, nil)

	var buf bytes.Buffer
	if err := run(context.Background(), runner, &buf); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got := buf.String(); got != "haiku text\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestRun_SendsFixedPromptAndInstructions(t *testing.T) {
	stub := &stubClient{content: "ok"}
	runner := agent.NewRunner(stub, config.Config{LLM: config.LLMConfig{Model: "gpt"}}, nil)

	if err := run(context.Background(), runner, &bytes.Buffer{}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(stub.requests) != 1 {
		t.Fatalf("expected 1 LLM call, got %d", len(stub.requests))
	}
	msgs := stub.requests[0].Messages
	if len(msgs) != 2 {
		t.Fatalf("expected system + user message, got %d", len(msgs))
	}
	if msgs[0].Role != openai.ChatMessageRoleSystem || msgs[0].Content != "You are a helpful assistant" {
		t.Errorf("unexpected system message: %+v", msgs[0])
	}
	if msgs[1].Role != openai.ChatMessageRoleUser || msgs[1].Content != haikuPrompt {
		t.Errorf("unexpected user message: %+v", msgs[1])
	}
}
