package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/friday-go/internal/logger"
)

// DefaultModel is used when neither the configuration nor the caller picks one.
const DefaultModel = openai.GPT4oMini

// ErrNoChoices is returned when the service answers without any completion
// choices to read a response from.
var ErrNoChoices = errors.New("response contained no completion choices")

const (
	bannerOpen  = "=== LLM Response ==="
	bannerClose = "===================="
)

// Responder sends single prompts to a chat-completion service and hands back
// the generated text. It does not retry and applies no timeout beyond the
// caller's context.
type Responder struct {
	client Client
	model  string
}

// NewResponder wires a Responder to a client. An empty model selects
// DefaultModel.
func NewResponder(client Client, model string) *Responder {
	if model == "" {
		model = DefaultModel
	}
	return &Responder{client: client, model: model}
}

// GetResponse sends the prompt as a single user message using the configured
// model and returns the first choice's text content.
func (r *Responder) GetResponse(ctx context.Context, prompt string) (string, error) {
	return r.GetResponseWithModel(ctx, prompt, "")
}

// GetResponseWithModel is GetResponse with a per-call model override. An empty
// model falls back to the Responder's configured one. Errors from the remote
// service are returned unmodified.
func (r *Responder) GetResponseWithModel(ctx context.Context, prompt, model string) (string, error) {
	if model == "" {
		model = r.model
	}
	logger.L.Debug("sending prompt", "model", model)

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return resp.Choices[0].Message.Content, nil
}

// PrintResponse writes the response between banner lines: the opening banner,
// the text and the closing banner, one per line.
func PrintResponse(w io.Writer, response string) {
	fmt.Fprintln(w, bannerOpen)
	fmt.Fprintln(w, response)
	fmt.Fprintln(w, bannerClose)
}
