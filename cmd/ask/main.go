package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/comigor/friday-go/internal/config"
	"github.com/comigor/friday-go/internal/llm"
	"github.com/comigor/friday-go/internal/logger"
)

func main() {
	model := flag.String("model", "", "model to use for this prompt (defaults to the configured one)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Logging.Level)

	prompt := strings.Join(flag.Args(), " ")
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "usage: ask [-model name] <prompt>")
		os.Exit(2)
	}

	responder := llm.NewResponder(llm.NewClient(cfg.LLM), cfg.LLM.Model)
	if err := run(context.Background(), responder, *model, prompt, os.Stdout); err != nil {
		logger.L.Error("failed to get response", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, responder *llm.Responder, model, prompt string, out io.Writer) error {
	response, err := responder.GetResponseWithModel(ctx, prompt, model)
	if err != nil {
		return err
	}
	llm.PrintResponse(out, response)
	return nil
}
