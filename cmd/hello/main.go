package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/comigor/friday-go/internal/agent"
	"github.com/comigor/friday-go/internal/config"
	"github.com/comigor/friday-go/internal/history"
	"github.com/comigor/friday-go/internal/llm"
	"github.com/comigor/friday-go/internal/logger"
)

const haikuPrompt = "Write a haiku about recursion in programming."

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Logging.Level)

	var store *history.Store
	if cfg.History.Path != "" {
		store = history.Open(cfg.History.Path)
	}

	runner := agent.NewRunner(llm.NewClient(cfg.LLM), *cfg, store)

	err = run(context.Background(), runner, os.Stdout)
	runner.Close()
	if store != nil {
		if cerr := store.Close(); cerr != nil {
			logger.L.Warn("history store close error", "error", cerr)
		}
	}
	if err != nil {
		logger.L.Error("agent run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, runner *agent.Runner, out io.Writer) error {
	assistant := agent.New("Assistant", "You are a helpful assistant")

	result, err := runner.RunSync(ctx, assistant, haikuPrompt)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, result.FinalOutput)
	return nil
}
