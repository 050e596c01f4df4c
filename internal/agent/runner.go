package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/friday-go/internal/config"
	"github.com/comigor/friday-go/internal/history"
	"github.com/comigor/friday-go/internal/llm"
	"github.com/comigor/friday-go/internal/logger"
)

// FSM states
type FSMState stateless.State

var (
	StateReadyToCallLLM FSMState = "ReadyToCallLLM"
	StateExecutingTools FSMState = "ExecutingTools"
	StateDone           FSMState = "Done"
	StateError          FSMState = "Error"
)

// FSM triggers
type FSMTrigger stateless.Trigger

var (
	TriggerProcessInput            FSMTrigger = "ProcessInput"
	TriggerLLMRespondedWithContent FSMTrigger = "LLMRespondedWithContent"
	TriggerLLMRequestedTools       FSMTrigger = "LLMRequestedTools"
	TriggerToolsExecutionCompleted FSMTrigger = "ToolsExecutionCompleted"
	TriggerErrorOccurred           FSMTrigger = "ErrorOccurred"
)

const defaultMaxTurns = 5

// Runner executes agents against the configured LLM, dispatching tool
// calls to the connected MCP servers and recording the conversation.
type Runner struct {
	llmClient  llm.Client
	model      string
	store      *history.Store
	mcpClients []MCPClient
	llmTools   []openai.Tool
	toolOwner  map[string]MCPClient
	maxTurns   int
}

// RunResult is the outcome of a synchronous agent run.
type RunResult struct {
	FinalOutput string
	SessionID   string
}

// NewRunner connects to the MCP servers in cfg and returns a runner
// ready to execute agents. store may be nil when history is disabled.
func NewRunner(llmClient llm.Client, cfg config.Config, store *history.Store) *Runner {
	ts := connectMCPServers(cfg.MCPServers)
	return &Runner{
		llmClient:  llmClient,
		model:      cfg.LLM.Model,
		store:      store,
		mcpClients: ts.clients,
		llmTools:   ts.llmTools,
		toolOwner:  ts.owner,
		maxTurns:   defaultMaxTurns,
	}
}

// RunSync executes the agent once in a fresh session and blocks until
// the final output is available.
func (r *Runner) RunSync(ctx context.Context, ag Agent, input string) (*RunResult, error) {
	return r.RunSyncSession(ctx, ag, input, uuid.NewString())
}

// RunSyncSession executes the agent within an existing session: prior
// messages of that session are replayed before the new input.
func (r *Runner) RunSyncSession(ctx context.Context, ag Agent, input, sessionID string) (*RunResult, error) {
	model := r.model
	if ag.Model != "" {
		model = ag.Model
	}
	if model == "" {
		model = llm.DefaultModel
	}

	messages := []openai.ChatCompletionMessage{}
	if ag.Instructions != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: ag.Instructions,
		})
	}
	if r.store != nil {
		for _, m := range r.store.List(sessionID) {
			messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
		}
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: input,
	})

	logger.L.Debug("starting agent run", "agent", ag.Name, "session_id", sessionID, "model", model)

	finalContent, err := r.run(ctx, model, messages)
	if err != nil {
		return nil, err
	}

	if r.store != nil {
		r.store.Save(history.Message{SessionID: sessionID, Role: openai.ChatMessageRoleUser, Content: input, CreatedAt: time.Now()})
		r.store.Save(history.Message{SessionID: sessionID, Role: openai.ChatMessageRoleAssistant, Content: finalContent, CreatedAt: time.Now()})
	}

	return &RunResult{FinalOutput: finalContent, SessionID: sessionID}, nil
}

// run drives the conversation with a Finite State Machine: call the LLM,
// execute any tools it requested, feed the results back, and repeat
// until the LLM answers with plain content or maxTurns is exceeded.
func (r *Runner) run(ctx context.Context, model string, initialMessages []openai.ChatCompletionMessage) (string, error) {
	type fsmContext struct {
		messages     []openai.ChatCompletionMessage
		llmResponse  *openai.ChatCompletionResponse
		finalContent string
		lastError    error
		currentTurn  int
	}

	fsmCtx := &fsmContext{messages: initialMessages}

	fsm := stateless.NewStateMachine(StateReadyToCallLLM)

	// State: ReadyToCallLLM
	// Action: call the LLM with the accumulated messages.
	// Transitions:
	//   - LLMRequestedTools -> ExecutingTools
	//   - LLMRespondedWithContent -> Done
	//   - ErrorOccurred -> Error
	fsm.Configure(StateReadyToCallLLM).
		PermitReentry(TriggerProcessInput).
		OnEntry(func(ctx context.Context, args ...any) error {
			if fsmCtx.currentTurn >= r.maxTurns {
				logger.L.Warn("Max interaction turns reached.", "maxTurns", r.maxTurns)
				fsmCtx.lastError = errors.New("exceeded maximum interaction turns")
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			fsmCtx.currentTurn++
			logger.L.Debug("FSM: entering ReadyToCallLLM", "turn", fsmCtx.currentTurn)

			llmResp, err := r.llmClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:    model,
				Messages: fsmCtx.messages,
				Tools:    r.llmTools,
			})
			if err != nil {
				logger.L.Error("LLM call failed", "error", err)
				fsmCtx.lastError = err
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			fsmCtx.llmResponse = &llmResp

			if len(llmResp.Choices) == 0 {
				fsmCtx.lastError = llm.ErrNoChoices
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			if len(llmResp.Choices[0].Message.ToolCalls) > 0 {
				return fsm.FireCtx(ctx, TriggerLLMRequestedTools)
			}
			return fsm.FireCtx(ctx, TriggerLLMRespondedWithContent)
		}).
		Permit(TriggerLLMRequestedTools, StateExecutingTools).
		Permit(TriggerLLMRespondedWithContent, StateDone).
		Permit(TriggerErrorOccurred, StateError)

	// State: ExecutingTools
	// Action: execute the requested tool calls via MCP and append the
	// results, then hand control back to the LLM.
	fsm.Configure(StateExecutingTools).
		OnEntry(func(ctx context.Context, args ...any) error {
			logger.L.Debug("FSM: entering ExecutingTools")
			if fsmCtx.llmResponse == nil || len(fsmCtx.llmResponse.Choices) == 0 {
				fsmCtx.lastError = errors.New("cannot execute tools, no LLM response available")
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}

			llmMessage := fsmCtx.llmResponse.Choices[0].Message
			fsmCtx.messages = append(fsmCtx.messages, llmMessage)

			for _, toolCall := range llmMessage.ToolCalls {
				var toolArgs map[string]any
				if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &toolArgs); err != nil {
					logger.L.Error("Failed to unmarshal tool arguments", "function", toolCall.Function.Name, "error", err)
					fsmCtx.messages = append(fsmCtx.messages, openai.ChatCompletionMessage{
						Role:       openai.ChatMessageRoleTool,
						Content:    "Error: Could not parse arguments for tool " + toolCall.Function.Name,
						ToolCallID: toolCall.ID,
						Name:       toolCall.Function.Name,
					})
					continue
				}

				fsmCtx.messages = append(fsmCtx.messages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    r.executeTool(ctx, toolCall.Function.Name, toolArgs),
					ToolCallID: toolCall.ID,
					Name:       toolCall.Function.Name,
				})
			}
			return fsm.FireCtx(ctx, TriggerToolsExecutionCompleted)
		}).
		Permit(TriggerToolsExecutionCompleted, StateReadyToCallLLM).
		Permit(TriggerErrorOccurred, StateError)

	// Terminal states.
	fsm.Configure(StateDone).
		OnEntry(func(ctx context.Context, args ...any) error {
			logger.L.Debug("FSM: entering Done")
			fsmCtx.finalContent = fsmCtx.llmResponse.Choices[0].Message.Content
			return nil
		})

	fsm.Configure(StateError).
		OnEntry(func(ctx context.Context, args ...any) error {
			logger.L.Debug("FSM: entering Error")
			if fsmCtx.lastError == nil {
				fsmCtx.lastError = errors.New("run failed without a specific error")
			}
			return nil
		})

	// The initial fire re-enters ReadyToCallLLM, which makes the first
	// LLM call; every transition after that happens synchronously inside
	// the OnEntry actions.
	if err := fsm.FireCtx(ctx, TriggerProcessInput); err != nil {
		if fsmCtx.lastError != nil {
			return "", fsmCtx.lastError
		}
		return "", err
	}

	currentState, err := fsm.State(ctx)
	if err != nil {
		return "", fmt.Errorf("state machine error: %w", err)
	}
	switch currentState {
	case StateDone:
		return fsmCtx.finalContent, nil
	case StateError:
		return "", fsmCtx.lastError
	}
	return "", fmt.Errorf("run ended in an unexpected state: %v", currentState)
}
