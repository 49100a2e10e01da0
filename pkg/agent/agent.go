package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/amparo-saude/amparo/internal/observability"
	"github.com/amparo-saude/amparo/internal/tracing"
	"github.com/amparo-saude/amparo/pkg/llm"
	"github.com/amparo-saude/amparo/pkg/schema"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// summarizeInstruction augments the system prompt for the second completion
// of summarizing domains. Matches the deployed prompt wording.
const summarizeInstruction = "\n\nCom base nos resultados das ferramentas, forneça uma resposta clara e conversacional ao paciente."

// ReplyMode selects how an agent turns tool results into its reply.
type ReplyMode int

const (
	// ReplyRelay returns the raw tool results as JSON after recording a
	// terse audit line in history (scheduling, exam).
	ReplyRelay ReplyMode = iota
	// ReplySummarize feeds the tool results back through a second
	// completion and returns its prose (cancellation, payment).
	ReplySummarize
)

// Handler executes one store-backed tool call.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Agent is one domain-specialized conversational agent. It owns its
// conversation history for the lifetime of the process; history is never
// persisted, so a restart drops any in-flight context.
type Agent struct {
	domain   string
	provider llm.Provider
	tools    []llm.Tool
	handlers map[string]Handler
	mode     ReplyMode
	// exam keeps the original single-result unwrapping on relay
	unwrapSingle bool

	temperature float64
	maxTokens   int

	promptMu     sync.RWMutex
	systemPrompt string

	historyMu sync.Mutex
	history   []llm.Message

	logger zerolog.Logger
}

// Config holds agent configuration
type Config struct {
	Domain       string
	Provider     llm.Provider
	SystemPrompt string
	Tools        []llm.Tool
	Handlers     map[string]Handler
	Mode         ReplyMode
	UnwrapSingle bool
	Temperature  float64
	MaxTokens    int
	Logger       zerolog.Logger
}

// New creates a domain agent. Every tool declared in the schema must have a
// handler; a mismatch is a configuration fault and fails here, not at call
// time.
func New(cfg Config) (*Agent, error) {
	if cfg.Domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.SystemPrompt == "" {
		return nil, fmt.Errorf("system prompt is required")
	}
	if len(cfg.Tools) == 0 {
		return nil, fmt.Errorf("at least one tool is required")
	}

	registered := make(map[string]bool, len(cfg.Handlers))
	for name := range cfg.Handlers {
		registered[name] = true
	}
	if err := schema.CheckHandlers(cfg.Tools, registered); err != nil {
		return nil, err
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 500
	}

	return &Agent{
		domain:       cfg.Domain,
		provider:     cfg.Provider,
		systemPrompt: cfg.SystemPrompt,
		tools:        cfg.Tools,
		handlers:     cfg.Handlers,
		mode:         cfg.Mode,
		unwrapSingle: cfg.UnwrapSingle,
		temperature:  temperature,
		maxTokens:    maxTokens,
		logger:       cfg.Logger,
	}, nil
}

// Domain returns the agent's domain name
func (a *Agent) Domain() string {
	return a.domain
}

// SetSystemPrompt replaces the system prompt in place. Used by the prompt
// file watcher; in-flight turns keep the prompt they started with.
func (a *Agent) SetSystemPrompt(prompt string) {
	a.promptMu.Lock()
	a.systemPrompt = prompt
	a.promptMu.Unlock()
}

func (a *Agent) currentPrompt() string {
	a.promptMu.RLock()
	defer a.promptMu.RUnlock()
	return a.systemPrompt
}

// Process handles one inbound message: completion, tool dispatch, and the
// domain's reply policy. Any provider or store I/O fault is returned as an
// error for the gateway boundary to envelope.
func (a *Agent) Process(ctx context.Context, input string) (string, error) {
	ctx, span := tracing.StartSpan(
		ctx,
		"amparo.agent",
		"agent.process",
		attribute.String("domain", a.domain),
	)
	defer span.End()

	start := time.Now()
	reply, err := a.process(ctx, input)
	observability.RecordAgentRun(a.domain, time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return reply, err
}

func (a *Agent) process(ctx context.Context, input string) (string, error) {
	logger := tracing.LoggerFromContext(ctx, a.logger)

	a.historyMu.Lock()
	defer a.historyMu.Unlock()

	a.history = append(a.history, llm.Message{Role: llm.RoleUser, Content: input})

	systemPrompt := a.currentPrompt()
	response, err := a.complete(ctx, systemPrompt, a.tools)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	if len(response.ToolCalls) == 0 {
		if response.Content != "" {
			a.history = append(a.history, llm.Message{Role: llm.RoleAssistant, Content: response.Content})
		}
		return response.Content, nil
	}

	results, err := a.executeTools(ctx, logger, response.ToolCalls)
	if err != nil {
		return "", err
	}

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool results: %w", err)
	}

	if a.mode == ReplyRelay {
		payload := any(results)
		if a.unwrapSingle && len(results) == 1 {
			payload = results[0]
			resultsJSON, err = json.Marshal(payload)
			if err != nil {
				return "", fmt.Errorf("failed to encode tool result: %w", err)
			}
		}

		a.history = append(a.history, llm.Message{
			Role:    llm.RoleAssistant,
			Content: fmt.Sprintf("Executei as seguintes ações: %s", resultsJSON),
		})
		return string(resultsJSON), nil
	}

	// Summarizing domains feed the results back through the model.
	a.history = append(a.history, llm.Message{
		Role:    llm.RoleAssistant,
		Content: fmt.Sprintf("Resultado das ferramentas: %s", resultsJSON),
	})

	final, err := a.completeFinal(ctx, systemPrompt+summarizeInstruction)
	if err != nil {
		return "", fmt.Errorf("summary completion failed: %w", err)
	}

	a.history = append(a.history, llm.Message{Role: llm.RoleAssistant, Content: final.Content})
	return final.Content, nil
}

// executeTools dispatches each requested call in order. Unknown names and
// invalid arguments produce local error results rather than store calls;
// store I/O faults abort the turn and surface at the gateway boundary.
func (a *Agent) executeTools(ctx context.Context, logger zerolog.Logger, calls []llm.ToolCall) ([]interface{}, error) {
	results := make([]interface{}, 0, len(calls))

	for _, call := range calls {
		handler, ok := a.handlers[call.Name]
		if !ok {
			logger.Warn().Str("function", call.Name).Msg("Model requested unknown function")
			results = append(results, map[string]interface{}{
				"error": fmt.Sprintf("Função %s não encontrada", call.Name),
			})
			continue
		}

		if tool, found := a.findTool(call.Name); found {
			if err := schema.ValidateArgs(tool, call.Arguments); err != nil {
				logger.Warn().Str("function", call.Name).Err(err).Msg("Invalid tool arguments")
				results = append(results, map[string]interface{}{"error": err.Error()})
				continue
			}
		}

		logger.Info().Str("function", call.Name).Interface("arguments", call.Arguments).Msg("Executing tool")

		result, err := handler(ctx, call.Arguments)
		if err != nil {
			return nil, fmt.Errorf("tool %s failed: %w", call.Name, err)
		}

		results = append(results, result)
	}

	return results, nil
}

func (a *Agent) findTool(name string) (llm.Tool, bool) {
	for _, t := range a.tools {
		if t.Name == name {
			return t, true
		}
	}
	return llm.Tool{}, false
}

func (a *Agent) complete(ctx context.Context, systemPrompt string, tools []llm.Tool) (*llm.Response, error) {
	start := time.Now()
	response, err := a.provider.Complete(ctx, llm.Request{
		Messages:     a.history,
		Tools:        tools,
		Temperature:  a.temperature,
		MaxTokens:    a.maxTokens,
		SystemPrompt: systemPrompt,
	})
	observability.RecordCompletion(a.provider.Name(), time.Since(start), err == nil)
	return response, err
}

// completeFinal runs the summarization pass with no tools attached.
func (a *Agent) completeFinal(ctx context.Context, systemPrompt string) (*llm.Response, error) {
	start := time.Now()
	response, err := a.provider.Complete(ctx, llm.Request{
		Messages:     a.history,
		Temperature:  a.temperature,
		MaxTokens:    300,
		SystemPrompt: systemPrompt,
	})
	observability.RecordCompletion(a.provider.Name(), time.Since(start), err == nil)
	return response, err
}

// History returns a copy of the conversation history.
func (a *Agent) History() []llm.Message {
	a.historyMu.Lock()
	defer a.historyMu.Unlock()
	out := make([]llm.Message, len(a.history))
	copy(out, a.history)
	return out
}
