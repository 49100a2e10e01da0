package host

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/amparo-saude/amparo/internal/observability"
	"github.com/amparo-saude/amparo/internal/tracing"
	"github.com/amparo-saude/amparo/pkg/llm"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
)

// degradedTemplate is the canned apology shown when a domain gateway fails.
const degradedTemplate = "Desculpe, o serviço de %s está temporariamente indisponível. Tente novamente em alguns momentos ou entre em contato conosco pelo telefone (11) 1234-5678 para assistência imediata."

// domainDisplayNames maps host tool names to the patient-facing service name
// used in the apology.
var domainDisplayNames = map[string]string{
	"scheduling_agent":   "agendamento",
	"cancellation_agent": "cancelamento",
	"payment_agent":      "pagamento",
	"exam_agent":         "busca de exames",
}

// proseDomains already summarize their tool results into patient-facing
// prose, so their replies pass through unchanged. The relay domains return
// raw tool JSON that still needs a follow-up completion here.
var proseDomains = map[string]bool{
	"cancellation_agent": true,
	"payment_agent":      true,
}

// Orchestrator routes patient messages to domain agents. It holds the full
// conversation history for the session; like the domain agents, history is
// process-local and dropped on restart.
type Orchestrator struct {
	provider   llm.Provider
	dispatcher *Dispatcher
	tools      []llm.Tool

	temperature float64
	maxTokens   int

	systemPrompt string

	historyMu sync.Mutex
	history   []llm.Message

	logger zerolog.Logger
}

// Config holds orchestrator configuration
type Config struct {
	Provider     llm.Provider
	Dispatcher   *Dispatcher
	SystemPrompt string
	Tools        []llm.Tool
	Temperature  float64
	MaxTokens    int
	Logger       zerolog.Logger
}

// New creates a host orchestrator. Every routing tool must name a known
// domain.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if cfg.SystemPrompt == "" {
		return nil, fmt.Errorf("system prompt is required")
	}
	if len(cfg.Tools) == 0 {
		return nil, fmt.Errorf("at least one routing tool is required")
	}
	for _, tool := range cfg.Tools {
		if _, ok := toolDomains[tool.Name]; !ok {
			return nil, fmt.Errorf("routing tool %s names no known domain", tool.Name)
		}
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 500
	}

	return &Orchestrator{
		provider:     cfg.Provider,
		dispatcher:   cfg.Dispatcher,
		tools:        cfg.Tools,
		temperature:  temperature,
		maxTokens:    maxTokens,
		systemPrompt: cfg.SystemPrompt,
		logger:       cfg.Logger,
	}, nil
}

// ProcessTurn handles one patient message end to end: a routing completion,
// one gateway dispatch per requested tool call in order, and a follow-up
// completion over the dispatch result. When the model requests several calls
// the reply of the last one wins. A failed dispatch short-circuits its call
// into the canned apology without consulting the model again.
func (o *Orchestrator) ProcessTurn(ctx context.Context, input string) (Reply, error) {
	ctx = tracing.NewRequestContext(ctx)
	ctx, span := tracing.StartSpan(ctx, "amparo.host", "host.turn")
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, o.logger)

	o.historyMu.Lock()
	defer o.historyMu.Unlock()

	o.history = append(o.history, llm.Message{Role: llm.RoleUser, Content: input})

	response, err := o.complete(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Reply{}, fmt.Errorf("completion failed: %w", err)
	}

	if len(response.ToolCalls) == 0 {
		if response.Content != "" {
			o.history = append(o.history, llm.Message{Role: llm.RoleAssistant, Content: response.Content})
		}
		return Reply{Kind: ReplyNormal, Text: response.Content}, nil
	}

	var reply Reply
	for _, call := range response.ToolCalls {
		message, _ := call.Arguments["message"].(string)
		if message == "" {
			message = input
		}

		logger.Info().Str("tool", call.Name).Str("message", message).Msg("Dispatching to domain agent")

		reply, err = o.handleDispatch(ctx, logger, call.Name, message)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Reply{}, err
		}
	}

	return reply, nil
}

// handleDispatch runs one routed call and produces its reply.
func (o *Orchestrator) handleDispatch(ctx context.Context, logger zerolog.Logger, toolName, message string) (Reply, error) {
	payload, err := o.dispatcher.Dispatch(ctx, toolName, message)
	if err != nil {
		logger.Warn().Str("tool", toolName).Err(err).Msg("Domain agent unavailable")
		apology := o.degradedReply(toolName)
		o.history = append(o.history, llm.Message{Role: llm.RoleAssistant, Content: apology.Text})
		return apology, nil
	}

	if proseDomains[toolName] {
		text, _ := payload["response"].(string)
		o.history = append(o.history, llm.Message{Role: llm.RoleAssistant, Content: text})
		return Reply{Kind: ReplyNormal, Text: text}, nil
	}

	resultJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return Reply{}, fmt.Errorf("failed to encode agent result: %w", err)
	}

	o.history = append(o.history, llm.Message{
		Role:    llm.RoleAssistant,
		Content: fmt.Sprintf("Resultado do %s: %s", toolName, resultJSON),
	})

	response, err := o.complete(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("follow-up completion failed: %w", err)
	}

	o.history = append(o.history, llm.Message{Role: llm.RoleAssistant, Content: response.Content})
	return Reply{Kind: ReplyNormal, Text: response.Content}, nil
}

// degradedReply builds the fixed apology for a failed domain.
func (o *Orchestrator) degradedReply(toolName string) Reply {
	name, ok := domainDisplayNames[toolName]
	if !ok {
		name = "atendimento"
	}
	return Reply{
		Kind:         ReplyDegraded,
		Text:         fmt.Sprintf(degradedTemplate, name),
		FailedDomain: toolDomains[toolName],
	}
}

func (o *Orchestrator) complete(ctx context.Context) (*llm.Response, error) {
	start := time.Now()
	response, err := o.provider.Complete(ctx, llm.Request{
		Messages:     o.history,
		Tools:        o.tools,
		Temperature:  o.temperature,
		MaxTokens:    o.maxTokens,
		SystemPrompt: o.systemPrompt,
	})
	observability.RecordCompletion(o.provider.Name(), time.Since(start), err == nil)
	return response, err
}

// History returns a copy of the conversation history.
func (o *Orchestrator) History() []llm.Message {
	o.historyMu.Lock()
	defer o.historyMu.Unlock()
	out := make([]llm.Message, len(o.history))
	copy(out, o.history)
	return out
}
