package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/amparo-saude/amparo/pkg/llm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs a recording tracer provider for one test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

// fakeProvider returns scripted responses in order and records every request.
type fakeProvider struct {
	responses []*llm.Response
	requests  []llm.Request
	err       error
}

func (f *fakeProvider) Complete(ctx context.Context, request llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, request)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("no scripted response left")
	}
	response := f.responses[0]
	f.responses = f.responses[1:]
	return response, nil
}

func (f *fakeProvider) Name() string { return "fake" }

var testTools = []llm.Tool{
	{
		Name: "consultar_slots",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	},
	{
		Name: "agendar_slot",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"slot_id":     map[string]interface{}{"type": "string"},
				"patient_cpf": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"slot_id", "patient_cpf"},
		},
	},
}

func newTestAgent(t *testing.T, provider llm.Provider, mode ReplyMode, handlers map[string]Handler) *Agent {
	t.Helper()
	a, err := New(Config{
		Domain:       "scheduling",
		Provider:     provider,
		SystemPrompt: "Você é o agente de agendamento.",
		Tools:        testTools,
		Handlers:     handlers,
		Mode:         mode,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)
	return a
}

func allHandlers(results map[string]interface{}) map[string]Handler {
	handlers := make(map[string]Handler, len(results))
	for name, result := range results {
		r := result
		handlers[name] = func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return r, nil
		}
	}
	return handlers
}

func TestNew(t *testing.T) {
	provider := &fakeProvider{}

	t.Run("rejects a tool without a handler", func(t *testing.T) {
		_, err := New(Config{
			Domain:       "scheduling",
			Provider:     provider,
			SystemPrompt: "prompt",
			Tools:        testTools,
			Handlers:     map[string]Handler{"consultar_slots": func(context.Context, map[string]interface{}) (interface{}, error) { return nil, nil }},
			Logger:       zerolog.Nop(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "agendar_slot")
	})

	t.Run("requires a system prompt", func(t *testing.T) {
		_, err := New(Config{
			Domain:   "scheduling",
			Provider: provider,
			Tools:    testTools,
			Logger:   zerolog.Nop(),
		})
		assert.Error(t, err)
	})
}

func TestProcessDirectReply(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{Content: "Olá! Como posso ajudar?"},
	}}
	a := newTestAgent(t, provider, ReplyRelay, allHandlers(map[string]interface{}{
		"consultar_slots": nil, "agendar_slot": nil,
	}))

	reply, err := a.Process(context.Background(), "oi")
	require.NoError(t, err)
	assert.Equal(t, "Olá! Como posso ajudar?", reply)

	require.Len(t, provider.requests, 1)
	assert.Equal(t, "Você é o agente de agendamento.", provider.requests[0].SystemPrompt)
	assert.Len(t, provider.requests[0].Tools, 2)

	history := a.History()
	require.Len(t, history, 2)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
}

func TestProcessRelay(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "agendar_slot", Arguments: map[string]interface{}{
			"slot_id": "SLOT-001", "patient_cpf": "12345678900",
		}}}},
	}}
	booked := map[string]interface{}{"success": true, "message": "Slot agendado"}
	a := newTestAgent(t, provider, ReplyRelay, allHandlers(map[string]interface{}{
		"consultar_slots": nil, "agendar_slot": booked,
	}))

	reply, err := a.Process(context.Background(), "quero agendar o SLOT-001, CPF 12345678900")
	require.NoError(t, err)

	// the raw tool results come back as a JSON array, no second completion
	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(reply), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Slot agendado", results[0]["message"])
	assert.Len(t, provider.requests, 1)

	history := a.History()
	require.Len(t, history, 2)
	assert.Contains(t, history[1].Content, "Executei as seguintes ações:")
}

func TestProcessSummarize(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "consultar_slots", Arguments: map[string]interface{}{}}}},
		{Content: "Sua consulta foi cancelada com sucesso."},
	}}
	a := newTestAgent(t, provider, ReplySummarize, allHandlers(map[string]interface{}{
		"consultar_slots": map[string]interface{}{"2025-09-22": []string{}},
		"agendar_slot":    nil,
	}))

	reply, err := a.Process(context.Background(), "pode cancelar minha consulta?")
	require.NoError(t, err)
	assert.Equal(t, "Sua consulta foi cancelada com sucesso.", reply)

	require.Len(t, provider.requests, 2)

	// the second completion carries no tools and the summarize instruction
	second := provider.requests[1]
	assert.Empty(t, second.Tools)
	assert.Equal(t, 300, second.MaxTokens)
	assert.Contains(t, second.SystemPrompt, "resposta clara e conversacional")

	history := a.History()
	require.Len(t, history, 3)
	assert.Contains(t, history[1].Content, "Resultado das ferramentas:")
	assert.Equal(t, "Sua consulta foi cancelada com sucesso.", history[2].Content)
}

func TestProcessUnknownFunction(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "fazer_cafe", Arguments: map[string]interface{}{}}}},
	}}
	a := newTestAgent(t, provider, ReplyRelay, allHandlers(map[string]interface{}{
		"consultar_slots": nil, "agendar_slot": nil,
	}))

	reply, err := a.Process(context.Background(), "faz um café")
	require.NoError(t, err)

	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(reply), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Função fazer_cafe não encontrada", results[0]["error"])
}

func TestProcessInvalidArguments(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "agendar_slot", Arguments: map[string]interface{}{
			"slot_id": "SLOT-001",
		}}}},
	}}
	called := false
	handlers := allHandlers(map[string]interface{}{"consultar_slots": nil})
	handlers["agendar_slot"] = func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		called = true
		return nil, nil
	}
	a := newTestAgent(t, provider, ReplyRelay, handlers)

	reply, err := a.Process(context.Background(), "agenda aí")
	require.NoError(t, err)
	assert.False(t, called, "handler must not run on invalid arguments")

	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(reply), &results))
	require.Len(t, results, 1)
	assert.Contains(t, results[0]["error"], "agendar_slot")
}

func TestProcessHandlerError(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "consultar_slots", Arguments: map[string]interface{}{}}}},
	}}
	handlers := allHandlers(map[string]interface{}{"agendar_slot": nil})
	handlers["consultar_slots"] = func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		return nil, errors.New("failed to read appointments.json")
	}
	a := newTestAgent(t, provider, ReplyRelay, handlers)

	_, err := a.Process(context.Background(), "quais horários tem?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consultar_slots")
}

func TestProcessProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	a := newTestAgent(t, provider, ReplyRelay, allHandlers(map[string]interface{}{
		"consultar_slots": nil, "agendar_slot": nil,
	}))

	_, err := a.Process(context.Background(), "oi")
	assert.Error(t, err)
}

func TestProcessUnwrapSingle(t *testing.T) {
	examTools := []llm.Tool{{
		Name: "get_exam_result",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"patientId": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"patientId"},
		},
	}}

	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "get_exam_result", Arguments: map[string]interface{}{
			"patientId": "12345",
		}}}},
	}}

	a, err := New(Config{
		Domain:       "exam",
		Provider:     provider,
		SystemPrompt: "Você é o agente de exames.",
		Tools:        examTools,
		Handlers: map[string]Handler{
			"get_exam_result": func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return map[string]interface{}{"success": true, "message": "Encontrados 2 exame(s)"}, nil
			},
		},
		Mode:         ReplyRelay,
		UnwrapSingle: true,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)

	reply, err := a.Process(context.Background(), "meus exames, paciente 12345")
	require.NoError(t, err)

	// a single result is unwrapped to an object, not a one-element array
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(reply), &result))
	assert.Equal(t, "Encontrados 2 exame(s)", result["message"])
}

func TestProcessEmitsSpan(t *testing.T) {
	recorder := recordSpans(t)

	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "1", Name: "consultar_slots", Arguments: map[string]interface{}{}}}},
	}}
	a := newTestAgent(t, provider, ReplyRelay, allHandlers(map[string]interface{}{
		"consultar_slots": map[string]interface{}{"success": true}, "agendar_slot": nil,
	}))

	_, err := a.Process(context.Background(), "quais horários tem?")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "agent.process", spans[0].Name())

	var domain string
	for _, attr := range spans[0].Attributes() {
		if string(attr.Key) == "domain" {
			domain = attr.Value.AsString()
		}
	}
	assert.Equal(t, "scheduling", domain)
}

func TestSetSystemPrompt(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{{Content: "ok"}}}
	a := newTestAgent(t, provider, ReplyRelay, allHandlers(map[string]interface{}{
		"consultar_slots": nil, "agendar_slot": nil,
	}))

	a.SetSystemPrompt("Novo prompt.")

	_, err := a.Process(context.Background(), "oi")
	require.NoError(t, err)
	require.Len(t, provider.requests, 1)
	assert.Equal(t, "Novo prompt.", provider.requests[0].SystemPrompt)
}
