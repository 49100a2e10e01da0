package agent

import (
	"context"
	"fmt"

	"github.com/amparo-saude/amparo/pkg/llm"
	"github.com/amparo-saude/amparo/pkg/store"
	"github.com/rs/zerolog"
)

// Domain names. Each runs as its own gateway process.
const (
	DomainScheduling   = "scheduling"
	DomainCancellation = "cancellation"
	DomainPayment      = "payment"
	DomainExam         = "exam"
)

// Domains lists every known domain in gateway port order.
var Domains = []string{DomainScheduling, DomainCancellation, DomainExam, DomainPayment}

// DomainDeps carries what a domain needs to build its handlers.
type DomainDeps struct {
	Store        *store.Store
	Provider     llm.Provider
	SystemPrompt string
	Tools        []llm.Tool
	Logger       zerolog.Logger
}

// NewDomain builds the agent for a named domain with its fixed tool set and
// reply policy. Scheduling and exam relay raw tool results upstream; the
// cancellation and payment agents summarize for the patient. The asymmetry
// is deliberate and per-domain.
func NewDomain(domain string, deps DomainDeps) (*Agent, error) {
	cfg := Config{
		Domain:       domain,
		Provider:     deps.Provider,
		SystemPrompt: deps.SystemPrompt,
		Tools:        deps.Tools,
		Logger:       deps.Logger,
	}

	switch domain {
	case DomainScheduling:
		cfg.Mode = ReplyRelay
		cfg.Handlers = map[string]Handler{
			"consultar_slots": listSlotsHandler(deps.Store),
			"agendar_slot":    bookHandler(deps.Store),
		}
	case DomainCancellation:
		cfg.Mode = ReplySummarize
		cfg.Handlers = map[string]Handler{
			"consultar_slots":      listSlotsHandler(deps.Store),
			"buscar_por_documento": findByPatientHandler(deps.Store),
			"liberar_slot":         releaseHandler(deps.Store),
		}
	case DomainPayment:
		cfg.Mode = ReplySummarize
		cfg.Handlers = map[string]Handler{
			"processar_pagamento": addPaymentHandler(deps.Store),
			"processar_reembolso": refundHandler(deps.Store),
		}
	case DomainExam:
		cfg.Mode = ReplyRelay
		cfg.UnwrapSingle = true
		cfg.Handlers = map[string]Handler{
			"get_exam_result": examResultHandler(),
		}
	default:
		return nil, fmt.Errorf("unknown domain: %s", domain)
	}

	return New(cfg)
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %s must be a string", key)
	}
	return s, nil
}

func listSlotsHandler(st *store.Store) Handler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		return st.ListSlots()
	}
}

func bookHandler(st *store.Store) Handler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		slotID, err := stringArg(args, "slot_id")
		if err != nil {
			return nil, err
		}
		patient, err := stringArg(args, "patient_cpf")
		if err != nil {
			return nil, err
		}
		return st.Book(slotID, patient)
	}
}

func releaseHandler(st *store.Store) Handler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		slotID, err := stringArg(args, "slot_id")
		if err != nil {
			return nil, err
		}
		return st.Release(slotID)
	}
}

func findByPatientHandler(st *store.Store) Handler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		document, err := stringArg(args, "documento")
		if err != nil {
			return nil, err
		}
		return st.FindByPatient(document)
	}
}

func addPaymentHandler(st *store.Store) Handler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		patientName, err := stringArg(args, "patient_name")
		if err != nil {
			return nil, err
		}
		document, err := stringArg(args, "document")
		if err != nil {
			return nil, err
		}
		date, err := stringArg(args, "date")
		if err != nil {
			return nil, err
		}
		specialty, err := stringArg(args, "specialty")
		if err != nil {
			return nil, err
		}
		return st.AddPayment(patientName, document, date, specialty)
	}
}

func refundHandler(st *store.Store) Handler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		document, err := stringArg(args, "document")
		if err != nil {
			return nil, err
		}
		return st.Refund(document)
	}
}
