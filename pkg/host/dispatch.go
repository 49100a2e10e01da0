package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/amparo-saude/amparo/internal/observability"
	"github.com/amparo-saude/amparo/internal/tracing"
	"github.com/amparo-saude/amparo/pkg/agent"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultDispatchTimeout bounds one host-to-gateway call. A timeout does
// not cancel the in-flight request at the agent.
const DefaultDispatchTimeout = 10 * time.Second

// defaultEndpoints is the static domain to base-address table.
var defaultEndpoints = map[string]string{
	agent.DomainScheduling:   "http://localhost:3001",
	agent.DomainCancellation: "http://localhost:3002",
	agent.DomainExam:         "http://localhost:3003",
	agent.DomainPayment:      "http://localhost:3004",
}

// toolDomains maps each host tool name to its domain.
var toolDomains = map[string]string{
	"scheduling_agent":   agent.DomainScheduling,
	"cancellation_agent": agent.DomainCancellation,
	"payment_agent":      agent.DomainPayment,
	"exam_agent":         agent.DomainExam,
}

// Dispatcher issues /process calls to domain gateways
type Dispatcher struct {
	endpoints map[string]string
	client    *http.Client
}

// NewDispatcher creates a dispatcher. Endpoints override the static table
// per domain; missing entries keep their defaults.
func NewDispatcher(endpoints map[string]string, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}

	merged := make(map[string]string, len(defaultEndpoints))
	for domain, addr := range defaultEndpoints {
		merged[domain] = addr
	}
	for domain, addr := range endpoints {
		merged[domain] = addr
	}

	return &Dispatcher{
		endpoints: merged,
		client:    &http.Client{Timeout: timeout},
	}
}

// Dispatch forwards a message to the gateway serving the named tool and
// decodes the envelope. Any transport failure, non-2xx status, or
// success:false payload is returned as an error; callers fold all of them
// into the same degraded-service path.
func (d *Dispatcher) Dispatch(ctx context.Context, toolName, message string) (map[string]interface{}, error) {
	domain, ok := toolDomains[toolName]
	if !ok {
		return nil, fmt.Errorf("domínio desconhecido: %s", toolName)
	}

	base, ok := d.endpoints[domain]
	if !ok {
		return nil, fmt.Errorf("domínio desconhecido: %s", domain)
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"amparo.host",
		"host.dispatch",
		attribute.String("domain", domain),
		attribute.String("tool", toolName),
	)
	defer span.End()

	start := time.Now()
	payload, err := d.post(ctx, domain, base, message)
	if err != nil {
		observability.RecordDispatch(domain, "degraded", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if success, ok := payload["success"].(bool); ok && !success {
		observability.RecordDispatch(domain, "degraded", time.Since(start))
		errMsg, _ := payload["error"].(string)
		if errMsg == "" {
			errMsg = "Agente não respondeu"
		}
		err := fmt.Errorf("%s", errMsg)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return payload, err
	}

	observability.RecordDispatch(domain, "ok", time.Since(start))
	return payload, nil
}

func (d *Dispatcher) post(ctx context.Context, domain, base, message string) (map[string]interface{}, error) {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, err
	}

	ctx = tracing.PropagateToDomain(ctx, domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/process", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	tracing.InjectHTTP(ctx, req)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro ao conectar com %s: %w", domain, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("erro ao conectar com %s: status %d", domain, resp.StatusCode)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("erro ao conectar com %s: %w", domain, err)
	}

	return payload, nil
}

// Health probes a domain gateway's liveness endpoint.
func (d *Dispatcher) Health(ctx context.Context, domain string) error {
	base, ok := d.endpoints[domain]
	if !ok {
		return fmt.Errorf("domínio desconhecido: %s", domain)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s unhealthy: status %d", domain, resp.StatusCode)
	}
	return nil
}
