package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/amparo-saude/amparo/internal/observability"
	"github.com/amparo-saude/amparo/internal/tracing"
	"github.com/amparo-saude/amparo/pkg/agent"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// ProcessRequest is the body of POST /process
type ProcessRequest struct {
	Message string `json:"message"`
}

// ProcessResponse is the uniform envelope for POST /process. Every agent
// fault is folded into it; the transport status stays 200 so the host never
// has to distinguish failure causes.
type ProcessResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Server exposes one domain agent over HTTP
type Server struct {
	port         int
	agent        *agent.Agent
	server       *http.Server
	inFlightReqs sync.WaitGroup
	logger       zerolog.Logger
}

// Config holds server configuration
type Config struct {
	Port   int
	Agent  *agent.Agent
	Logger zerolog.Logger
}

// NewServer creates a gateway server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Agent == nil {
		return nil, fmt.Errorf("agent is required")
	}

	return &Server{
		port:   cfg.Port,
		agent:  cfg.Agent,
		logger: cfg.Logger,
	}, nil
}

// Start starts the server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	s.logger.Info().
		Int("port", s.port).
		Str("service", s.agent.Domain()).
		Msg("Starting agent gateway")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	err := s.server.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		observability.RecordGatewayRequest(s.agent.Domain(), "/health", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: s.agent.Domain(),
	})
	observability.RecordGatewayRequest(s.agent.Domain(), "/health", http.StatusOK)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		observability.RecordGatewayRequest(s.agent.Domain(), "/process", http.StatusMethodNotAllowed)
		return
	}

	s.inFlightReqs.Add(1)
	defer s.inFlightReqs.Done()

	requestID, err := gonanoid.New()
	if err != nil {
		requestID = "unknown"
	}

	ctx := tracing.ExtractHTTP(r.Context(), r)
	ctx = tracing.WithDomain(ctx, s.agent.Domain())
	logger := tracing.LoggerFromContext(ctx, s.logger).With().Str("request_id", requestID).Logger()

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("Malformed process request")
		writeJSON(w, http.StatusBadRequest, ProcessResponse{Success: false, Error: "invalid request body"})
		observability.RecordGatewayRequest(s.agent.Domain(), "/process", http.StatusBadRequest)
		return
	}

	logger.Info().Str("message", req.Message).Msg("Processing message")

	response := s.process(ctx, logger, req.Message)
	writeJSON(w, http.StatusOK, response)
	observability.RecordGatewayRequest(s.agent.Domain(), "/process", http.StatusOK)
}

// process delegates to the agent and converts any fault, panic included,
// into the uniform envelope.
func (s *Server) process(ctx context.Context, logger zerolog.Logger, message string) (response ProcessResponse) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Msg("Agent panicked")
			response = ProcessResponse{Success: false, Error: fmt.Sprintf("%v", rec)}
		}
	}()

	reply, err := s.agent.Process(ctx, message)
	if err != nil {
		logger.Error().Err(err).Msg("Agent processing failed")
		return ProcessResponse{Success: false, Error: err.Error()}
	}

	logger.Info().Str("response", reply).Msg("Message processed")
	return ProcessResponse{Success: true, Response: reply}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Handler returns the HTTP handler for tests
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/process", s.handleProcess)
	mux.Handle("/metrics", observability.MetricsHandler())
	return mux
}
