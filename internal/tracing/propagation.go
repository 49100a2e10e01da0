package tracing

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// Header names carrying tracing context across the host to gateway hop.
const (
	HeaderTraceID = "X-Trace-Id"
	HeaderRunID   = "X-Run-Id"
)

// PropagateToDomain derives a context for a domain-agent dispatch.
// It keeps the trace ID but generates a new run ID for the downstream call.
func PropagateToDomain(ctx context.Context, domain string) context.Context {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = NewTraceID()
	}

	newCtx := WithTraceID(ctx, traceID)
	newCtx = WithRunID(newCtx, NewRunID())
	return WithDomain(newCtx, domain)
}

// InjectHTTP writes tracing context into outbound request headers.
func InjectHTTP(ctx context.Context, req *http.Request) {
	if traceID := GetTraceID(ctx); traceID != "" {
		req.Header.Set(HeaderTraceID, traceID)
	}
	if runID := GetRunID(ctx); runID != "" {
		req.Header.Set(HeaderRunID, runID)
	}
}

// ExtractHTTP reads tracing context from inbound request headers,
// minting fresh IDs when the caller sent none.
func ExtractHTTP(ctx context.Context, req *http.Request) context.Context {
	traceID := req.Header.Get(HeaderTraceID)
	if traceID == "" {
		traceID = NewTraceID()
	}
	runID := req.Header.Get(HeaderRunID)
	if runID == "" {
		runID = NewRunID()
	}

	ctx = WithTraceID(ctx, traceID)
	return WithRunID(ctx, runID)
}

// PropagateToLogger adds tracing context to a zerolog logger
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)

	if tc.TraceID != "" {
		logger = logger.With().Str("trace_id", tc.TraceID).Logger()
	}
	if tc.RunID != "" {
		logger = logger.With().Str("run_id", tc.RunID).Logger()
	}
	if tc.Domain != "" {
		logger = logger.With().Str("domain", tc.Domain).Logger()
	}

	return logger
}

// LoggerFromContext creates a logger with tracing context from the given context
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}
