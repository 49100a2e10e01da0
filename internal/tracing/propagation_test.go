package tracing

import (
	"context"
	"net/http"
	"testing"
)

func TestPropagateToDomain(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithRunID(ctx, "run-1")

	newCtx := PropagateToDomain(ctx, "scheduling")

	if GetTraceID(newCtx) != "trace-1" {
		t.Errorf("Expected trace ID trace-1, got %s", GetTraceID(newCtx))
	}

	if GetRunID(newCtx) == "run-1" {
		t.Error("Expected a fresh run ID for the dispatch")
	}
	if GetRunID(newCtx) == "" {
		t.Error("Expected a run ID to be set")
	}

	if GetDomain(newCtx) != "scheduling" {
		t.Errorf("Expected domain scheduling, got %s", GetDomain(newCtx))
	}
}

func TestPropagateToDomainWithoutTrace(t *testing.T) {
	newCtx := PropagateToDomain(context.Background(), "exam")

	if GetTraceID(newCtx) == "" {
		t.Error("Expected a trace ID to be minted")
	}
}

func TestInjectExtractHTTP(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithRunID(ctx, "run-1")

	req, err := http.NewRequest(http.MethodPost, "http://localhost:3001/process", nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	InjectHTTP(ctx, req)

	if req.Header.Get(HeaderTraceID) != "trace-1" {
		t.Errorf("Expected header %s=trace-1, got %s", HeaderTraceID, req.Header.Get(HeaderTraceID))
	}
	if req.Header.Get(HeaderRunID) != "run-1" {
		t.Errorf("Expected header %s=run-1, got %s", HeaderRunID, req.Header.Get(HeaderRunID))
	}

	extracted := ExtractHTTP(context.Background(), req)
	if GetTraceID(extracted) != "trace-1" {
		t.Errorf("Expected extracted trace ID trace-1, got %s", GetTraceID(extracted))
	}
	if GetRunID(extracted) != "run-1" {
		t.Errorf("Expected extracted run ID run-1, got %s", GetRunID(extracted))
	}
}

func TestExtractHTTPMintsMissingIDs(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, "http://localhost:3001/process", nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	ctx := ExtractHTTP(context.Background(), req)

	if GetTraceID(ctx) == "" {
		t.Error("Expected a trace ID to be minted for a bare request")
	}
	if GetRunID(ctx) == "" {
		t.Error("Expected a run ID to be minted for a bare request")
	}
}
