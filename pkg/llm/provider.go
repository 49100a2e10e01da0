package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the interface every language-model backend implements
type Provider interface {
	// Complete makes one completion call
	Complete(ctx context.Context, request Request) (*Response, error)

	// Name returns the provider name
	Name() string
}

// Credentials holds the backend configuration needed to build a provider.
type Credentials struct {
	Provider        string
	AzureEndpoint   string
	AzureAPIKey     string
	AzureDeployment string
	AnthropicAPIKey string
	AnthropicModel  string
}

// NewProvider creates a provider from credentials
func NewProvider(creds Credentials) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(creds.Provider)) {
	case "azure":
		return NewAzureProvider(creds.AzureEndpoint, creds.AzureAPIKey, creds.AzureDeployment), nil
	case "anthropic":
		return NewAnthropicProvider(creds.AnthropicAPIKey, creds.AnthropicModel), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", creds.Provider)
	}
}
