package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/amparo-saude/amparo/pkg/llm"
)

// toolEntry mirrors one function-calling schema entry on disk.
type toolEntry struct {
	Type     string `json:"type"`
	Function struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description"`
		Parameters  map[string]interface{} `json:"parameters"`
	} `json:"function"`
}

// wrappedDocument is the per-agent file shape: {"tools": [...]}.
type wrappedDocument struct {
	Tools []toolEntry `json:"tools"`
}

// LoadAgentTools loads a domain agent's tool schema file. Agent files wrap
// the entries in a top-level "tools" key.
func LoadAgentTools(path string) ([]llm.Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool schema: %w", err)
	}

	if err := validateDocument(data, true); err != nil {
		return nil, fmt.Errorf("invalid tool schema %s: %w", path, err)
	}

	var doc wrappedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse tool schema: %w", err)
	}

	return convert(doc.Tools)
}

// LoadHostTools loads the host's merged tool schema file. The host file is a
// bare array, not a wrapped object. Both shapes are kept for compatibility
// with existing deployments.
func LoadHostTools(path string) ([]llm.Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool schema: %w", err)
	}

	if err := validateDocument(data, false); err != nil {
		return nil, fmt.Errorf("invalid tool schema %s: %w", path, err)
	}

	var entries []toolEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse tool schema: %w", err)
	}

	return convert(entries)
}

func convert(entries []toolEntry) ([]llm.Tool, error) {
	tools := make([]llm.Tool, 0, len(entries))
	seen := make(map[string]bool)

	for i, entry := range entries {
		name := entry.Function.Name
		if name == "" {
			return nil, fmt.Errorf("tool entry %d has no function name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate tool name: %s", name)
		}
		seen[name] = true

		params := entry.Function.Parameters
		if params == nil {
			params = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		}

		tools = append(tools, llm.Tool{
			Name:        name,
			Description: entry.Function.Description,
			Parameters:  params,
		})
	}

	return tools, nil
}

// Names returns the set of tool names declared in a schema.
func Names(tools []llm.Tool) map[string]bool {
	names := make(map[string]bool, len(tools))
	for _, t := range tools {
		names[t.Name] = true
	}
	return names
}
