package schema

import (
	"fmt"
	"strings"

	"github.com/amparo-saude/amparo/pkg/llm"
	"github.com/xeipuuv/gojsonschema"
)

// entrySchema validates one function-calling entry.
var entrySchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"type", "function"},
	"properties": map[string]interface{}{
		"type": map[string]interface{}{"const": "function"},
		"function": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"name"},
			"properties": map[string]interface{}{
				"name":        map[string]interface{}{"type": "string", "minLength": 1},
				"description": map[string]interface{}{"type": "string"},
				"parameters":  map[string]interface{}{"type": "object"},
			},
		},
	},
}

// validateDocument checks a schema file against the meta-schema before any
// entry is handed to a model. Malformed files fail at load, not at call time.
func validateDocument(data []byte, wrapped bool) error {
	var meta map[string]interface{}
	if wrapped {
		meta = map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"tools"},
			"properties": map[string]interface{}{
				"tools": map[string]interface{}{
					"type":  "array",
					"items": entrySchema,
				},
			},
		}
	} else {
		meta = map[string]interface{}{
			"type":  "array",
			"items": entrySchema,
		}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(meta),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return err
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
	}

	return nil
}

// ValidateArgs checks a tool call's arguments against the tool's declared
// parameter schema.
func ValidateArgs(tool llm.Tool, args map[string]interface{}) error {
	if len(tool.Parameters) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(tool.Parameters),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return err
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("invalid arguments for %s: %s", tool.Name, strings.Join(msgs, "; "))
	}

	return nil
}

// CheckHandlers verifies that every declared tool has a registered handler.
// A mismatch is a configuration fault and must fail at startup.
func CheckHandlers(tools []llm.Tool, handlers map[string]bool) error {
	var missing []string
	for _, t := range tools {
		if !handlers[t.Name] {
			missing = append(missing, t.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("tools declared without handlers: %s", strings.Join(missing, ", "))
	}
	return nil
}
