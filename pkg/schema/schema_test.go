package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/amparo-saude/amparo/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wrappedSchema = `{
  "tools": [
    {
      "type": "function",
      "function": {
        "name": "consultar_slots",
        "description": "Consulta horários disponíveis",
        "parameters": {"type": "object", "properties": {}}
      }
    },
    {
      "type": "function",
      "function": {
        "name": "agendar_slot",
        "description": "Agenda um horário",
        "parameters": {
          "type": "object",
          "properties": {
            "slot_id": {"type": "string"},
            "patient_cpf": {"type": "string"}
          },
          "required": ["slot_id", "patient_cpf"]
        }
      }
    }
  ]
}`

const bareSchema = `[
  {
    "type": "function",
    "function": {
      "name": "scheduling_agent",
      "description": "Encaminha para o agente de agendamento",
      "parameters": {
        "type": "object",
        "properties": {"message": {"type": "string"}},
        "required": ["message"]
      }
    }
  }
]`

func writeSchema(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAgentTools(t *testing.T) {
	t.Run("loads a wrapped document", func(t *testing.T) {
		tools, err := LoadAgentTools(writeSchema(t, "tools.json", wrappedSchema))
		require.NoError(t, err)
		require.Len(t, tools, 2)
		assert.Equal(t, "consultar_slots", tools[0].Name)
		assert.Equal(t, "agendar_slot", tools[1].Name)
		assert.Equal(t, "object", tools[1].Parameters["type"])
	})

	t.Run("rejects a bare array", func(t *testing.T) {
		_, err := LoadAgentTools(writeSchema(t, "tools.json", bareSchema))
		assert.Error(t, err)
	})

	t.Run("rejects an entry without a name", func(t *testing.T) {
		content := `{"tools": [{"type": "function", "function": {"description": "sem nome"}}]}`
		_, err := LoadAgentTools(writeSchema(t, "tools.json", content))
		assert.Error(t, err)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		content := `{"tools": [
			{"type": "function", "function": {"name": "a"}},
			{"type": "function", "function": {"name": "a"}}
		]}`
		_, err := LoadAgentTools(writeSchema(t, "tools.json", content))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAgentTools(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})
}

func TestLoadHostTools(t *testing.T) {
	t.Run("loads a bare array", func(t *testing.T) {
		tools, err := LoadHostTools(writeSchema(t, "tools_definitions.json", bareSchema))
		require.NoError(t, err)
		require.Len(t, tools, 1)
		assert.Equal(t, "scheduling_agent", tools[0].Name)
	})

	t.Run("rejects a wrapped document", func(t *testing.T) {
		_, err := LoadHostTools(writeSchema(t, "tools_definitions.json", wrappedSchema))
		assert.Error(t, err)
	})

	t.Run("defaults missing parameters to an empty object schema", func(t *testing.T) {
		content := `[{"type": "function", "function": {"name": "ping"}}]`
		tools, err := LoadHostTools(writeSchema(t, "tools_definitions.json", content))
		require.NoError(t, err)
		require.Len(t, tools, 1)
		assert.Equal(t, "object", tools[0].Parameters["type"])
	})
}

func TestValidateArgs(t *testing.T) {
	tool := llm.Tool{
		Name: "agendar_slot",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"slot_id":     map[string]interface{}{"type": "string"},
				"patient_cpf": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"slot_id", "patient_cpf"},
		},
	}

	t.Run("accepts valid arguments", func(t *testing.T) {
		err := ValidateArgs(tool, map[string]interface{}{
			"slot_id":     "SLOT-001",
			"patient_cpf": "12345678900",
		})
		assert.NoError(t, err)
	})

	t.Run("rejects missing required arguments", func(t *testing.T) {
		err := ValidateArgs(tool, map[string]interface{}{"slot_id": "SLOT-001"})
		assert.Error(t, err)
	})

	t.Run("rejects wrong types", func(t *testing.T) {
		err := ValidateArgs(tool, map[string]interface{}{
			"slot_id":     "SLOT-001",
			"patient_cpf": 12345678900,
		})
		assert.Error(t, err)
	})

	t.Run("no declared parameters accepts anything", func(t *testing.T) {
		err := ValidateArgs(llm.Tool{Name: "livre"}, map[string]interface{}{"x": 1})
		assert.NoError(t, err)
	})
}

func TestCheckHandlers(t *testing.T) {
	tools := []llm.Tool{{Name: "consultar_slots"}, {Name: "agendar_slot"}}

	t.Run("all handlers present", func(t *testing.T) {
		err := CheckHandlers(tools, map[string]bool{"consultar_slots": true, "agendar_slot": true})
		assert.NoError(t, err)
	})

	t.Run("missing handler", func(t *testing.T) {
		err := CheckHandlers(tools, map[string]bool{"consultar_slots": true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "agendar_slot")
	})
}

func TestNames(t *testing.T) {
	names := Names([]llm.Tool{{Name: "a"}, {Name: "b"}})
	assert.True(t, names["a"])
	assert.True(t, names["b"])
	assert.False(t, names["c"])
}
