package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamResultHandler(t *testing.T) {
	handler := examResultHandler()

	t.Run("lists all exams for a patient", func(t *testing.T) {
		result, err := handler(context.Background(), map[string]interface{}{"patientId": "12345"})
		require.NoError(t, err)

		payload := result.(map[string]interface{})
		assert.Equal(t, true, payload["success"])
		assert.Equal(t, "Encontrados 2 exame(s)", payload["message"])

		data := payload["data"].(map[string]interface{})
		exams := data["exams"].([]map[string]interface{})
		require.Len(t, exams, 2)
		assert.Equal(t, "HEM-001", exams[0]["examId"])
		assert.Equal(t, "RX-002", exams[1]["examId"])
	})

	t.Run("returns one exam by ID", func(t *testing.T) {
		result, err := handler(context.Background(), map[string]interface{}{
			"patientId": "12345",
			"examId":    "HEM-001",
		})
		require.NoError(t, err)

		payload := result.(map[string]interface{})
		assert.Equal(t, true, payload["success"])
		assert.Equal(t, "Exame HEM-001 encontrado", payload["message"])

		data := payload["data"].(map[string]interface{})
		assert.Equal(t, "hemograma-completo", data["examType"])
		assert.Equal(t, "Hemoglobina: 14.5 g/dL, Leucócitos: 7200/μL", data["result"])
	})

	t.Run("unknown patient", func(t *testing.T) {
		result, err := handler(context.Background(), map[string]interface{}{"patientId": "00000"})
		require.NoError(t, err)

		payload := result.(map[string]interface{})
		assert.Equal(t, false, payload["success"])
		assert.Equal(t, "Nenhum exame encontrado para paciente 00000", payload["message"])
	})

	t.Run("unknown exam", func(t *testing.T) {
		result, err := handler(context.Background(), map[string]interface{}{
			"patientId": "12345",
			"examId":    "XX-999",
		})
		require.NoError(t, err)

		payload := result.(map[string]interface{})
		assert.Equal(t, false, payload["success"])
		assert.Equal(t, "Exame XX-999 não encontrado", payload["message"])
	})

	t.Run("missing patientId", func(t *testing.T) {
		_, err := handler(context.Background(), map[string]interface{}{})
		assert.Error(t, err)
	})
}
