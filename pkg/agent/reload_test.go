package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptReloader(t *testing.T) {
	promptPath := filepath.Join(t.TempDir(), "scheduling.txt")
	require.NoError(t, os.WriteFile(promptPath, []byte("Prompt inicial."), 0644))

	a := newTestAgent(t, &fakeProvider{}, ReplyRelay, allHandlers(map[string]interface{}{
		"consultar_slots": nil, "agendar_slot": nil,
	}))
	a.SetSystemPrompt("Prompt inicial.")

	reloader, err := NewPromptReloader(a, promptPath, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, reloader.Start())
	defer reloader.Stop()

	require.NoError(t, os.WriteFile(promptPath, []byte("Prompt atualizado.\n"), 0644))

	require.Eventually(t, func() bool {
		return a.currentPrompt() == "Prompt atualizado."
	}, 3*time.Second, 50*time.Millisecond)
}

func TestPromptReloaderIgnoresEmptyFile(t *testing.T) {
	promptPath := filepath.Join(t.TempDir(), "scheduling.txt")
	require.NoError(t, os.WriteFile(promptPath, []byte("Prompt inicial."), 0644))

	a := newTestAgent(t, &fakeProvider{}, ReplyRelay, allHandlers(map[string]interface{}{
		"consultar_slots": nil, "agendar_slot": nil,
	}))
	a.SetSystemPrompt("Prompt inicial.")

	reloader, err := NewPromptReloader(a, promptPath, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, reloader.Start())
	defer reloader.Stop()

	require.NoError(t, os.WriteFile(promptPath, []byte("   \n"), 0644))

	time.Sleep(time.Second)
	assert.Equal(t, "Prompt inicial.", a.currentPrompt())
}

func TestPromptReloaderValidation(t *testing.T) {
	t.Run("requires an agent", func(t *testing.T) {
		_, err := NewPromptReloader(nil, "prompt.txt", zerolog.Nop())
		assert.Error(t, err)
	})

	t.Run("requires a path", func(t *testing.T) {
		a := newTestAgent(t, &fakeProvider{}, ReplyRelay, allHandlers(map[string]interface{}{
			"consultar_slots": nil, "agendar_slot": nil,
		}))
		_, err := NewPromptReloader(a, "", zerolog.Nop())
		assert.Error(t, err)
	})
}
