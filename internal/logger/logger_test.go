package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("create logger with console output", func(t *testing.T) {
		cfg := Config{
			Level:   "info",
			Console: true,
			Pretty:  false,
		}

		log, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, log)

		log.Close()
	})

	t.Run("create logger with file output", func(t *testing.T) {
		tmpDir := t.TempDir()
		logFile := filepath.Join(tmpDir, "test.log")

		cfg := Config{
			Level:   "debug",
			File:    logFile,
			Console: false,
		}

		log, err := New(cfg)
		require.NoError(t, err)

		zl := log.GetZerolog()
		zl.Info().Msg("test message")
		log.Close()

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "test message")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		cfg := Config{
			Level:   "loud",
			Console: true,
		}

		log, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, log)

		log.Close()
	})

	t.Run("creates the log directory", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "amparo.log")

		cfg := Config{
			Level: "info",
			File:  logFile,
		}

		log, err := New(cfg)
		require.NoError(t, err)
		log.Close()

		_, err = os.Stat(filepath.Dir(logFile))
		assert.NoError(t, err)
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.Empty(t, cfg.File)
}
