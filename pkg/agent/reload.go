package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// PromptReloader watches an agent's system prompt file and reloads it in
// place on change, so prompt edits take effect without a gateway restart.
type PromptReloader struct {
	agent      *Agent
	promptPath string
	watcher    *fsnotify.Watcher
	debounce   time.Duration
	timers     map[string]*time.Timer
	timersMu   sync.Mutex
	done       chan struct{}
	stopOnce   sync.Once
	logger     zerolog.Logger
}

// NewPromptReloader creates a reloader for the given prompt file
func NewPromptReloader(a *Agent, promptPath string, logger zerolog.Logger) (*PromptReloader, error) {
	if a == nil {
		return nil, fmt.Errorf("agent is required")
	}
	if promptPath == "" {
		return nil, fmt.Errorf("prompt path is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &PromptReloader{
		agent:      a,
		promptPath: promptPath,
		watcher:    watcher,
		debounce:   300 * time.Millisecond,
		timers:     make(map[string]*time.Timer),
		done:       make(chan struct{}),
		logger:     logger,
	}, nil
}

// Start begins watching the prompt file's directory. Editors that replace
// the file via rename would otherwise drop a watch on the file itself.
func (r *PromptReloader) Start() error {
	dir := filepath.Dir(r.promptPath)
	if err := r.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go r.loop()

	r.logger.Info().Str("path", r.promptPath).Msg("Prompt reloader started")
	return nil
}

// Stop halts the watcher
func (r *PromptReloader) Stop() error {
	var err error
	r.stopOnce.Do(func() {
		close(r.done)
		err = r.watcher.Close()
	})
	return err
}

func (r *PromptReloader) loop() {
	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(r.promptPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			r.scheduleReload(event.Name)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn().Err(err).Msg("Prompt watcher error")
		}
	}
}

// scheduleReload debounces bursts of write events into one reload.
func (r *PromptReloader) scheduleReload(path string) {
	r.timersMu.Lock()
	defer r.timersMu.Unlock()

	if timer, exists := r.timers[path]; exists {
		timer.Stop()
	}

	r.timers[path] = time.AfterFunc(r.debounce, func() {
		r.reload()

		r.timersMu.Lock()
		delete(r.timers, path)
		r.timersMu.Unlock()
	})
}

func (r *PromptReloader) reload() {
	data, err := os.ReadFile(r.promptPath)
	if err != nil {
		r.logger.Error().Err(err).Str("path", r.promptPath).Msg("Failed to reload prompt")
		return
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		r.logger.Warn().Str("path", r.promptPath).Msg("Ignoring empty prompt file")
		return
	}

	r.agent.SetSystemPrompt(prompt)
	r.logger.Info().Str("path", r.promptPath).Msg("System prompt reloaded")
}
