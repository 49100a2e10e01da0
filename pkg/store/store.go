package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Default document file names inside the data directory.
const (
	AppointmentsFile = "appointments.json"
	PaymentsFile     = "payments.json"
)

// Result is the structured outcome of a store operation. Logical misses
// (unknown slot, no payment for a document) are results, not errors; only
// I/O faults surface as Go errors.
type Result struct {
	Success bool                   `json:"success"`
	Found   *bool                  `json:"found,omitempty"`
	Message string                 `json:"message,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Store provides read-modify-write access to the two shared JSON documents.
// Each document is guarded by its own mutex and replaced atomically, so two
// concurrent mutations of the same document serialize instead of losing one
// writer's update.
type Store struct {
	appointmentsPath string
	paymentsPath     string
	apptMu           sync.Mutex
	payMu            sync.Mutex
	logger           zerolog.Logger
}

// Config holds store configuration
type Config struct {
	DataDir string
	Logger  zerolog.Logger
}

// New creates a store over an existing data directory
func New(cfg Config) (*Store, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}

	info, err := os.Stat(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data dir is not a directory: %s", cfg.DataDir)
	}

	return &Store{
		appointmentsPath: filepath.Join(cfg.DataDir, AppointmentsFile),
		paymentsPath:     filepath.Join(cfg.DataDir, PaymentsFile),
		logger:           cfg.Logger,
	}, nil
}

// AppointmentsPath returns the slot document path
func (s *Store) AppointmentsPath() string {
	return s.appointmentsPath
}

// PaymentsPath returns the payment document path
func (s *Store) PaymentsPath() string {
	return s.paymentsPath
}

func loadDocument(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// saveDocument rewrites the whole document through a temp file and rename.
// The rename keeps a concurrent reader from observing a half-written file;
// durability beyond the rename is not guaranteed.
func saveDocument(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func boolPtr(b bool) *bool {
	return &b
}
