package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Backup copies both store documents to a backup directory on a cron
// schedule. The store has no durability guarantee beyond file replace, so
// periodic snapshots are the recovery path for a corrupted document.
type Backup struct {
	store  *Store
	dir    string
	cron   *cron.Cron
	logger zerolog.Logger
}

// BackupConfig holds backup configuration
type BackupConfig struct {
	Store    *Store
	Dir      string
	Schedule string // standard cron expression
	Logger   zerolog.Logger
}

// NewBackup creates a backup scheduler
func NewBackup(cfg BackupConfig) (*Backup, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("backup dir is required")
	}
	if cfg.Schedule == "" {
		return nil, fmt.Errorf("backup schedule is required")
	}

	b := &Backup{
		store:  cfg.Store,
		dir:    cfg.Dir,
		cron:   cron.New(),
		logger: cfg.Logger,
	}

	if _, err := b.cron.AddFunc(cfg.Schedule, b.run); err != nil {
		return nil, fmt.Errorf("invalid backup schedule: %w", err)
	}

	return b, nil
}

// Start begins the schedule
func (b *Backup) Start() {
	b.cron.Start()
	b.logger.Info().Str("dir", b.dir).Msg("Store backup scheduler started")
}

// Stop halts the schedule, waiting for a running snapshot to finish
func (b *Backup) Stop() {
	ctx := b.cron.Stop()
	<-ctx.Done()
}

// Snapshot copies both documents immediately
func (b *Backup) Snapshot() error {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}

	stamp := time.Now().Format("20060102-150405")
	for _, src := range []string{b.store.AppointmentsPath(), b.store.PaymentsPath()} {
		dst := filepath.Join(b.dir, fmt.Sprintf("%s.%s", stamp, filepath.Base(src)))
		if err := copyFile(src, dst); err != nil {
			return err
		}
	}

	return nil
}

func (b *Backup) run() {
	if err := b.Snapshot(); err != nil {
		b.logger.Error().Err(err).Msg("Store backup failed")
		return
	}
	b.logger.Debug().Msg("Store backup completed")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return nil
}
