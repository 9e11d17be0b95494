// Package store persists directory snapshots between runs. The previous
// snapshot feeds the next build so canonical IDs stay stable across runs.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/recovery-atlas/directory-cli/internal/config"
	"github.com/recovery-atlas/directory-cli/internal/model"
)

// SnapshotInfo summarizes one stored run.
type SnapshotInfo struct {
	RunID       string    `json:"run_id"`
	BuiltAt     time.Time `json:"built_at"`
	RecordCount int       `json:"record_count"`
}

// Store defines the persistence interface for directory snapshots.
type Store interface {
	SaveSnapshot(ctx context.Context, dir *model.Directory) error
	GetSnapshot(ctx context.Context, runID string) (*model.Directory, error)
	// LatestSnapshot returns the most recent snapshot, or nil when none exist.
	LatestSnapshot(ctx context.Context) (*model.Directory, error)
	ListSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error)

	Migrate(ctx context.Context) error
	Close() error
}

// New opens a store for the configured driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
