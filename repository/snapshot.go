package repository

import (
	"context"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
)

// SnapshotRepository stores the last known entity collection as a single blob that is
// overwritten wholesale on every save.
type SnapshotRepository interface {
	LoadSnapshot(ctx context.Context) ([]domain.Assignment, error)
	SaveSnapshot(ctx context.Context, entities []domain.Assignment) error
}

// SettingsRepository stores user setting overrides as a generic document.
type SettingsRepository interface {
	LoadSettings(ctx context.Context) (map[string]any, error)
	SaveSettings(ctx context.Context, overrides map[string]any) error
}

// Store is a cache backend serving both repositories.
type Store interface {
	SnapshotRepository
	SettingsRepository
	Close() error
}
