package repository

import (
	"context"

	"access-reconcile-service/internal/domain/entity"
)

// SnapshotSink defines the interface for destinations of a sync run.
// ReplaceSnapshot overwrites the owner table and the access table together.
type SnapshotSink interface {
	Name() string
	ReplaceSnapshot(ctx context.Context, runID string, owners []entity.OwnerRecord, records []entity.ReconciledRecord) error
}

// RegistryWriter defines the interface for exporting the grouped registry
type RegistryWriter interface {
	WriteRegistry(ctx context.Context, runID string, registry *entity.Registry) error
}
