package repository

import (
	"context"
	"fmt"
	"strings"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/internal/domain/repository"
)

// MultiSink writes to several sinks in order and stops at the first error
type MultiSink struct {
	sinks []repository.SnapshotSink
}

// NewMultiSink creates a sink that fans out to sinks
func NewMultiSink(sinks ...repository.SnapshotSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Name joins the names of the wrapped sinks
func (m *MultiSink) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}

// ReplaceSnapshot replaces the snapshot in every sink
func (m *MultiSink) ReplaceSnapshot(ctx context.Context, runID string, owners []entity.OwnerRecord, records []entity.ReconciledRecord) error {
	for _, s := range m.sinks {
		if err := s.ReplaceSnapshot(ctx, runID, owners, records); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return nil
}
