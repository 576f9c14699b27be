package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/internal/domain/repository"
	"access-reconcile-service/pkg/logger"
)

// RegistryFileWriter exports the grouped registry as a JSON file of the form
// {"ekeys": {holder: [grant...]}, "cards": {...}}
type RegistryFileWriter struct {
	path   string
	logger logger.Logger
}

// NewRegistryFileWriter creates a new registry file writer
func NewRegistryFileWriter(path string, logger logger.Logger) repository.RegistryWriter {
	return &RegistryFileWriter{
		path:   path,
		logger: logger,
	}
}

// WriteRegistry replaces the file atomically
func (w *RegistryFileWriter) WriteRegistry(ctx context.Context, runID string, registry *entity.Registry) error {
	data, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.path), filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create registry file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("failed to replace registry file: %w", err)
	}

	w.logger.Info("Exported registry",
		"runId", runID,
		"path", w.path,
		"keyHolders", registry.Keys.Len(),
		"cardHolders", registry.Cards.Len())

	return nil
}
