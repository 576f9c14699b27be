package repository

import (
	"context"

	"access-reconcile-service/internal/domain/entity"
)

// TableSource defines the interface for tabular extracts (owner register,
// transaction history)
type TableSource interface {
	Load(ctx context.Context) (*entity.Table, error)
}
