package repository

import (
	"context"

	"access-reconcile-service/internal/domain/entity"
)

// LockAPI defines the interface for the lock-management provider
type LockAPI interface {
	// FetchPage fetches one 1-based page of grants of the given kind for a lock
	FetchPage(ctx context.Context, kind entity.GrantKind, lockID int64, pageNo, pageSize int) (*entity.Page, error)
	// ListLocks returns every lock visible to the account
	ListLocks(ctx context.Context, pageSize int) ([]entity.Lock, error)
}
