package usecase

import (
	"context"

	"access-reconcile-service/internal/domain/entity"

	"github.com/stretchr/testify/mock"
)

// --- Mock LockAPI ---
type MockLockAPI struct {
	mock.Mock
}

func (m *MockLockAPI) FetchPage(ctx context.Context, kind entity.GrantKind, lockID int64, pageNo, pageSize int) (*entity.Page, error) {
	args := m.Called(ctx, kind, lockID, pageNo, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Page), args.Error(1)
}

func (m *MockLockAPI) ListLocks(ctx context.Context, pageSize int) ([]entity.Lock, error) {
	args := m.Called(ctx, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Lock), args.Error(1)
}

// --- Mock TableSource ---
type MockTableSource struct {
	mock.Mock
}

func (m *MockTableSource) Load(ctx context.Context) (*entity.Table, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Table), args.Error(1)
}

// --- Mock SnapshotSink ---
type MockSnapshotSink struct {
	mock.Mock
}

func (m *MockSnapshotSink) Name() string {
	return "mock"
}

func (m *MockSnapshotSink) ReplaceSnapshot(ctx context.Context, runID string, owners []entity.OwnerRecord, records []entity.ReconciledRecord) error {
	args := m.Called(ctx, runID, owners, records)
	return args.Error(0)
}

// keyPage builds a page of n electronic keys named prefix-i
func keyPage(pageNo, n int, prefix string) *entity.Page {
	items := make([]entity.RawGrant, n)
	for i := range items {
		items[i] = entity.RawGrant{
			KeyName:  prefix,
			Username: prefix,
			KeyID:    int64(pageNo*1000 + i),
		}
	}
	return &entity.Page{Number: pageNo, Items: items}
}
