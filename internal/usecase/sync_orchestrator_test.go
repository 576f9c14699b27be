package usecase

import (
	"context"
	"errors"
	"testing"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/pkg/logger"
	"access-reconcile-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type syncFixture struct {
	api     *MockLockAPI
	owners  *MockTableSource
	ledger  *MockTableSource
	sink    *MockSnapshotSink
	metrics *metrics.Metrics
}

func newSyncFixture() *syncFixture {
	return &syncFixture{
		api:     new(MockLockAPI),
		owners:  new(MockTableSource),
		ledger:  new(MockTableSource),
		sink:    new(MockSnapshotSink),
		metrics: metrics.NewMetrics("test", prometheus.NewRegistry()),
	}
}

func (f *syncFixture) orchestrator(opts SyncOptions) *SyncOrchestrator {
	log := logger.NewNopLogger()
	opts.OwnerColumns = testOwnerColumns
	opts.TransactionColumns = TransactionColumns{Description: "Description", Partner: "Partner's Name"}
	return NewSyncOrchestrator(
		f.api,
		NewFetcher(f.api, 50, log),
		newTestNormalizer(),
		f.owners,
		f.ledger,
		f.sink,
		nil,
		f.metrics,
		opts,
		log,
	)
}

func grants(items ...entity.RawGrant) *entity.Page {
	return &entity.Page{Number: 1, Items: items}
}

func (f *syncFixture) expectExtracts() {
	f.owners.On("Load", mock.Anything).Return(&entity.Table{
		Name:   "owners",
		Header: testOwnerColumns.header(),
		Rows: [][]string{
			{"Nino Beridze", "5", "100", "0"},
			{"Levan Gelashvili", "7", "80", "160"},
		},
	}, nil)
	f.ledger.On("Load", mock.Anything).Return(&entity.Table{
		Name:   "transactions",
		Header: []string{"Description", "Partner's Name"},
		Rows:   [][]string{{"apt 5 march", "Nino Beridze"}},
	}, nil)
}

func TestSyncOrchestrator_Run(t *testing.T) {
	f := newSyncFixture()
	f.api.On("ListLocks", mock.Anything, 50).Return([]entity.Lock{hallDoor, parking}, nil)
	f.api.On("FetchPage", mock.Anything, entity.ElectronicKeyGrant, int64(1), 1, 50).
		Return(grants(entity.RawGrant{KeyName: "5"}, entity.RawGrant{KeyName: "02 HL"}), nil)
	f.api.On("FetchPage", mock.Anything, entity.PhysicalCardGrant, int64(1), 1, 50).
		Return(grants(entity.RawGrant{CardName: "7", CardNumber: "123"}), nil)
	f.api.On("FetchPage", mock.Anything, entity.ElectronicKeyGrant, int64(2), 1, 50).
		Return(grants(entity.RawGrant{Username: "guest"}), nil)
	f.api.On("FetchPage", mock.Anything, entity.PhysicalCardGrant, int64(2), 1, 50).
		Return(grants(), nil)
	f.expectExtracts()

	var stored []entity.ReconciledRecord
	f.sink.On("ReplaceSnapshot", mock.Anything, mock.Anything, mock.MatchedBy(func(o []entity.OwnerRecord) bool {
		return len(o) == 2
	}), mock.Anything).
		Run(func(args mock.Arguments) {
			stored = args.Get(3).([]entity.ReconciledRecord)
		}).Return(nil).Once()

	o := f.orchestrator(SyncOptions{Concurrency: 3})
	report, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Locks)
	assert.Equal(t, 3, report.Fetched[entity.ElectronicKeyGrant])
	assert.Equal(t, 1, report.Fetched[entity.PhysicalCardGrant])
	assert.Empty(t, report.LockFailures)
	assert.Equal(t, 2, report.OwnersLoaded)
	assert.Equal(t, 1, report.PartnersMapped)
	assert.Equal(t, 4, report.Reconciled)
	assert.Equal(t, 2, report.OwnerMatched)
	assert.Equal(t, 2, report.OwnerUnmatched)
	assert.Equal(t, 1, report.PartnerMatched)
	assert.Equal(t, 1, report.LabelsUnmatched)
	assert.Equal(t, []string{"mock"}, report.Sinks)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	require.Len(t, stored, 4)
	assert.Equal(t, entity.ApartmentKey("5"), stored[0].Entry.ApartmentKey, "records follow lock then kind order")
	assert.Equal(t, entity.ApartmentKey("HL"), stored[1].Entry.ApartmentKey)
	assert.Equal(t, entity.ApartmentKey("7"), stored[2].Entry.ApartmentKey)
	assert.Equal(t, "guest", string(stored[3].Entry.Person))

	last := o.LastRun()
	require.NotNil(t, last)
	assert.Equal(t, report.RunID, last.Report.RunID)
	five := last.ByApartment("5")
	require.Len(t, five, 1)
	assert.Equal(t, "Nino Beridze", five[0].Owner.OwnerName)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SyncRuns.WithLabelValues("success")))
	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.ItemsFetched.WithLabelValues("ekey")))
	f.sink.AssertExpectations(t)
}

func TestSyncOrchestrator_Run_LockFailureIsIsolated(t *testing.T) {
	f := newSyncFixture()
	f.api.On("ListLocks", mock.Anything, 50).Return([]entity.Lock{hallDoor, parking, terrace}, nil)
	f.api.On("FetchPage", mock.Anything, mock.Anything, int64(1), 1, 50).Return(grants(entity.RawGrant{KeyName: "5", CardName: "5"}), nil)
	f.api.On("FetchPage", mock.Anything, entity.ElectronicKeyGrant, int64(2), 1, 50).
		Return(nil, &entity.ProviderError{Code: -3, Message: "lock offline"})
	f.api.On("FetchPage", mock.Anything, entity.PhysicalCardGrant, int64(2), 1, 50).Return(grants(), nil)
	f.api.On("FetchPage", mock.Anything, mock.Anything, int64(3), 1, 50).Return(grants(entity.RawGrant{KeyName: "7", CardName: "7"}), nil)
	f.expectExtracts()
	f.sink.On("ReplaceSnapshot", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	o := f.orchestrator(SyncOptions{Concurrency: 4})
	report, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.LockFailures, 1)
	assert.Equal(t, int64(2), report.LockFailures[0].LockID)
	assert.Equal(t, entity.ElectronicKeyGrant, report.LockFailures[0].Kind)
	assert.Equal(t, 4, report.Reconciled, "grants of healthy locks are all reconciled")
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SyncRuns.WithLabelValues("partial")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.PageFailures.WithLabelValues("ekey", "provider")))
}

func TestSyncOrchestrator_Run_SourceShapeIsFatal(t *testing.T) {
	f := newSyncFixture()
	f.api.On("ListLocks", mock.Anything, 50).Return([]entity.Lock{hallDoor}, nil)
	f.api.On("FetchPage", mock.Anything, mock.Anything, int64(1), 1, 50).Return(grants(), nil)
	f.owners.On("Load", mock.Anything).Return(&entity.Table{Header: []string{"unit"}}, nil)

	o := f.orchestrator(SyncOptions{})
	_, err := o.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrSourceShape))

	assert.Nil(t, o.LastRun())
	f.sink.AssertNotCalled(t, "ReplaceSnapshot", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SyncRuns.WithLabelValues("failed")))
}

func TestSyncOrchestrator_Run_SinkFailureFailsRun(t *testing.T) {
	f := newSyncFixture()
	f.api.On("ListLocks", mock.Anything, 50).Return([]entity.Lock{hallDoor}, nil)
	f.api.On("FetchPage", mock.Anything, mock.Anything, int64(1), 1, 50).Return(grants(), nil)
	f.expectExtracts()
	f.sink.On("ReplaceSnapshot", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	o := f.orchestrator(SyncOptions{})
	_, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, o.LastRun())
}

func TestSyncOrchestrator_Run_RejectsConcurrentRun(t *testing.T) {
	f := newSyncFixture()
	o := f.orchestrator(SyncOptions{})
	o.running.Store(true)

	_, err := o.Run(context.Background())
	assert.ErrorIs(t, err, entity.ErrRunInProgress)
	f.api.AssertNotCalled(t, "ListLocks", mock.Anything, mock.Anything)
}

func TestSyncOrchestrator_ResolveLocks(t *testing.T) {
	t.Run("configured ids select and order discovered locks", func(t *testing.T) {
		f := newSyncFixture()
		f.api.On("ListLocks", mock.Anything, 50).Return([]entity.Lock{hallDoor, parking, terrace}, nil)
		o := f.orchestrator(SyncOptions{LockIDs: []int64{3, 1, 99}})

		locks, err := o.ResolveLocks(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []entity.Lock{terrace, hallDoor, {ID: 99, Name: "Lock 99"}}, locks)
	})

	t.Run("discovery failure with configured ids", func(t *testing.T) {
		f := newSyncFixture()
		f.api.On("ListLocks", mock.Anything, 50).Return(nil, errors.New("timeout"))
		o := f.orchestrator(SyncOptions{LockIDs: []int64{1}})

		locks, err := o.ResolveLocks(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []entity.Lock{{ID: 1, Name: "Lock 1"}}, locks)
	})

	t.Run("discovery failure without configured ids", func(t *testing.T) {
		f := newSyncFixture()
		f.api.On("ListLocks", mock.Anything, 50).Return(nil, errors.New("timeout"))
		o := f.orchestrator(SyncOptions{})

		_, err := o.ResolveLocks(context.Background())
		assert.Error(t, err)
	})
}
