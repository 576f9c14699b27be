package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/internal/domain/repository"
	"access-reconcile-service/pkg/logger"
	"access-reconcile-service/pkg/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SyncOptions tunes a sync run
type SyncOptions struct {
	// LockIDs restricts the run to these locks, in this order. Empty means
	// every lock the account can see.
	LockIDs            []int64
	Concurrency        int
	OwnerColumns       OwnerColumns
	TransactionColumns TransactionColumns
}

// RunSnapshot is the in-memory result of the last successful run
type RunSnapshot struct {
	Report   *entity.RunReport
	Registry *entity.Registry
	Owners   []entity.OwnerRecord
	Records  []entity.ReconciledRecord
}

// ByApartment returns the reconciled records of one apartment
func (s *RunSnapshot) ByApartment(key entity.ApartmentKey) []entity.ReconciledRecord {
	var out []entity.ReconciledRecord
	for _, r := range s.Records {
		if r.Entry.ApartmentKey == key {
			out = append(out, r)
		}
	}
	return out
}

// SyncOrchestrator runs the whole pipeline: fetch, group, load extracts,
// reconcile and publish
type SyncOrchestrator struct {
	api        repository.LockAPI
	fetcher    *Fetcher
	normalizer *Normalizer
	owners     repository.TableSource
	ledger     repository.TableSource
	sink       repository.SnapshotSink
	exporter   repository.RegistryWriter
	metrics    *metrics.Metrics
	opts       SyncOptions
	logger     logger.Logger

	now     func() time.Time
	running atomic.Bool

	mu   sync.RWMutex
	last *RunSnapshot
}

// NewSyncOrchestrator creates a new sync orchestrator. ledger, sink and
// exporter may be nil.
func NewSyncOrchestrator(
	api repository.LockAPI,
	fetcher *Fetcher,
	normalizer *Normalizer,
	owners repository.TableSource,
	ledger repository.TableSource,
	sink repository.SnapshotSink,
	exporter repository.RegistryWriter,
	metrics *metrics.Metrics,
	opts SyncOptions,
	logger logger.Logger,
) *SyncOrchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &SyncOrchestrator{
		api:        api,
		fetcher:    fetcher,
		normalizer: normalizer,
		owners:     owners,
		ledger:     ledger,
		sink:       sink,
		exporter:   exporter,
		metrics:    metrics,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Running reports whether a run is in progress
func (o *SyncOrchestrator) Running() bool {
	return o.running.Load()
}

// LastRun returns the snapshot of the last successful run, or nil
func (o *SyncOrchestrator) LastRun() *RunSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last
}

// Run performs one sync. Only one run may be in progress; a concurrent call
// returns entity.ErrRunInProgress. Per-lock fetch failures are reported, not
// returned; extract shape errors and sink failures fail the run.
func (o *SyncOrchestrator) Run(ctx context.Context) (*entity.RunReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, entity.ErrRunInProgress
	}
	defer o.running.Store(false)

	report := &entity.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: o.now(),
		Fetched:   make(map[entity.GrantKind]int),
	}
	log := o.logger.With("runId", report.RunID)
	log.Info("Starting sync run")

	snap, err := o.run(ctx, report, log)
	report.FinishedAt = o.now()
	o.metrics.SyncDuration.Observe(report.Duration().Seconds())

	if err != nil {
		o.metrics.SyncRuns.WithLabelValues("failed").Inc()
		o.metrics.ErrorsCount.WithLabelValues("sync").Inc()
		log.Error("Sync run failed", "error", err, "duration", report.Duration())
		return report, err
	}

	outcome := "success"
	if len(report.LockFailures) > 0 {
		outcome = "partial"
	}
	o.metrics.SyncRuns.WithLabelValues(outcome).Inc()

	o.mu.Lock()
	o.last = snap
	o.mu.Unlock()

	log.Info("Sync run completed",
		"outcome", outcome,
		"locks", report.Locks,
		"fetched", report.TotalFetched(),
		"lockFailures", len(report.LockFailures),
		"reconciled", report.Reconciled,
		"ownerMatched", report.OwnerMatched,
		"collisions", len(report.Collisions),
		"duration", report.Duration())

	return report, nil
}

func (o *SyncOrchestrator) run(ctx context.Context, report *entity.RunReport, log logger.Logger) (*RunSnapshot, error) {
	locks, err := o.ResolveLocks(ctx)
	if err != nil {
		return nil, err
	}
	report.Locks = len(locks)

	results := o.fetchStreams(ctx, locks)
	for _, res := range results {
		report.Fetched[res.Stream.Kind] += len(res.Items)
		o.metrics.ItemsFetched.WithLabelValues(string(res.Stream.Kind)).Add(float64(len(res.Items)))
		if res.Failure != nil {
			o.metrics.PageFailures.WithLabelValues(string(res.Stream.Kind), res.Failure.Reason()).Inc()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sync canceled while fetching: %w", err)
	}

	registry := BuildRegistry(results, o.normalizer)
	report.LockFailures = registry.Failures
	report.Diagnostics = append(report.Diagnostics, registry.Diagnostics...)
	for _, e := range registry.Entries {
		switch e.ApartmentKey {
		case entity.UnknownApartment:
			report.LabelsUnknown++
		case entity.UnmatchedApartment:
			report.LabelsUnmatched++
		}
	}
	log.Info("Built access registry",
		"keyHolders", registry.Keys.Len(),
		"cardHolders", registry.Cards.Len(),
		"entries", len(registry.Entries))

	ownersTable, err := o.owners.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner register: %w", err)
	}
	loaded, err := LoadOwners(ownersTable, o.opts.OwnerColumns, o.normalizer)
	if err != nil {
		return nil, fmt.Errorf("failed to read owner register: %w", err)
	}
	report.OwnersLoaded = len(loaded.Owners)
	report.OwnersDropped = loaded.Dropped
	report.Diagnostics = append(report.Diagnostics, loaded.Diagnostics...)

	partners := entity.PaymentPartnerMap{}
	if o.ledger != nil {
		ledgerTable, err := o.ledger.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions: %w", err)
		}
		if partners, err = BuildPartnerMap(ledgerTable, o.opts.TransactionColumns); err != nil {
			return nil, fmt.Errorf("failed to read transactions: %w", err)
		}
	}
	report.PartnersMapped = len(partners)

	AttachPartners(loaded.Owners, partners)
	reconciled := Reconcile(registry.Entries, loaded.Owners, partners)
	report.Reconciled = reconciled.Stats.Total
	report.OwnerMatched = reconciled.Stats.OwnerMatched
	report.OwnerUnmatched = reconciled.Stats.OwnerUnmatched
	report.PartnerMatched = reconciled.Stats.PartnerMatched
	report.Collisions = reconciled.Collisions
	for _, c := range reconciled.Collisions {
		log.Warn("Apartment key claimed by several owners",
			"apartmentKey", c.ApartmentKey,
			"owners", c.Owners,
			"rows", c.Rows)
		report.Diagnostics = append(report.Diagnostics, entity.Diagnostic{
			Stage:  entity.StageReconcile,
			Label:  string(c.ApartmentKey),
			Reason: fmt.Sprintf("%d owner rows share this apartment key", len(c.Owners)),
		})
	}

	if o.sink != nil {
		if err := o.sink.ReplaceSnapshot(ctx, report.RunID, loaded.Owners, reconciled.Records); err != nil {
			return nil, fmt.Errorf("failed to store snapshot in %s: %w", o.sink.Name(), err)
		}
		report.Sinks = append(report.Sinks, o.sink.Name())
	}

	if o.exporter != nil {
		if err := o.exporter.WriteRegistry(ctx, report.RunID, registry); err != nil {
			return nil, fmt.Errorf("failed to export registry: %w", err)
		}
	}

	o.metrics.ReconciledRecords.WithLabelValues("matched").Add(float64(reconciled.Stats.OwnerMatched))
	o.metrics.ReconciledRecords.WithLabelValues("unmatched").Add(float64(reconciled.Stats.OwnerUnmatched))
	o.metrics.OwnerCollisions.Set(float64(len(reconciled.Collisions)))
	o.metrics.UnmatchedLabels.Set(float64(report.LabelsUnmatched))

	return &RunSnapshot{
		Report:   report,
		Registry: registry,
		Owners:   loaded.Owners,
		Records:  reconciled.Records,
	}, nil
}

// ResolveLocks returns the locks to sync. Discovery names the locks; when
// lock ids are configured they select and order the result, and a failed
// discovery only costs the names.
func (o *SyncOrchestrator) ResolveLocks(ctx context.Context) ([]entity.Lock, error) {
	discovered, err := o.api.ListLocks(ctx, o.fetcher.PageSize())
	if err != nil {
		if len(o.opts.LockIDs) == 0 {
			return nil, fmt.Errorf("failed to discover locks: %w", err)
		}
		o.logger.Warn("Lock discovery failed, using configured lock ids", "error", err)
	}
	if len(o.opts.LockIDs) == 0 {
		return discovered, nil
	}

	names := make(map[int64]string, len(discovered))
	for _, l := range discovered {
		names[l.ID] = l.Name
	}
	locks := make([]entity.Lock, 0, len(o.opts.LockIDs))
	for _, id := range o.opts.LockIDs {
		name, ok := names[id]
		if !ok {
			name = fmt.Sprintf("Lock %d", id)
		}
		locks = append(locks, entity.Lock{ID: id, Name: name})
	}
	return locks, nil
}

// fetchStreams pulls every (lock, kind) stream with bounded concurrency.
// Each stream owns one result slot, so the output order is (lock order,
// kind order) however the fetches interleave.
func (o *SyncOrchestrator) fetchStreams(ctx context.Context, locks []entity.Lock) []StreamResult {
	streams := make([]entity.Stream, 0, len(locks)*len(entity.GrantKinds))
	for _, lock := range locks {
		for _, kind := range entity.GrantKinds {
			streams = append(streams, entity.Stream{Lock: lock, Kind: kind})
		}
	}

	results := make([]StreamResult, len(streams))
	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, stream := range streams {
		g.Go(func() error {
			results[i] = o.fetcher.Collect(ctx, stream)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
