package main

import (
	"context"
	"fmt"

	"access-reconcile-service/internal/domain/repository"
	"access-reconcile-service/internal/infrastructure/config"
	"access-reconcile-service/internal/infrastructure/oauth"
	"access-reconcile-service/internal/infrastructure/persistence"
	"access-reconcile-service/internal/interface/extract"
	sinkRepo "access-reconcile-service/internal/interface/repository"
	"access-reconcile-service/internal/interface/ttlock"
	"access-reconcile-service/internal/usecase"
	"access-reconcile-service/pkg/logger"
	"access-reconcile-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// app holds the wired components of one process
type app struct {
	cfg          *config.Config
	client       *ttlock.Client
	normalizer   *usecase.Normalizer
	orchestrator *usecase.SyncOrchestrator
	closers      []func(context.Context) error
}

// Close releases database connections
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
}

func newLockClient(cfg *config.Config, log logger.Logger) *ttlock.Client {
	tokens := oauth.NewTTLockTokenSource(cfg.TTLock.AccessToken)
	return ttlock.NewClient(cfg.TTLock, tokens, log)
}

func newNormalizer(cfg *config.Config, log logger.Logger) (*usecase.Normalizer, error) {
	rules := usecase.DefaultUnitRules()
	if cfg.UnitRulesFile != "" {
		loaded, err := usecase.LoadUnitRules(cfg.UnitRulesFile)
		if err != nil {
			return nil, err
		}
		rules = loaded
		log.Info("Loaded unit rules", "path", cfg.UnitRulesFile, "keywords", len(rules.Keywords))
	}
	return usecase.NewNormalizer(rules, log), nil
}

// buildApp wires the full sync pipeline from configuration
func buildApp(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg}

	normalizer, err := newNormalizer(cfg, log)
	if err != nil {
		return nil, err
	}
	a.normalizer = normalizer
	a.client = newLockClient(cfg, log)

	owners, err := newOwnerSource(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var ledger repository.TableSource
	if cfg.Ledger.Path != "" {
		ledger = extract.NewCSVSource("transactions", cfg.Ledger.Path, cfg.Ledger.SkipRows, log)
	} else {
		log.Warn("No transaction history configured, payment partners will be empty")
	}

	sink, err := a.openSinks(ctx, log)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	var exporter repository.RegistryWriter
	if cfg.SnapshotFile != "" {
		exporter = sinkRepo.NewRegistryFileWriter(cfg.SnapshotFile, log)
	}

	a.orchestrator = usecase.NewSyncOrchestrator(
		a.client,
		usecase.NewFetcher(a.client, cfg.TTLock.PageSize, log),
		normalizer,
		owners,
		ledger,
		sink,
		exporter,
		metrics.NewMetrics("access_reconcile", reg),
		usecase.SyncOptions{
			LockIDs:     cfg.TTLock.LockIDs,
			Concurrency: cfg.TTLock.FetchConcurrency,
			OwnerColumns: usecase.OwnerColumns{
				Owner: cfg.Owners.OwnerColumn,
				Unit:  cfg.Owners.UnitColumn,
				Fee:   cfg.Owners.FeeColumn,
				Debt:  cfg.Owners.DebtColumn,
			},
			TransactionColumns: usecase.TransactionColumns{
				Description: cfg.Ledger.DescriptionColumn,
				Partner:     cfg.Ledger.PartnerColumn,
			},
		},
		log,
	)

	return a, nil
}

func newOwnerSource(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.TableSource, error) {
	if !cfg.UsesSheets() {
		return extract.NewCSVSource("owners", cfg.Owners.Path, cfg.Owners.SkipRows, log), nil
	}

	googleOAuth := oauth.NewGoogleOAuth(
		cfg.Sheets.ClientID,
		cfg.Sheets.ClientSecret,
		cfg.Sheets.RefreshToken,
		log,
	)
	source, err := extract.NewSheetsSource(
		ctx,
		"owners",
		cfg.Sheets.SpreadsheetID,
		cfg.Sheets.OwnerRange,
		cfg.Owners.SkipRows,
		googleOAuth.GetTokenSource(ctx),
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up Google Sheets source: %w", err)
	}
	return source, nil
}

// openSinks connects every configured sink. No sinks yields nil.
func (a *app) openSinks(ctx context.Context, log logger.Logger) (repository.SnapshotSink, error) {
	var sinks []repository.SnapshotSink
	for _, name := range a.cfg.Storage.Sinks {
		switch name {
		case "postgres":
			log.Info("Connecting to PostgreSQL")
			db, err := persistence.NewPostgresDB(a.cfg.Storage.PostgresURI)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, func(context.Context) error {
				return persistence.ClosePostgresDB(db)
			})
			sinks = append(sinks, sinkRepo.NewGormSnapshotSink(db, name))

		case "mongo":
			log.Info("Connecting to MongoDB")
			client, err := persistence.NewMongoClient(ctx, a.cfg.Storage.MongoURI, a.cfg.Storage.MongoUser, a.cfg.Storage.MongoPass)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
			}
			a.closers = append(a.closers, client.Disconnect)
			sinks = append(sinks, sinkRepo.NewMongoSnapshotSink(persistence.GetDatabase(client, a.cfg.Storage.MongoDB)))

		default:
			return nil, fmt.Errorf("unknown sink %q", name)
		}
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinkRepo.NewMultiSink(sinks...), nil
	}
}
